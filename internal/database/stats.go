package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/models"
)

const topTagsLimit = 10

// GetWardrobeStats aggregates the owner's catalog: total count, per-category
// counts, and the ten most frequent tags. Tag ties are broken by first
// occurrence across the items in creation order, which a stable sort over a
// first-seen-ordered slice guarantees.
func GetWardrobeStats(db *sql.DB, userID string) (*models.WardrobeStats, error) {
	stats := &models.WardrobeStats{
		CategoryStats: []models.CategoryCount{},
		TopTags:       []models.TagCount{},
	}

	err := db.QueryRow("SELECT COUNT(*) FROM wardrobe_items WHERE user_id = ?", userID).Scan(&stats.TotalItems)
	if err != nil {
		return nil, fmt.Errorf("failed to count wardrobe items: %w", err)
	}

	categoryRows, err := db.Query(`
		SELECT category, COUNT(*)
		FROM wardrobe_items
		WHERE user_id = ?
		GROUP BY category
		ORDER BY COUNT(*) DESC, category
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query category stats: %w", err)
	}
	defer categoryRows.Close()

	for categoryRows.Next() {
		var cc models.CategoryCount
		if err := categoryRows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category stat: %w", err)
		}
		stats.CategoryStats = append(stats.CategoryStats, cc)
	}
	if err := categoryRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category stats: %w", err)
	}

	topTags, err := topTagsForUser(db, userID)
	if err != nil {
		return nil, err
	}
	stats.TopTags = topTags

	return stats, nil
}

func topTagsForUser(db *sql.DB, userID string) ([]models.TagCount, error) {
	rows, err := db.Query("SELECT tags FROM wardrobe_items WHERE user_id = ? ORDER BY created_at, id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	var firstSeen []string

	for rows.Next() {
		var tagsJSON string
		if err := rows.Scan(&tagsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan tags: %w", err)
		}

		var tags []string
		if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}

		for _, tag := range tags {
			if _, seen := counts[tag]; !seen {
				firstSeen = append(firstSeen, tag)
			}
			counts[tag]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	top := make([]models.TagCount, 0, len(firstSeen))
	for _, tag := range firstSeen {
		top = append(top, models.TagCount{Tag: tag, Count: counts[tag]})
	}

	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Count > top[j].Count
	})

	if len(top) > topTagsLimit {
		top = top[:topTagsLimit]
	}

	return top, nil
}
