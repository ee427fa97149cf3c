package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/models"

	"github.com/google/uuid"
)

// ItemFilter narrows a wardrobe listing. Zero values mean "no filter".
type ItemFilter struct {
	Category string
	Search   string
	Tags     []string
	Page     int
	Limit    int
}

func CreateItem(db *sql.DB, item models.WardrobeItem) (*models.WardrobeItem, error) {
	item.ID = uuid.New().String()

	tagsJSON, err := encodeTags(item.Tags)
	if err != nil {
		return nil, err
	}

	// Timestamps are written from Go rather than CURRENT_TIMESTAMP: sqlite's
	// default has one-second resolution, too coarse for a stable newest-first
	// ordering of items created back to back.
	now := time.Now().UTC()

	query := `
		INSERT INTO wardrobe_items (id, user_id, name, category, color, tags, image_url, image_public_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.Exec(query, item.ID, item.UserID, item.Name, item.Category, item.Color,
		tagsJSON, item.ImageURL, item.ImagePublicID, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create wardrobe item: %w", err)
	}

	item.CreatedAt = now
	item.UpdatedAt = now

	return &item, nil
}

// GetItem loads an item by id without an owner filter: handlers must be able
// to distinguish a missing item (404) from someone else's item (403).
func GetItem(db *sql.DB, itemID string) (*models.WardrobeItem, error) {
	query := `
		SELECT id, user_id, name, category, color, tags, image_url, image_public_id, created_at, updated_at
		FROM wardrobe_items
		WHERE id = ?
	`

	item, err := scanItem(db.QueryRow(query, itemID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query wardrobe item: %w", err)
	}

	return item, nil
}

// ListItems returns one page of the owner's items, newest first, together
// with the total count matching the filter.
func ListItems(db *sql.DB, userID string, filter ItemFilter) ([]models.WardrobeItem, int64, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}

	if filter.Category != "" && filter.Category != "all" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}

	if filter.Search != "" {
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(COALESCE(color, '')) LIKE ?)")
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, pattern, pattern)
	}

	if len(filter.Tags) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.Tags)), ",")
		where = append(where, "EXISTS (SELECT 1 FROM json_each(wardrobe_items.tags) WHERE json_each.value IN ("+placeholders+"))")
		for _, tag := range filter.Tags {
			args = append(args, tag)
		}
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	err := db.QueryRow("SELECT COUNT(*) FROM wardrobe_items WHERE "+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count wardrobe items: %w", err)
	}

	query := `
		SELECT id, user_id, name, category, color, tags, image_url, image_public_id, created_at, updated_at
		FROM wardrobe_items
		WHERE ` + whereClause + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query wardrobe items: %w", err)
	}
	defer rows.Close()

	var items []models.WardrobeItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan wardrobe item: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating wardrobe items: %w", err)
	}

	return items, total, nil
}

// ItemUpdate is a partial update; nil fields are left untouched.
type ItemUpdate struct {
	Name          *string
	Category      *string
	Color         *string
	Tags          []string
	ImageURL      *string
	ImagePublicID *string
}

func UpdateItem(db *sql.DB, itemID string, upd ItemUpdate) (*models.WardrobeItem, error) {
	sets := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []any{}

	if upd.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, strings.TrimSpace(*upd.Name))
	}
	if upd.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *upd.Category)
	}
	if upd.Color != nil {
		sets = append(sets, "color = ?")
		args = append(args, strings.TrimSpace(*upd.Color))
	}
	if upd.Tags != nil {
		tagsJSON, err := encodeTags(upd.Tags)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "tags = ?")
		args = append(args, tagsJSON)
	}
	if upd.ImageURL != nil {
		sets = append(sets, "image_url = ?")
		args = append(args, *upd.ImageURL)
	}
	if upd.ImagePublicID != nil {
		sets = append(sets, "image_public_id = ?")
		args = append(args, *upd.ImagePublicID)
	}

	args = append(args, itemID)
	query := "UPDATE wardrobe_items SET " + strings.Join(sets, ", ") + " WHERE id = ?"

	result, err := db.Exec(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update wardrobe item: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	return GetItem(db, itemID)
}

func DeleteItem(db *sql.DB, itemID string) error {
	result, err := db.Exec("DELETE FROM wardrobe_items WHERE id = ?", itemID)
	if err != nil {
		return fmt.Errorf("failed to delete wardrobe item: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}

// GetItemImagePublicIDs lists the remote image ids of every item the user
// owns, used for best-effort cleanup before an account deletion.
func GetItemImagePublicIDs(db *sql.DB, userID string) ([]string, error) {
	rows, err := db.Query("SELECT image_public_id FROM wardrobe_items WHERE user_id = ? AND image_public_id != ''", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query image ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan image id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating image ids: %w", err)
	}

	return ids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.WardrobeItem, error) {
	item := &models.WardrobeItem{}
	var color sql.NullString
	var tagsJSON string

	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.Name,
		&item.Category,
		&color,
		&tagsJSON,
		&item.ImageURL,
		&item.ImagePublicID,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if color.Valid {
		item.Color = &color.String
	}

	if err := json.Unmarshal([]byte(tagsJSON), &item.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}

	return item, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(data), nil
}
