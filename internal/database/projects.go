package database

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/models"

	"github.com/google/uuid"
)

func CreateProject(db *sql.DB, project models.Project) (*models.Project, error) {
	project.ID = uuid.New().String()

	query := `
		INSERT INTO projects (id, user_id, name, description, model_image_url, is_public)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query, project.ID, project.UserID, project.Name, project.Description,
		project.ModelImageURL, project.IsPublic)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	project.CreatedAt = time.Now()
	project.UpdatedAt = time.Now()

	return &project, nil
}

func GetProject(db *sql.DB, projectID string) (*models.Project, error) {
	project := &models.Project{}
	var description, shareToken sql.NullString

	query := `
		SELECT id, user_id, name, description, model_image_url, is_public, share_token, created_at, updated_at
		FROM projects
		WHERE id = ?
	`

	err := db.QueryRow(query, projectID).Scan(
		&project.ID,
		&project.UserID,
		&project.Name,
		&description,
		&project.ModelImageURL,
		&project.IsPublic,
		&shareToken,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query project: %w", err)
	}

	if description.Valid {
		project.Description = &description.String
	}
	if shareToken.Valid {
		project.ShareToken = &shareToken.String
	}

	return project, nil
}

func ListProjects(db *sql.DB, userID string) ([]models.Project, error) {
	query := `
		SELECT id, user_id, name, description, model_image_url, is_public, share_token, created_at, updated_at
		FROM projects
		WHERE user_id = ?
		ORDER BY updated_at DESC
	`

	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var project models.Project
		var description, shareToken sql.NullString

		err := rows.Scan(
			&project.ID,
			&project.UserID,
			&project.Name,
			&description,
			&project.ModelImageURL,
			&project.IsPublic,
			&shareToken,
			&project.CreatedAt,
			&project.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}

		if description.Valid {
			project.Description = &description.String
		}
		if shareToken.Valid {
			project.ShareToken = &shareToken.String
		}

		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}

	return projects, nil
}

// ProjectUpdate is a partial update; nil fields are left untouched.
type ProjectUpdate struct {
	Name        *string
	Description *string
	IsPublic    *bool
}

func UpdateProject(db *sql.DB, projectID string, upd ProjectUpdate) (*models.Project, error) {
	sets := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []any{}

	if upd.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, strings.TrimSpace(*upd.Name))
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.IsPublic != nil {
		sets = append(sets, "is_public = ?")
		args = append(args, *upd.IsPublic)
	}

	args = append(args, projectID)
	query := "UPDATE projects SET " + strings.Join(sets, ", ") + " WHERE id = ?"

	result, err := db.Exec(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	return GetProject(db, projectID)
}

func DeleteProject(db *sql.DB, projectID string) error {
	result, err := db.Exec("DELETE FROM projects WHERE id = ?", projectID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}

// EnsureProjectShareToken returns the project's share token, generating and
// persisting one on first use.
func EnsureProjectShareToken(db *sql.DB, projectID string) (string, error) {
	project, err := GetProject(db, projectID)
	if err != nil {
		return "", err
	}

	if project.ShareToken != nil && *project.ShareToken != "" {
		return *project.ShareToken, nil
	}

	token, err := generateShareToken()
	if err != nil {
		return "", err
	}

	_, err = db.Exec("UPDATE projects SET share_token = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", token, projectID)
	if err != nil {
		return "", fmt.Errorf("failed to store share token: %w", err)
	}

	return token, nil
}

func generateShareToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate share token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
