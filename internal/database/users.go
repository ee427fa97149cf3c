package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/models"

	"github.com/google/uuid"
)

// CreateUser inserts a new account. The email is stored lowercased so lookups
// stay case-insensitive.
func CreateUser(db *sql.DB, email, passwordHash string, name *string) (*models.User, error) {
	id := uuid.New().String()
	email = strings.ToLower(email)

	query := `
		INSERT INTO users (id, email, password_hash, name)
		VALUES (?, ?, ?, ?)
	`

	_, err := db.Exec(query, id, email, passwordHash, name)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user := &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	return user, nil
}

func GetUserByEmail(db *sql.DB, email string) (*models.User, error) {
	return getUser(db, "email = ?", strings.ToLower(email))
}

func GetUserByID(db *sql.DB, userID string) (*models.User, error) {
	return getUser(db, "id = ?", userID)
}

func getUser(db *sql.DB, where string, arg any) (*models.User, error) {
	user := &models.User{}
	var name, avatar sql.NullString

	query := `
		SELECT id, email, password_hash, name, avatar, created_at, updated_at
		FROM users
		WHERE ` + where

	err := db.QueryRow(query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&name,
		&avatar,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if name.Valid {
		user.Name = &name.String
	}
	if avatar.Valid {
		user.Avatar = &avatar.String
	}

	return user, nil
}

// UpdateUserProfile applies a partial update; nil fields are left untouched.
func UpdateUserProfile(db *sql.DB, userID string, name, avatar *string) (*models.User, error) {
	sets := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []any{}

	if name != nil {
		sets = append(sets, "name = ?")
		args = append(args, strings.TrimSpace(*name))
	}
	if avatar != nil {
		sets = append(sets, "avatar = ?")
		args = append(args, *avatar)
	}

	args = append(args, userID)
	query := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id = ?"

	result, err := db.Exec(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	return GetUserByID(db, userID)
}

func UpdateUserPassword(db *sql.DB, userID, passwordHash string) error {
	query := "UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	_, err := db.Exec(query, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// DeleteUser removes the account. Owned items and projects go with it via
// foreign key cascade.
func DeleteUser(db *sql.DB, userID string) error {
	result, err := db.Exec("DELETE FROM users WHERE id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}

type UserCounts struct {
	WardrobeItems int `json:"wardrobeItems"`
	Projects      int `json:"projects"`
}

func GetUserCounts(db *sql.DB, userID string) (*UserCounts, error) {
	counts := &UserCounts{}

	err := db.QueryRow("SELECT COUNT(*) FROM wardrobe_items WHERE user_id = ?", userID).Scan(&counts.WardrobeItems)
	if err != nil {
		return nil, fmt.Errorf("failed to count wardrobe items: %w", err)
	}

	err = db.QueryRow("SELECT COUNT(*) FROM projects WHERE user_id = ?", userID).Scan(&counts.Projects)
	if err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}

	return counts, nil
}
