package models

import (
	"time"
)

// Categories a wardrobe item can belong to. This list is the single source of
// truth; validation and persistence both reference it.
const (
	CategoryTop         = "TOP"
	CategoryBottom      = "BOTTOM"
	CategoryOuterwear   = "OUTERWEAR"
	CategoryDress       = "DRESS"
	CategoryShoes       = "SHOES"
	CategoryAccessories = "ACCESSORIES"
)

var WardrobeCategories = []string{
	CategoryTop,
	CategoryBottom,
	CategoryOuterwear,
	CategoryDress,
	CategoryShoes,
	CategoryAccessories,
}

func IsValidCategory(category string) bool {
	for _, c := range WardrobeCategories {
		if c == category {
			return true
		}
	}
	return false
}

type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Name         *string   `json:"name" db:"name"`
	Avatar       *string   `json:"avatar" db:"avatar"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

type WardrobeItem struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"userId" db:"user_id"`
	Name          string    `json:"name" db:"name"`
	Category      string    `json:"category" db:"category"`
	Color         *string   `json:"color" db:"color"`
	Tags          []string  `json:"tags" db:"tags"`
	ImageURL      string    `json:"imageUrl" db:"image_url"`
	ImagePublicID string    `json:"-" db:"image_public_id"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// Project is a shareable outfit collection built around a model image.
// Access rule: owner, or public, or a matching share token.
type Project struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"userId" db:"user_id"`
	Name          string    `json:"name" db:"name"`
	Description   *string   `json:"description" db:"description"`
	ModelImageURL string    `json:"modelImageUrl" db:"model_image_url"`
	IsPublic      bool      `json:"isPublic" db:"is_public"`
	ShareToken    *string   `json:"-" db:"share_token"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

type PaginatedResult[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

func NewPaginatedResult[T any](data []T, total int64, page, limit int) PaginatedResult[T] {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	if data == nil {
		data = []T{}
	}
	return PaginatedResult[T]{
		Data: data,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type WardrobeStats struct {
	TotalItems    int             `json:"totalItems"`
	CategoryStats []CategoryCount `json:"categoryStats"`
	TopTags       []TagCount      `json:"topTags"`
}
