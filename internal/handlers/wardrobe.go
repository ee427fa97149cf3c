package handlers

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"time"

	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/apperr"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/database"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/logger"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/models"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/upload"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/validation"

	"github.com/gin-gonic/gin"
)

const maxImageSize = 10 << 20 // 10MB

func handleListWardrobeItems(c *gin.Context) {
	db := getDB(c)
	userID := currentUserID(c)

	page, limit, violations := validation.ValidatePagination(c.Query("page"), c.Query("limit"))
	violations = append(violations, validation.ValidateSearch(c.Query("search"))...)

	category := c.Query("category")
	if category != "" && category != "all" && !models.IsValidCategory(category) {
		violations = append(violations, "Invalid category. Allowed: "+strings.Join(models.WardrobeCategories, ", "))
	}

	if len(violations) > 0 {
		respondValidation(c, violations)
		return
	}

	filter := database.ItemFilter{
		Category: category,
		Search:   c.Query("search"),
		Page:     page,
		Limit:    limit,
	}
	if tags := c.Query("tags"); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if trimmed := strings.TrimSpace(tag); trimmed != "" {
				filter.Tags = append(filter.Tags, trimmed)
			}
		}
	}

	items, total, err := database.ListItems(db, userID, filter)
	if err != nil {
		respondError(c, err, "Failed to load wardrobe")
		return
	}

	respondOK(c, "Wardrobe retrieved successfully", models.NewPaginatedResult(items, total, page, limit))
}

func handleGetWardrobeItem(c *gin.Context) {
	db := getDB(c)
	userID := currentUserID(c)

	item, err := loadOwnedItem(db, c.Param("id"), userID)
	if err != nil {
		respondError(c, err, "Failed to load wardrobe item")
		return
	}

	respondOK(c, "Wardrobe item retrieved", item)
}

func handleCreateWardrobeItem(c *gin.Context) {
	db := getDB(c)
	services := getServices(c)
	userID := currentUserID(c)

	name := postFormPtr(c, "name")
	category := postFormPtr(c, "category")
	color := postFormPtr(c, "color")

	violations := validation.ValidateWardrobeItem(name, category, color, false)

	var tags []string
	if raw, ok := c.GetPostForm("tags"); ok && raw != "" {
		var tagViolations []string
		tags, tagViolations = validation.ParseTags(raw)
		violations = append(violations, tagViolations...)
	}

	image, mimeType, imgErr := readImageFile(c, "image")
	if imgErr != nil {
		violations = append(violations, imgErr.Message)
	} else if image == nil {
		violations = append(violations, "Image is required")
	}

	if len(violations) > 0 {
		respondValidation(c, violations)
		return
	}

	uploaded, err := services.Images.Upload(c.Request.Context(), image)
	if err != nil {
		logger.Error("Image upload failed", "user_id", userID, "mime", mimeType, "error", err)
		respondError(c, apperr.Internal("Failed to upload image"), "")
		return
	}

	item := models.WardrobeItem{
		UserID:        userID,
		Name:          strings.TrimSpace(*name),
		Category:      *category,
		Tags:          tags,
		ImageURL:      uploaded.URL,
		ImagePublicID: uploaded.PublicID,
	}
	if color != nil {
		trimmed := strings.TrimSpace(*color)
		item.Color = &trimmed
	}

	created, err := database.CreateItem(db, item)
	if err != nil {
		respondError(c, err, "Failed to add wardrobe item")
		return
	}

	logger.Info("Wardrobe item created", "item_id", created.ID, "user_id", userID)

	respondCreated(c, "Item added to wardrobe successfully", created)
}

func handleUpdateWardrobeItem(c *gin.Context) {
	db := getDB(c)
	services := getServices(c)
	userID := currentUserID(c)

	existing, err := loadOwnedItem(db, c.Param("id"), userID)
	if err != nil {
		respondError(c, err, "Failed to update wardrobe item")
		return
	}

	upd := database.ItemUpdate{
		Name:     postFormPtr(c, "name"),
		Category: postFormPtr(c, "category"),
		Color:    postFormPtr(c, "color"),
	}

	violations := validation.ValidateWardrobeItem(upd.Name, upd.Category, upd.Color, true)

	// An empty tags value means the field was not touched, matching create.
	if raw, ok := c.GetPostForm("tags"); ok && raw != "" {
		tags, tagViolations := validation.ParseTags(raw)
		violations = append(violations, tagViolations...)
		upd.Tags = tags
	}

	image, mimeType, imgErr := readImageFile(c, "image")
	if imgErr != nil {
		violations = append(violations, imgErr.Message)
	}

	if len(violations) > 0 {
		respondValidation(c, violations)
		return
	}

	if image != nil {
		uploaded, err := services.Images.Upload(c.Request.Context(), image)
		if err != nil {
			logger.Error("Image upload failed", "user_id", userID, "mime", mimeType, "error", err)
			respondError(c, apperr.Internal("Failed to upload image"), "")
			return
		}
		upd.ImageURL = &uploaded.URL
		upd.ImagePublicID = &uploaded.PublicID

		// The previous image is removed best-effort once the new one is up.
		if publicID := itemPublicID(existing); publicID != "" {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := services.Images.Delete(ctx, publicID); err != nil {
				logger.Warn("Failed to delete old image", "public_id", publicID, "error", err)
			}
		}
	}

	updated, err := database.UpdateItem(db, existing.ID, upd)
	if err != nil {
		respondError(c, err, "Failed to update wardrobe item")
		return
	}

	logger.Info("Wardrobe item updated", "item_id", existing.ID, "user_id", userID)

	respondOK(c, "Wardrobe item updated successfully", updated)
}

func handleDeleteWardrobeItem(c *gin.Context) {
	db := getDB(c)
	services := getServices(c)
	userID := currentUserID(c)

	item, err := loadOwnedItem(db, c.Param("id"), userID)
	if err != nil {
		respondError(c, err, "Failed to delete wardrobe item")
		return
	}

	if publicID := itemPublicID(item); publicID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := services.Images.Delete(ctx, publicID); err != nil {
			logger.Warn("Failed to delete hosted image", "public_id", publicID, "error", err)
		}
	}

	if err := database.DeleteItem(db, item.ID); err != nil {
		respondError(c, err, "Failed to delete wardrobe item")
		return
	}

	logger.Info("Wardrobe item deleted", "item_id", item.ID, "user_id", userID)

	respondOK(c, "Wardrobe item deleted successfully", nil)
}

func handleWardrobeStats(c *gin.Context) {
	db := getDB(c)
	userID := currentUserID(c)

	stats, err := database.GetWardrobeStats(db, userID)
	if err != nil {
		respondError(c, err, "Failed to load wardrobe stats")
		return
	}

	respondOK(c, "Wardrobe stats retrieved", stats)
}

// itemPublicID resolves the Cloudinary public id for an item, deriving it
// from the delivery URL for rows imported without one.
func itemPublicID(item *models.WardrobeItem) string {
	if item.ImagePublicID != "" {
		return item.ImagePublicID
	}
	return upload.PublicIDFromURL(item.ImageURL)
}

// loadOwnedItem resolves an item and enforces ownership. The existence check
// runs first so a foreign id yields 404, not 403.
func loadOwnedItem(db *sql.DB, itemID, userID string) (*models.WardrobeItem, error) {
	if !validation.ValidateID(itemID) {
		return nil, apperr.BadRequest("Invalid ID format")
	}

	item, err := database.GetItem(db, itemID)
	if err != nil {
		if err == database.ErrNotFound {
			return nil, apperr.NotFound("Wardrobe item not found")
		}
		return nil, err
	}
	if item.UserID != userID {
		return nil, apperr.Forbidden("Access denied")
	}
	return item, nil
}

func postFormPtr(c *gin.Context, field string) *string {
	if value, ok := c.GetPostForm(field); ok {
		return &value
	}
	return nil
}

// readImageFile pulls an uploaded image out of the multipart form. A missing
// file is not an error, the caller decides whether it was required.
func readImageFile(c *gin.Context, field string) ([]byte, string, *apperr.Error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, "", nil
	}

	if header.Size > maxImageSize {
		return nil, "", apperr.BadRequest("File is too large. Maximum size: 10MB")
	}

	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", apperr.BadRequest("Only image files are allowed")
	}

	file, err := header.Open()
	if err != nil {
		return nil, "", apperr.Internal("Failed to read uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		return nil, "", apperr.Internal("Failed to read uploaded file")
	}
	if len(data) > maxImageSize {
		return nil, "", apperr.BadRequest("File is too large. Maximum size: 10MB")
	}

	return data, mimeType, nil
}
