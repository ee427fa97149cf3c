package handlers

import (
	"database/sql"
	"strings"

	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/apperr"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/database"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/logger"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/models"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/validation"

	"github.com/gin-gonic/gin"
)

type createProjectRequest struct {
	Name          string  `json:"name"`
	Description   *string `json:"description"`
	ModelImageURL string  `json:"modelImageUrl"`
}

type updateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"isPublic"`
}

func handleListProjects(c *gin.Context) {
	db := getDB(c)
	userID := currentUserID(c)

	projects, err := database.ListProjects(db, userID)
	if err != nil {
		respondError(c, err, "Failed to load projects")
		return
	}

	respondOK(c, "Projects retrieved successfully", projects)
}

func handleCreateProject(c *gin.Context) {
	db := getDB(c)
	userID := currentUserID(c)

	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.BadRequest("Invalid JSON body"), "")
		return
	}

	var violations []string
	name := strings.TrimSpace(req.Name)
	if len(name) < 1 || len(name) > 100 {
		violations = append(violations, "Name must be between 1 and 100 characters")
	}
	if req.ModelImageURL == "" {
		violations = append(violations, "Model image URL is required")
	}
	if len(violations) > 0 {
		respondValidation(c, violations)
		return
	}

	project := models.Project{
		UserID:        userID,
		Name:          name,
		Description:   req.Description,
		ModelImageURL: req.ModelImageURL,
	}

	created, err := database.CreateProject(db, project)
	if err != nil {
		respondError(c, err, "Failed to create project")
		return
	}

	logger.Info("Project created", "project_id", created.ID, "user_id", userID)

	respondCreated(c, "Project created successfully", created)
}

// handleGetProject runs behind the project access middleware, so by the time
// it executes the caller is the owner, the project is public, or a valid
// share token was presented.
func handleGetProject(c *gin.Context) {
	db := getDB(c)

	project, err := database.GetProject(db, c.Param("id"))
	if err != nil {
		if err == database.ErrNotFound {
			respondError(c, apperr.NotFound("Project not found"), "")
			return
		}
		respondError(c, err, "Failed to load project")
		return
	}

	respondOK(c, "Project retrieved", project)
}

func handleUpdateProject(c *gin.Context) {
	db := getDB(c)
	userID := currentUserID(c)

	project, err := loadOwnedProject(db, c.Param("id"), userID)
	if err != nil {
		respondError(c, err, "Failed to update project")
		return
	}

	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.BadRequest("Invalid JSON body"), "")
		return
	}

	if req.Name == nil && req.Description == nil && req.IsPublic == nil {
		respondError(c, apperr.BadRequest("No fields to update"), "")
		return
	}
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if len(trimmed) < 1 || len(trimmed) > 100 {
			respondValidation(c, []string{"Name must be between 1 and 100 characters"})
			return
		}
		req.Name = &trimmed
	}

	updated, err := database.UpdateProject(db, project.ID, database.ProjectUpdate{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		respondError(c, err, "Failed to update project")
		return
	}

	logger.Info("Project updated", "project_id", project.ID, "user_id", userID)

	respondOK(c, "Project updated successfully", updated)
}

func handleDeleteProject(c *gin.Context) {
	db := getDB(c)
	userID := currentUserID(c)

	project, err := loadOwnedProject(db, c.Param("id"), userID)
	if err != nil {
		respondError(c, err, "Failed to delete project")
		return
	}

	if err := database.DeleteProject(db, project.ID); err != nil {
		respondError(c, err, "Failed to delete project")
		return
	}

	logger.Info("Project deleted", "project_id", project.ID, "user_id", userID)

	respondOK(c, "Project deleted successfully", nil)
}

// handleShareProject returns the project's share link token, minting one on
// first use. The token grants read access regardless of the public flag.
func handleShareProject(c *gin.Context) {
	db := getDB(c)
	userID := currentUserID(c)

	project, err := loadOwnedProject(db, c.Param("id"), userID)
	if err != nil {
		respondError(c, err, "Failed to share project")
		return
	}

	token, err := database.EnsureProjectShareToken(db, project.ID)
	if err != nil {
		respondError(c, err, "Failed to share project")
		return
	}

	logger.Info("Project share token issued", "project_id", project.ID, "user_id", userID)

	respondOK(c, "Share token generated", gin.H{"shareToken": token})
}

func loadOwnedProject(db *sql.DB, projectID, userID string) (*models.Project, error) {
	if !validation.ValidateID(projectID) {
		return nil, apperr.BadRequest("Invalid ID format")
	}

	project, err := database.GetProject(db, projectID)
	if err != nil {
		if err == database.ErrNotFound {
			return nil, apperr.NotFound("Project not found")
		}
		return nil, err
	}
	if project.UserID != userID {
		return nil, apperr.Forbidden("Access denied")
	}
	return project, nil
}
