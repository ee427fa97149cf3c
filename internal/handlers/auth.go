package handlers

import (
	"context"
	"time"

	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/apperr"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/auth"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/database"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/logger"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/validation"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateProfileRequest struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type deleteAccountRequest struct {
	Password string `json:"password"`
}

func handleRegister(c *gin.Context) {
	db := getDB(c)
	services := getServices(c)

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.BadRequest("Invalid JSON body"), "")
		return
	}

	if violations := validation.ValidateRegistration(req.Email, req.Password, req.Name); len(violations) > 0 {
		respondValidation(c, violations)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(c, err, "Failed to register user")
		return
	}

	user, err := database.CreateUser(db, req.Email, hash, req.Name)
	if err != nil {
		if err == database.ErrDuplicateEmail {
			respondError(c, apperr.Conflict("A user with this email already exists"), "")
			return
		}
		respondError(c, err, "Failed to register user")
		return
	}

	token, err := services.Tokens.Issue(user.ID, user.Email)
	if err != nil {
		respondError(c, err, "Failed to register user")
		return
	}

	if services.Email != nil && services.Email.IsEnabled() {
		if err := services.Email.SendWelcomeEmail(user); err != nil {
			logger.Warn("Failed to send welcome email", "email", user.Email, "error", err)
		}
	}

	logger.Info("New user registered", "email", user.Email, "user_id", user.ID)

	respondCreated(c, "User registered successfully", gin.H{
		"user":        user,
		"accessToken": token,
	})
}

func handleLogin(c *gin.Context) {
	db := getDB(c)
	services := getServices(c)

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.BadRequest("Invalid JSON body"), "")
		return
	}

	if violations := validation.ValidateLogin(req.Email, req.Password); len(violations) > 0 {
		respondValidation(c, violations)
		return
	}

	// A missing user and a wrong password produce the same message so the
	// endpoint cannot be used to probe for accounts.
	user, err := database.GetUserByEmail(db, req.Email)
	if err != nil {
		if err == database.ErrNotFound {
			respondError(c, apperr.Unauthorized("Invalid email or password"), "")
			return
		}
		respondError(c, err, "Failed to log in")
		return
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		respondError(c, apperr.Unauthorized("Invalid email or password"), "")
		return
	}

	token, err := services.Tokens.Issue(user.ID, user.Email)
	if err != nil {
		respondError(c, err, "Failed to log in")
		return
	}

	logger.Info("User logged in", "email", user.Email, "user_id", user.ID)

	respondOK(c, "Login successful", gin.H{
		"user":        user,
		"accessToken": token,
	})
}

func handleGetProfile(c *gin.Context) {
	db := getDB(c)
	userID := currentUserID(c)

	user, err := database.GetUserByID(db, userID)
	if err != nil {
		if err == database.ErrNotFound {
			respondError(c, apperr.NotFound("User not found"), "")
			return
		}
		respondError(c, err, "Failed to load profile")
		return
	}

	counts, err := database.GetUserCounts(db, userID)
	if err != nil {
		respondError(c, err, "Failed to load profile")
		return
	}

	respondOK(c, "Profile retrieved", gin.H{
		"user":  user,
		"stats": counts,
	})
}

func handleUpdateProfile(c *gin.Context) {
	db := getDB(c)
	userID := currentUserID(c)

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.BadRequest("Invalid JSON body"), "")
		return
	}

	if violations := validation.ValidateProfileUpdate(req.Name, req.Avatar); len(violations) > 0 {
		respondValidation(c, violations)
		return
	}

	user, err := database.UpdateUserProfile(db, userID, req.Name, req.Avatar)
	if err != nil {
		if err == database.ErrNotFound {
			respondError(c, apperr.NotFound("User not found"), "")
			return
		}
		respondError(c, err, "Failed to update profile")
		return
	}

	logger.Info("User profile updated", "user_id", userID)

	respondOK(c, "Profile updated successfully", gin.H{"user": user})
}

func handleChangePassword(c *gin.Context) {
	db := getDB(c)
	services := getServices(c)
	userID := currentUserID(c)

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.BadRequest("Invalid JSON body"), "")
		return
	}

	if violations := validation.ValidatePasswordChange(req.CurrentPassword, req.NewPassword); len(violations) > 0 {
		respondValidation(c, violations)
		return
	}

	user, err := database.GetUserByID(db, userID)
	if err != nil {
		if err == database.ErrNotFound {
			respondError(c, apperr.NotFound("User not found"), "")
			return
		}
		respondError(c, err, "Failed to change password")
		return
	}

	if !auth.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		respondError(c, apperr.Unauthorized("Current password is incorrect"), "")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		respondError(c, err, "Failed to change password")
		return
	}

	if err := database.UpdateUserPassword(db, userID, hash); err != nil {
		respondError(c, err, "Failed to change password")
		return
	}

	if services.Email != nil && services.Email.IsEnabled() {
		if err := services.Email.SendPasswordChangedEmail(user); err != nil {
			logger.Warn("Failed to send password change notice", "email", user.Email, "error", err)
		}
	}

	logger.Info("Password changed", "user_id", userID)

	respondOK(c, "Password changed successfully", nil)
}

func handleDeleteAccount(c *gin.Context) {
	db := getDB(c)
	services := getServices(c)
	userID := currentUserID(c)

	var req deleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.BadRequest("Invalid JSON body"), "")
		return
	}
	if req.Password == "" {
		respondError(c, apperr.BadRequest("Password is required to delete the account"), "")
		return
	}

	user, err := database.GetUserByID(db, userID)
	if err != nil {
		if err == database.ErrNotFound {
			respondError(c, apperr.NotFound("User not found"), "")
			return
		}
		respondError(c, err, "Failed to delete account")
		return
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		respondError(c, apperr.Unauthorized("Password is incorrect"), "")
		return
	}

	// Collect image ids first, the cascade delete wipes the rows.
	publicIDs, err := database.GetItemImagePublicIDs(db, userID)
	if err != nil {
		respondError(c, err, "Failed to delete account")
		return
	}

	if err := database.DeleteUser(db, userID); err != nil {
		respondError(c, err, "Failed to delete account")
		return
	}

	// Hosted images are cleaned up best-effort after the account is gone.
	if services.Images != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, publicID := range publicIDs {
			if err := services.Images.Delete(ctx, publicID); err != nil {
				logger.Warn("Failed to delete hosted image", "public_id", publicID, "error", err)
			}
		}
	}

	logger.Info("User account deleted", "user_id", userID)

	respondOK(c, "Account deleted successfully", nil)
}
