package handlers

import (
	"net/http"

	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/apperr"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/logger"

	"github.com/gin-gonic/gin"
)

type generatePoseRequest struct {
	ImageURL        string `json:"imageUrl"`
	PoseInstruction string `json:"poseInstruction"`
}

type generateCloseupRequest struct {
	ImageURL          string `json:"imageUrl"`
	OutfitDescription string `json:"outfitDescription"`
}

type generatePostCopyRequest struct {
	ImageURL          string `json:"imageUrl"`
	OutfitDescription string `json:"outfitDescription"`
	SceneDescription  string `json:"sceneDescription"`
	BrandName         string `json:"brandName"`
}

func handleGenerateModel(c *gin.Context) {
	services := getServices(c)

	image, mimeType, imgErr := readImageFile(c, "image")
	if imgErr != nil {
		respondError(c, imgErr, "")
		return
	}
	if image == nil {
		respondError(c, apperr.BadRequest("No image file provided"), "")
		return
	}

	logger.Info("Processing model image generation", "user_id", currentUserID(c))

	imageURL, err := services.Generator.GenerateModelImage(c.Request.Context(), image, mimeType)
	if err != nil {
		respondGenerationError(c, err, "Failed to generate model image")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "imageUrl": imageURL})
}

func handleVirtualTryOn(c *gin.Context) {
	services := getServices(c)

	modelImageURL := c.PostForm("modelImageUrl")
	if modelImageURL == "" {
		respondError(c, apperr.BadRequest("Model image URL is required"), "")
		return
	}

	garment, garmentMIME, imgErr := readImageFile(c, "garment")
	if imgErr != nil {
		respondError(c, imgErr, "")
		return
	}
	if garment == nil {
		respondError(c, apperr.BadRequest("Garment image file is required"), "")
		return
	}

	logger.Info("Processing virtual try-on", "user_id", currentUserID(c))

	imageURL, err := services.Generator.VirtualTryOn(c.Request.Context(), modelImageURL, garment, garmentMIME)
	if err != nil {
		respondGenerationError(c, err, "Failed to process virtual try-on")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "imageUrl": imageURL})
}

func handleGeneratePose(c *gin.Context) {
	services := getServices(c)

	var req generatePoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.BadRequest("Invalid JSON body"), "")
		return
	}
	if req.ImageURL == "" || req.PoseInstruction == "" {
		respondError(c, apperr.BadRequest("Image URL and pose instruction are required"), "")
		return
	}

	logger.Info("Processing pose variation", "user_id", currentUserID(c), "pose", req.PoseInstruction)

	imageURL, err := services.Generator.PoseVariation(c.Request.Context(), req.ImageURL, req.PoseInstruction)
	if err != nil {
		respondGenerationError(c, err, "Failed to generate pose variation")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "imageUrl": imageURL})
}

func handleGenerateCloseup(c *gin.Context) {
	services := getServices(c)

	var req generateCloseupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.BadRequest("Invalid JSON body"), "")
		return
	}
	if req.ImageURL == "" {
		respondError(c, apperr.BadRequest("Image URL is required"), "")
		return
	}

	logger.Info("Processing closeup generation", "user_id", currentUserID(c))

	imageURL, err := services.Generator.Closeup(c.Request.Context(), req.ImageURL, req.OutfitDescription)
	if err != nil {
		respondGenerationError(c, err, "Failed to generate closeup image")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "imageUrl": imageURL})
}

func handleGeneratePostCopy(c *gin.Context) {
	services := getServices(c)

	var req generatePostCopyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.BadRequest("Invalid JSON body"), "")
		return
	}
	if req.ImageURL == "" {
		respondError(c, apperr.BadRequest("Image URL is required"), "")
		return
	}

	scene := req.SceneDescription
	if scene == "" {
		scene = "neutral studio background"
	}

	logger.Info("Processing post copy generation", "user_id", currentUserID(c))

	postCopy, err := services.Generator.PostCopy(c.Request.Context(), req.ImageURL, req.OutfitDescription, scene, req.BrandName)
	if err != nil {
		respondGenerationError(c, err, "Failed to generate post copy")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "postCopy": postCopy})
}

func handleGenerateVideo(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{
		"success": false,
		"message": "Video generation is not implemented yet",
	})
}

func handleVideoStatus(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{
		"success": false,
		"message": "Video status check is not implemented yet",
	})
}

// respondGenerationError surfaces the generator's message. These errors come
// from model safety filters and malformed inputs, not internals, and the
// frontend shows them to the user verbatim.
func respondGenerationError(c *gin.Context, err error, fallback string) {
	logger.Error("Generation failed", "path", c.Request.URL.Path, "error", err)

	message := err.Error()
	if message == "" {
		message = fallback
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"message": message,
	})
}
