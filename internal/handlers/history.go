package handlers

import (
	"context"
	"errors"
	"net/http"

	"cardiopredict/internal/models"
	"cardiopredict/internal/repository"
	"cardiopredict/internal/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ObjectStore serves archived images. A nil ObjectStore disables image URLs.
type ObjectStore interface {
	GetPresignedURL(ctx context.Context, objectName string) (string, error)
	DeleteFile(ctx context.Context, objectName string) error
}

type AnalysisView struct {
	models.AnalysisRecord
	ImageURL string `json:"imageUrl,omitempty"`
}

// FeedbackRequest fields left out of the body keep their stored value.
type FeedbackRequest struct {
	Rating    *int    `json:"rating" binding:"omitempty,min=1,max=5"`
	Comments  *string `json:"comments" binding:"omitempty,max=2000"`
	IsHelpful *bool   `json:"isHelpful"`
}

func GetHistory(analyses repository.AnalysisRepository, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUser(c)

		page, ok := parsePage(c)
		if !ok {
			response.Error(c, http.StatusBadRequest, "Invalid pagination parameters")
			return
		}

		records, total, err := analyses.ListForUser(c.Request.Context(), userID, page)
		if err != nil {
			log.Error("failed to list analyses", zap.Uint("user_id", userID), zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "Failed to get analysis history")
			return
		}

		response.Success(c, http.StatusOK, gin.H{
			"analyses":   records,
			"pagination": pagination(total, page),
		})
	}
}

func GetAnalysis(analyses repository.AnalysisRepository, objects ObjectStore, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUser(c)

		id, ok := parseID(c, "id")
		if !ok {
			response.Error(c, http.StatusBadRequest, "Invalid analysis ID")
			return
		}

		rec, err := analyses.GetForUser(c.Request.Context(), userID, id)
		if err != nil {
			writeAnalysisLookupError(c, err, log)
			return
		}

		view := AnalysisView{AnalysisRecord: *rec}
		if objects != nil && rec.ImageObject != "" {
			url, err := objects.GetPresignedURL(c.Request.Context(), rec.ImageObject)
			if err != nil {
				log.Warn("failed to presign image", zap.Uint("analysis_id", id), zap.Error(err))
			} else {
				view.ImageURL = url
			}
		}

		response.Success(c, http.StatusOK, view)
	}
}

func DeleteAnalysis(analyses repository.AnalysisRepository, objects ObjectStore, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUser(c)

		id, ok := parseID(c, "id")
		if !ok {
			response.Error(c, http.StatusBadRequest, "Invalid analysis ID")
			return
		}

		rec, err := analyses.DeleteForUser(c.Request.Context(), userID, id)
		if err != nil {
			writeAnalysisLookupError(c, err, log)
			return
		}

		if objects != nil && rec.ImageObject != "" {
			if err := objects.DeleteFile(c.Request.Context(), rec.ImageObject); err != nil {
				log.Warn("failed to delete archived image", zap.String("object", rec.ImageObject), zap.Error(err))
			}
		}

		response.Message(c, http.StatusOK, "Analysis deleted successfully")
	}
}

func UpdateFeedback(analyses repository.AnalysisRepository, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUser(c)

		id, ok := parseID(c, "id")
		if !ok {
			response.Error(c, http.StatusBadRequest, "Invalid analysis ID")
			return
		}

		var req FeedbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorWithDetails(c, http.StatusBadRequest, "Invalid feedback", err.Error())
			return
		}

		rec, err := analyses.UpdateFeedback(c.Request.Context(), userID, id, repository.FeedbackPatch{
			Rating:    req.Rating,
			Comments:  req.Comments,
			IsHelpful: req.IsHelpful,
		})
		if err != nil {
			writeAnalysisLookupError(c, err, log)
			return
		}

		response.Success(c, http.StatusOK, rec)
	}
}

func GetStats(analyses repository.AnalysisRepository, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUser(c)

		counts, err := analyses.CountByRiskLevel(c.Request.Context(), userID)
		if err != nil {
			log.Error("failed to count analyses", zap.Uint("user_id", userID), zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "Failed to get analysis stats")
			return
		}

		var total int64
		for _, n := range counts {
			total += n
		}
		response.Success(c, http.StatusOK, gin.H{
			"total":       total,
			"byRiskLevel": counts,
		})
	}
}

func writeAnalysisLookupError(c *gin.Context, err error, log *zap.Logger) {
	if errors.Is(err, repository.ErrNotFound) {
		response.Error(c, http.StatusNotFound, "Analysis not found")
		return
	}
	log.Error("analysis lookup failed", zap.Error(err))
	response.Error(c, http.StatusInternalServerError, "Failed to access analysis")
}
