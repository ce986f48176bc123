package handlers

import (
	"errors"
	"net/http"
	"time"

	"cardiopredict/internal/models"
	"cardiopredict/internal/prediction"
	"cardiopredict/internal/repository"
	"cardiopredict/internal/response"

	"cardiopredict/pkg/imaging"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UploadedFileRequest struct {
	Name string `json:"name" binding:"required"`
	Size int64  `json:"size" binding:"min=0"`
	Type string `json:"type"`
}

type CreatePatientRequest struct {
	PatientInfo   models.PatientInfo    `json:"patientInfo" binding:"required"`
	UploadedFiles []UploadedFileRequest `json:"uploadedFiles" binding:"omitempty,dive"`
}

type AnalyzePatientRequest struct {
	PatientDataID *uint               `json:"patientDataId" binding:"omitempty,min=1"`
	PatientInfo   *models.PatientInfo `json:"patientInfo"`
	AnalysisType  string              `json:"analysisType"`
}

type AnalysisResults struct {
	AnalysisID      uint      `json:"analysisId"`
	RiskScore       int       `json:"riskScore"`
	RiskLevel       string    `json:"riskLevel"`
	Confidence      float64   `json:"confidence"`
	Recommendations []string  `json:"recommendations"`
	Alerts          []string  `json:"alerts"`
	AnalysisDate    time.Time `json:"analysisDate"`
}

func CreatePatient(patients repository.PatientRepository, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUser(c)

		var req CreatePatientRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorWithDetails(c, http.StatusBadRequest, "Invalid patient data", err.Error())
			return
		}

		now := time.Now()
		files := make([]models.UploadedFile, 0, len(req.UploadedFiles))
		for _, f := range req.UploadedFiles {
			files = append(files, models.UploadedFile{
				FileName:   f.Name,
				FileSize:   f.Size,
				FileType:   f.Type,
				UploadDate: now,
			})
		}

		p := models.PatientData{
			UserID:        userID,
			PatientInfo:   req.PatientInfo,
			UploadedFiles: files,
		}
		if err := patients.Create(c.Request.Context(), &p); err != nil {
			log.Error("failed to save patient data", zap.Uint("user_id", userID), zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "Failed to save patient data")
			return
		}

		response.JSON(c, http.StatusCreated, gin.H{
			"message":     "Patient data saved successfully",
			"patientData": p,
		})
	}
}

func ListPatients(patients repository.PatientRepository, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUser(c)

		list, err := patients.ListForUser(c.Request.Context(), userID, defaultPageLimit)
		if err != nil {
			log.Error("failed to list patient data", zap.Uint("user_id", userID), zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "Failed to get patient history")
			return
		}

		response.Success(c, http.StatusOK, list)
	}
}

func GetPatient(patients repository.PatientRepository, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUser(c)

		id, ok := parseID(c, "id")
		if !ok {
			response.Error(c, http.StatusBadRequest, "Invalid patient ID")
			return
		}

		p, err := patients.GetForUser(c.Request.Context(), userID, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				response.Error(c, http.StatusNotFound, "Patient data not found")
				return
			}
			log.Error("failed to get patient data", zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "Failed to get patient data")
			return
		}

		response.Success(c, http.StatusOK, p)
	}
}

// AnalyzePatient scores a saved intake record, or an inline questionnaire,
// without an ECG image.
func AnalyzePatient(svc *prediction.QuestionnaireService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUser(c)

		var req AnalyzePatientRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorWithDetails(c, http.StatusBadRequest, "Invalid analysis request", err.Error())
			return
		}

		rec, err := svc.Analyze(c.Request.Context(), userID, prediction.Questionnaire{
			PatientDataID: req.PatientDataID,
			PatientInfo:   req.PatientInfo,
			AnalysisType:  req.AnalysisType,
		})
		switch {
		case err == nil:
		case errors.Is(err, prediction.ErrNoPatientData):
			response.Error(c, http.StatusBadRequest, "patientDataId or patientInfo is required")
			return
		case errors.Is(err, prediction.ErrInvalidAnalysisType):
			response.Error(c, http.StatusBadRequest, "Invalid analysis type")
			return
		case errors.Is(err, prediction.ErrPatientNotFound):
			response.Error(c, http.StatusNotFound, "Patient data not found")
			return
		case errors.Is(err, imaging.ErrClassifierTimeout):
			response.Error(c, http.StatusGatewayTimeout, "Analysis timed out")
			return
		default:
			log.Error("questionnaire analysis failed", zap.Uint("user_id", userID), zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "Analysis failed")
			return
		}

		response.JSON(c, http.StatusOK, gin.H{
			"message": "Analysis completed successfully",
			"results": AnalysisResults{
				AnalysisID:      rec.ID,
				RiskScore:       rec.RiskScore,
				RiskLevel:       rec.RiskLevel,
				Confidence:      rec.Confidence,
				Recommendations: rec.Recommendations,
				Alerts:          rec.Alerts,
				AnalysisDate:    rec.EndedAt.UTC(),
			},
		})
	}
}

// PatientHistory returns the caller's latest intake records next to their
// latest analyses.
func PatientHistory(patients repository.PatientRepository, analyses repository.AnalysisRepository, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUser(c)
		ctx := c.Request.Context()

		records, err := patients.ListForUser(ctx, userID, defaultPageLimit)
		if err != nil {
			log.Error("failed to list patient data", zap.Uint("user_id", userID), zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "Failed to get patient history")
			return
		}
		history, _, err := analyses.ListForUser(ctx, userID, repository.Page{Limit: defaultPageLimit})
		if err != nil {
			log.Error("failed to list analyses", zap.Uint("user_id", userID), zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "Failed to get patient history")
			return
		}

		response.Success(c, http.StatusOK, gin.H{
			"patientRecords":  records,
			"analysisHistory": history,
		})
	}
}
