package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"cardiopredict/internal/prediction"
	"cardiopredict/internal/response"
	"cardiopredict/pkg/imaging"

	"github.com/gin-gonic/gin"
)

// multipartOverhead is the room left for boundaries and form fields on top of
// the file size limit.
const multipartOverhead = 1 << 20

type PredictionData struct {
	AnalysisID      uint               `json:"analysisId,omitempty"`
	RiskScore       int                `json:"riskScore"`
	RiskLevel       string             `json:"riskLevel"`
	Confidence      float64            `json:"confidence"`
	PredictedClass  string             `json:"predictedClass"`
	Probabilities   map[string]float64 `json:"probabilities"`
	FileName        string             `json:"fileName"`
	AnalysisDate    time.Time          `json:"analysisDate"`
	Recommendations []string           `json:"recommendations"`
	Alerts          []string           `json:"alerts,omitempty"`
}

// Predict handles a multipart upload with the image in the "image" field and
// optional patientDataId and analysisType form values.
func Predict(svc *prediction.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUser(c)
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, svc.MaxBytes()+multipartOverhead)

		var upload prediction.Upload
		file, err := c.FormFile("image")
		switch {
		case err == nil:
			upload.File = file
		case errors.Is(err, http.ErrMissingFile):
		default:
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(c, http.StatusRequestEntityTooLarge, "File too large")
				return
			}
			response.ErrorWithDetails(c, http.StatusBadRequest, "Invalid upload", err.Error())
			return
		}

		upload.AnalysisType = c.PostForm("analysisType")
		if raw := c.PostForm("patientDataId"); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || id == 0 {
				response.Error(c, http.StatusBadRequest, "Invalid patientDataId")
				return
			}
			pid := uint(id)
			upload.PatientDataID = &pid
		}

		out, err := svc.Predict(c.Request.Context(), userID, upload)
		if err != nil {
			writePredictError(c, err)
			return
		}

		rec := out.Record
		response.JSON(c, http.StatusOK, gin.H{
			"message": "Prediction completed successfully",
			"data": PredictionData{
				AnalysisID:      rec.ID,
				RiskScore:       rec.RiskScore,
				RiskLevel:       rec.RiskLevel,
				Confidence:      rec.Confidence,
				PredictedClass:  rec.PredictedClass,
				Probabilities:   rec.Probabilities,
				FileName:        rec.FileName,
				AnalysisDate:    rec.EndedAt.UTC(),
				Recommendations: rec.Recommendations,
				Alerts:          rec.Alerts,
			},
		})
	}
}

func writePredictError(c *gin.Context, err error) {
	var (
		exitErr   *imaging.ExitError
		failedErr *prediction.ClassifierFailedError
	)

	switch {
	case errors.Is(err, prediction.ErrNoFile):
		response.Error(c, http.StatusBadRequest, "No image file provided")
	case errors.Is(err, prediction.ErrEmptyFile):
		response.Error(c, http.StatusBadRequest, "Uploaded file is empty")
	case errors.Is(err, prediction.ErrUnsupportedType):
		response.ErrorWithDetails(c, http.StatusBadRequest, "Unsupported file type", err.Error())
	case errors.Is(err, prediction.ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, "File too large")
	case errors.Is(err, prediction.ErrInvalidAnalysisType):
		response.Error(c, http.StatusBadRequest, "Invalid analysis type")
	case errors.Is(err, prediction.ErrPatientNotFound):
		response.Error(c, http.StatusNotFound, "Patient data not found")
	case errors.Is(err, imaging.ErrClassifierTimeout):
		response.Error(c, http.StatusGatewayTimeout, "Prediction timed out")
	case errors.As(err, &exitErr):
		response.ErrorWithDetails(c, http.StatusInternalServerError, "Prediction process failed", exitErr.Error())
	case errors.Is(err, imaging.ErrMalformedOutput):
		response.ErrorWithDetails(c, http.StatusInternalServerError, "Failed to parse prediction output", err.Error())
	case errors.As(err, &failedErr):
		response.Error(c, http.StatusInternalServerError, failedErr.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "Prediction failed")
	}
}
