// Package prediction runs one uploaded ECG image through the classifier and
// records the outcome for the caller.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"slices"
	"strings"
	"time"

	"cardiopredict/internal/models"
	"cardiopredict/internal/repository"
	"cardiopredict/internal/storage"
	"cardiopredict/pkg/imaging"

	"go.uber.org/zap"
)

const (
	defaultMaxBytes     = 10 << 20
	defaultTimeout      = 30 * time.Second
	defaultModelVersion = "1.0.0"
)

type Recorder interface {
	Create(ctx context.Context, r *models.AnalysisRecord) error
}

// PatientLookup resolves a caller's intake record and stores the latest
// analysis summary on it.
type PatientLookup interface {
	GetForUser(ctx context.Context, userID, id uint) (*models.PatientData, error)
	SetAnalysisResults(ctx context.Context, userID, id uint, res models.PatientAnalysis) error
}

// Archiver keeps a durable copy of the staged image. Optional.
type Archiver interface {
	UploadFile(ctx context.Context, objectName, filePath, contentType string) (string, error)
}

type Options struct {
	MaxBytes      int64
	AcceptedTypes []string
	ModelVersion  string
	Timeout       time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxBytes <= 0 {
		o.MaxBytes = defaultMaxBytes
	}
	if len(o.AcceptedTypes) == 0 {
		o.AcceptedTypes = []string{"image/png"}
	}
	if o.ModelVersion == "" {
		o.ModelVersion = defaultModelVersion
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return o
}

type Upload struct {
	File          *multipart.FileHeader
	PatientDataID *uint
	AnalysisType  string
}

type Outcome struct {
	Record    models.AnalysisRecord
	Persisted bool
	Archived  bool
}

type Service struct {
	classifier imaging.Classifier
	records    Recorder
	patients   PatientLookup
	stager     *storage.Stager
	archiver   Archiver
	opts       Options
	log        *zap.Logger
	now        func() time.Time
}

// NewService wires the pipeline. archiver may be nil to disable archiving.
func NewService(
	classifier imaging.Classifier,
	records Recorder,
	patients PatientLookup,
	stager *storage.Stager,
	archiver Archiver,
	opts Options,
	log *zap.Logger,
) *Service {
	return &Service{
		classifier: classifier,
		records:    records,
		patients:   patients,
		stager:     stager,
		archiver:   archiver,
		opts:       opts.withDefaults(),
		log:        log,
		now:        time.Now,
	}
}

func (s *Service) MaxBytes() int64 {
	return s.opts.MaxBytes
}

// Predict validates the upload, stages it, classifies it and records the
// result. The staged copy is gone by the time Predict returns, whatever the
// outcome. Failing to archive or persist is logged and does not fail the call.
func (s *Service) Predict(ctx context.Context, userID uint, up Upload) (*Outcome, error) {
	started := s.now()
	log := s.log.With(zap.Uint("user_id", userID))

	analysisType, err := s.validate(ctx, userID, up)
	if err != nil {
		return nil, err
	}

	src, err := up.File.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	sniffed, err := imaging.DetectContentType(src)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if !s.accepts(sniffed) {
		return nil, fmt.Errorf("%w: content is %s", ErrUnsupportedType, sniffed)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}

	path, err := s.stager.Stage(src, up.File.Filename)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := s.stager.Remove(path); err != nil {
			log.Error("failed to remove staged file", zap.String("path", path), zap.Error(err))
		}
	}()

	result, classifyTime, err := s.classify(ctx, path)
	if err != nil {
		var exitErr *imaging.ExitError
		switch {
		case errors.As(err, &exitErr):
			log.Error("classifier exited with error", zap.Int("code", exitErr.Code), zap.String("stderr", exitErr.Stderr))
		case errors.Is(err, imaging.ErrClassifierTimeout):
			log.Warn("classifier timed out", zap.Duration("timeout", s.opts.Timeout))
		default:
			log.Error("classification failed", zap.Error(err))
		}
		return nil, err
	}
	if err := checkResult(result); err != nil {
		var failed *ClassifierFailedError
		if errors.As(err, &failed) {
			log.Warn("classifier reported failure", zap.String("error", failed.Message))
		} else {
			log.Error("classifier returned an invalid result", zap.Error(err))
		}
		return nil, err
	}

	out := &Outcome{}
	var objectName string
	if s.archiver != nil {
		name := storage.GenerateObjectName(userID, up.File.Filename)
		if _, err := s.archiver.UploadFile(ctx, name, path, sniffed); err != nil {
			log.Warn("failed to archive image", zap.Error(err))
		} else {
			objectName = name
			out.Archived = true
		}
	}

	recs, alerts := Recommend(result.RiskLevel)
	ended := s.now()
	out.Record = models.AnalysisRecord{
		UserID:           userID,
		PatientDataID:    up.PatientDataID,
		AnalysisType:     analysisType,
		FileName:         up.File.Filename,
		FileSize:         up.File.Size,
		FileCount:        1,
		ProcessingTimeMs: classifyTime.Milliseconds(),
		ImageObject:      objectName,
		RiskScore:        *result.RiskScore,
		RiskLevel:        result.RiskLevel,
		Confidence:       *result.Confidence,
		PredictedClass:   result.PredictedClass,
		Probabilities:    result.Probabilities,
		Recommendations:  recs,
		Alerts:           alerts,
		ModelVersion:     s.opts.ModelVersion,
		StartedAt:        started,
		EndedAt:          ended,
		DurationMs:       ended.Sub(started).Milliseconds(),
		CreatedAt:        ended,
	}

	if err := s.records.Create(ctx, &out.Record); err != nil {
		log.Error("failed to persist analysis record", zap.Error(err))
		out.Record.ID = 0
	} else {
		out.Persisted = true
	}
	if up.PatientDataID != nil {
		attachResults(ctx, s.patients, log, userID, *up.PatientDataID, &out.Record)
	}

	log.Info("prediction completed",
		zap.Uint("analysis_id", out.Record.ID),
		zap.String("risk_level", out.Record.RiskLevel),
		zap.Int64("duration_ms", out.Record.DurationMs),
	)
	return out, nil
}

func (s *Service) validate(ctx context.Context, userID uint, up Upload) (string, error) {
	if up.File == nil {
		return "", ErrNoFile
	}
	if up.File.Size == 0 {
		return "", ErrEmptyFile
	}
	if up.File.Size > s.opts.MaxBytes {
		return "", ErrFileTooLarge
	}

	declared, _, err := mime.ParseMediaType(up.File.Header.Get("Content-Type"))
	if err != nil || !s.accepts(declared) {
		return "", fmt.Errorf("%w: declared %q", ErrUnsupportedType, up.File.Header.Get("Content-Type"))
	}

	analysisType, err := resolveAnalysisType(up.AnalysisType)
	if err != nil {
		return "", err
	}

	if up.PatientDataID != nil {
		if _, err := lookupPatient(ctx, s.patients, userID, *up.PatientDataID); err != nil {
			return "", err
		}
	}
	return analysisType, nil
}

func resolveAnalysisType(t string) (string, error) {
	switch t {
	case "":
		return models.AnalysisHeartHealth, nil
	case models.AnalysisHeartHealth, models.AnalysisRiskAssessment, models.AnalysisComprehensive:
		return t, nil
	}
	return "", ErrInvalidAnalysisType
}

func lookupPatient(ctx context.Context, patients PatientLookup, userID, id uint) (*models.PatientData, error) {
	p, err := patients.GetForUser(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("look up patient data: %w", err)
	}
	return p, nil
}

// checkResult enforces the record invariants on whatever the classifier
// returned: a reported failure becomes ClassifierFailedError, and a success
// missing its score or confidence, or carrying values out of range, is
// malformed.
func checkResult(result *imaging.Classification) error {
	if result == nil {
		return fmt.Errorf("%w: empty result", imaging.ErrMalformedOutput)
	}
	if !result.Success {
		return &ClassifierFailedError{Message: result.Error}
	}
	switch {
	case result.RiskScore == nil || result.Confidence == nil:
		return fmt.Errorf("%w: risk score and confidence are required", imaging.ErrMalformedOutput)
	case *result.RiskScore < 0 || *result.RiskScore > 100:
		return fmt.Errorf("%w: risk score %d out of range", imaging.ErrMalformedOutput, *result.RiskScore)
	case *result.Confidence < 0 || *result.Confidence > 100:
		return fmt.Errorf("%w: confidence %.2f out of range", imaging.ErrMalformedOutput, *result.Confidence)
	case !models.ValidRiskLevel(result.RiskLevel):
		return fmt.Errorf("%w: unknown risk level %q", imaging.ErrMalformedOutput, result.RiskLevel)
	}
	return nil
}

// attachResults copies the outcome onto the intake record it was run for.
// Failure is logged only; the analysis itself already succeeded.
func attachResults(ctx context.Context, patients PatientLookup, log *zap.Logger, userID, patientID uint, rec *models.AnalysisRecord) {
	date := rec.EndedAt
	score, confidence := rec.RiskScore, rec.Confidence
	err := patients.SetAnalysisResults(ctx, userID, patientID, models.PatientAnalysis{
		RiskScore:       &score,
		RiskLevel:       rec.RiskLevel,
		Confidence:      &confidence,
		Recommendations: rec.Recommendations,
		AnalysisDate:    &date,
	})
	if err != nil {
		log.Warn("failed to update patient analysis results", zap.Uint("patient_data_id", patientID), zap.Error(err))
	}
}

func (s *Service) classify(ctx context.Context, path string) (*imaging.Classification, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	begin := s.now()
	result, err := s.classifier.Classify(ctx, path)
	return result, s.now().Sub(begin), err
}

func (s *Service) accepts(mediaType string) bool {
	return slices.Contains(s.opts.AcceptedTypes, strings.ToLower(mediaType))
}
