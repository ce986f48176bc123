package prediction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cardiopredict/internal/models"
	"cardiopredict/pkg/imaging"

	"go.uber.org/zap"
)

var ErrNoPatientData = errors.New("patient data required")

// Assessor scores a patient from the intake questionnaire alone.
type Assessor interface {
	Assess(ctx context.Context) (*imaging.Classification, error)
}

type Questionnaire struct {
	PatientDataID *uint
	PatientInfo   *models.PatientInfo
	AnalysisType  string
}

// QuestionnaireService runs the analysis that needs no ECG image. Unlike
// Predict, a record that cannot be saved fails the call: the stored record is
// the only product of this analysis.
type QuestionnaireService struct {
	assessor Assessor
	records  Recorder
	patients PatientLookup
	opts     Options
	log      *zap.Logger
	now      func() time.Time
}

func NewQuestionnaireService(assessor Assessor, records Recorder, patients PatientLookup, opts Options, log *zap.Logger) *QuestionnaireService {
	return &QuestionnaireService{
		assessor: assessor,
		records:  records,
		patients: patients,
		opts:     opts.withDefaults(),
		log:      log,
		now:      time.Now,
	}
}

func (s *QuestionnaireService) Analyze(ctx context.Context, userID uint, q Questionnaire) (*models.AnalysisRecord, error) {
	started := s.now()
	log := s.log.With(zap.Uint("user_id", userID))

	analysisType, err := resolveAnalysisType(q.AnalysisType)
	if err != nil {
		return nil, err
	}
	if q.PatientDataID == nil && q.PatientInfo == nil {
		return nil, ErrNoPatientData
	}
	if q.PatientDataID != nil {
		if _, err := lookupPatient(ctx, s.patients, userID, *q.PatientDataID); err != nil {
			return nil, err
		}
	}

	actx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	result, err := s.assessor.Assess(actx)
	cancel()
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, imaging.ErrClassifierTimeout
	}
	if err != nil {
		return nil, fmt.Errorf("assess questionnaire: %w", err)
	}
	if err := checkResult(result); err != nil {
		log.Warn("questionnaire assessment rejected", zap.Error(err))
		return nil, err
	}

	recs, alerts := Recommend(result.RiskLevel)
	ended := s.now()
	rec := &models.AnalysisRecord{
		UserID:           userID,
		PatientDataID:    q.PatientDataID,
		AnalysisType:     analysisType,
		FileCount:        0,
		ProcessingTimeMs: ended.Sub(started).Milliseconds(),
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
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}
	if q.PatientDataID != nil {
		attachResults(ctx, s.patients, log, userID, *q.PatientDataID, rec)
	}

	log.Info("questionnaire analysis completed",
		zap.Uint("analysis_id", rec.ID),
		zap.String("risk_level", rec.RiskLevel),
	)
	return rec, nil
}
