package prediction

import (
	"context"
	"errors"
	"testing"
	"time"

	"cardiopredict/internal/models"
	"cardiopredict/pkg/imaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type assessFunc func(ctx context.Context) (*imaging.Classification, error)

func (f assessFunc) Assess(ctx context.Context) (*imaging.Classification, error) {
	return f(ctx)
}

func fixedAssessment(score int, level string) assessFunc {
	return func(context.Context) (*imaging.Classification, error) {
		return successResult(score, level), nil
	}
}

func sampleInfo() *models.PatientInfo {
	return &models.PatientInfo{
		Name:                   "Dana",
		Age:                    58,
		Gender:                 "female",
		BloodPressureSystolic:  150,
		BloodPressureDiastolic: 95,
		BloodSugar:             130,
		ChestPain:              "atypical",
	}
}

func TestAnalyze_WritesRecordAndPatientResults(t *testing.T) {
	recorder := &fakeRecorder{}
	patients := newFakePatients(map[uint]uint{7: 1})
	svc := NewQuestionnaireService(fixedAssessment(88, models.RiskHigh), recorder, patients, Options{}, zap.NewNop())

	pid := uint(7)
	rec, err := svc.Analyze(context.Background(), 1, Questionnaire{PatientDataID: &pid})
	require.NoError(t, err)

	assert.Equal(t, uint(1), rec.ID)
	assert.Equal(t, &pid, rec.PatientDataID)
	assert.Zero(t, rec.FileCount)
	assert.Equal(t, models.AnalysisHeartHealth, rec.AnalysisType)
	assert.Equal(t, highRisk, rec.Recommendations)
	assert.Equal(t, []string{highRiskAlert}, rec.Alerts)
	require.Len(t, recorder.records, 1)

	attached := patients.results[pid]
	require.NotNil(t, attached.RiskScore)
	assert.Equal(t, 88, *attached.RiskScore)
	assert.Equal(t, models.RiskHigh, attached.RiskLevel)
}

func TestAnalyze_InfoOnly(t *testing.T) {
	recorder := &fakeRecorder{}
	patients := newFakePatients(nil)
	svc := NewQuestionnaireService(fixedAssessment(12, models.RiskLow), recorder, patients, Options{}, zap.NewNop())

	rec, err := svc.Analyze(context.Background(), 3, Questionnaire{PatientInfo: sampleInfo(), AnalysisType: models.AnalysisRiskAssessment})
	require.NoError(t, err)
	assert.Nil(t, rec.PatientDataID)
	assert.Equal(t, models.AnalysisRiskAssessment, rec.AnalysisType)
	assert.Empty(t, rec.Alerts)
	assert.Empty(t, patients.results)
}

func TestAnalyze_Rejections(t *testing.T) {
	foreign := uint(9)
	tests := []struct {
		name    string
		assess  assessFunc
		q       Questionnaire
		wantErr error
	}{
		{
			name:    "nothing to analyze",
			q:       Questionnaire{},
			wantErr: ErrNoPatientData,
		},
		{
			name:    "foreign patient data",
			q:       Questionnaire{PatientDataID: &foreign},
			wantErr: ErrPatientNotFound,
		},
		{
			name:    "unknown analysis type",
			q:       Questionnaire{PatientInfo: sampleInfo(), AnalysisType: "astrology"},
			wantErr: ErrInvalidAnalysisType,
		},
		{
			name:    "out of range result",
			assess:  fixedAssessment(101, models.RiskHigh),
			q:       Questionnaire{PatientInfo: sampleInfo()},
			wantErr: imaging.ErrMalformedOutput,
		},
		{
			name: "assessment timed out",
			assess: func(ctx context.Context) (*imaging.Classification, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			q:       Questionnaire{PatientInfo: sampleInfo()},
			wantErr: imaging.ErrClassifierTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assess := tt.assess
			if assess == nil {
				assess = fixedAssessment(50, models.RiskModerate)
			}
			recorder := &fakeRecorder{}
			patients := newFakePatients(map[uint]uint{9: 2})
			svc := NewQuestionnaireService(assess, recorder, patients, Options{Timeout: 20 * time.Millisecond}, zap.NewNop())

			_, err := svc.Analyze(context.Background(), 1, tt.q)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, recorder.records)
			assert.Empty(t, patients.results)
		})
	}
}

func TestAnalyze_SaveFailureFails(t *testing.T) {
	recorder := &fakeRecorder{err: errors.New("disk full")}
	svc := NewQuestionnaireService(fixedAssessment(50, models.RiskModerate), recorder, newFakePatients(nil), Options{}, zap.NewNop())

	_, err := svc.Analyze(context.Background(), 1, Questionnaire{PatientInfo: sampleInfo()})
	assert.ErrorContains(t, err, "disk full")
}
