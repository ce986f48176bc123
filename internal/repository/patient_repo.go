package repository

import (
	"context"
	"errors"

	"cardiopredict/internal/models"

	"gorm.io/gorm"
)

type PatientRepository interface {
	Create(ctx context.Context, p *models.PatientData) error
	GetForUser(ctx context.Context, userID, id uint) (*models.PatientData, error)
	ListForUser(ctx context.Context, userID uint, limit int) ([]models.PatientData, error)
	SetAnalysisResults(ctx context.Context, userID, id uint, res models.PatientAnalysis) error
}

type patientRepository struct {
	db *gorm.DB
}

func NewPatientRepository(db *gorm.DB) PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Create(ctx context.Context, p *models.PatientData) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *patientRepository) GetForUser(ctx context.Context, userID, id uint) (*models.PatientData, error) {
	var p models.PatientData
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepository) ListForUser(ctx context.Context, userID uint, limit int) ([]models.PatientData, error) {
	var out []models.PatientData
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *patientRepository) SetAnalysisResults(ctx context.Context, userID, id uint, res models.PatientAnalysis) error {
	p, err := r.GetForUser(ctx, userID, id)
	if err != nil {
		return err
	}
	p.AnalysisResults = res
	return r.db.WithContext(ctx).Save(p).Error
}
