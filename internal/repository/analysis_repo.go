package repository

import (
	"context"
	"errors"

	"cardiopredict/internal/models"

	"gorm.io/gorm"
)

type Page struct {
	Limit int
	Skip  int
}

type AnalysisRepository interface {
	Create(ctx context.Context, r *models.AnalysisRecord) error
	GetForUser(ctx context.Context, userID, id uint) (*models.AnalysisRecord, error)
	ListForUser(ctx context.Context, userID uint, page Page) ([]models.AnalysisRecord, int64, error)
	DeleteForUser(ctx context.Context, userID, id uint) (*models.AnalysisRecord, error)
	UpdateFeedback(ctx context.Context, userID, id uint, fb FeedbackPatch) (*models.AnalysisRecord, error)
	CountByRiskLevel(ctx context.Context, userID uint) (map[string]int64, error)
}

// FeedbackPatch lists the feedback fields to overwrite. Nil fields keep their
// stored value.
type FeedbackPatch struct {
	Rating    *int
	Comments  *string
	IsHelpful *bool
}

type analysisRepository struct {
	db *gorm.DB
}

func NewAnalysisRepository(db *gorm.DB) AnalysisRepository {
	return &analysisRepository{db: db}
}

func (r *analysisRepository) Create(ctx context.Context, rec *models.AnalysisRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *analysisRepository) GetForUser(ctx context.Context, userID, id uint) (*models.AnalysisRecord, error) {
	var rec models.AnalysisRecord
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *analysisRepository) ListForUser(ctx context.Context, userID uint, page Page) ([]models.AnalysisRecord, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.AnalysisRecord{}).
		Where("user_id = ?", userID).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recs []models.AnalysisRecord
	err := q.Order("created_at DESC").Order("id DESC").
		Limit(page.Limit).Offset(page.Skip).
		Find(&recs).Error
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

func (r *analysisRepository) DeleteForUser(ctx context.Context, userID, id uint) (*models.AnalysisRecord, error) {
	var deleted *models.AnalysisRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.AnalysisRecord
		err := tx.Where("id = ? AND user_id = ?", id, userID).First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(&rec).Error; err != nil {
			return err
		}
		deleted = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (r *analysisRepository) UpdateFeedback(ctx context.Context, userID, id uint, fb FeedbackPatch) (*models.AnalysisRecord, error) {
	set := map[string]any{}
	if fb.Rating != nil {
		set["feedback_rating"] = *fb.Rating
	}
	if fb.Comments != nil {
		set["feedback_comments"] = *fb.Comments
	}
	if fb.IsHelpful != nil {
		set["feedback_is_helpful"] = *fb.IsHelpful
	}
	if len(set) == 0 {
		return r.GetForUser(ctx, userID, id)
	}

	res := r.db.WithContext(ctx).Model(&models.AnalysisRecord{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(set)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetForUser(ctx, userID, id)
}

func (r *analysisRepository) CountByRiskLevel(ctx context.Context, userID uint) (map[string]int64, error) {
	var rows []struct {
		RiskLevel string
		Count     int64
	}
	err := r.db.WithContext(ctx).Model(&models.AnalysisRecord{}).
		Select("risk_level, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("risk_level").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := map[string]int64{models.RiskLow: 0, models.RiskModerate: 0, models.RiskHigh: 0}
	for _, row := range rows {
		counts[row.RiskLevel] = row.Count
	}
	return counts, nil
}
