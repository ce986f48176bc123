package repository

import (
	"context"
	"errors"
	"time"

	"cardiopredict/internal/models"

	"gorm.io/gorm"
)

type ChatRepository interface {
	CreateSession(ctx context.Context, s *models.ChatSession) error
	GetForUser(ctx context.Context, userID uint, sessionID string) (*models.ChatSession, error)
	ListForUser(ctx context.Context, userID uint, page Page) ([]models.ChatSession, int64, error)
	AppendMessages(ctx context.Context, userID uint, sessionID string, msgs []*models.ChatMessage) error
	EndSession(ctx context.Context, userID uint, sessionID string, at time.Time) error
	DeleteForUser(ctx context.Context, userID uint, sessionID string) error
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateSession(ctx context.Context, s *models.ChatSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *chatRepository) GetForUser(ctx context.Context, userID uint, sessionID string) (*models.ChatSession, error) {
	var s models.ChatSession
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *chatRepository) ListForUser(ctx context.Context, userID uint, page Page) ([]models.ChatSession, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.ChatSession{}).
		Where("user_id = ?", userID).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sessions []models.ChatSession
	err := q.Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Order("started_at DESC").Order("id DESC").
		Limit(page.Limit).Offset(page.Skip).
		Find(&sessions).Error
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// AppendMessages adds msgs to an active session owned by userID. Sequence
// numbers continue from the last stored message and timestamps are nudged
// forward so they stay strictly increasing.
func (r *chatRepository) AppendMessages(ctx context.Context, userID uint, sessionID string, msgs []*models.ChatMessage) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s models.ChatSession
		err := tx.Where("session_id = ? AND user_id = ? AND is_active = ?", sessionID, userID, true).First(&s).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var last models.ChatMessage
		seq, prev := 0, time.Time{}
		err = tx.Where("chat_session_id = ?", s.ID).Order("seq DESC").First(&last).Error
		switch {
		case err == nil:
			seq, prev = last.Seq, last.Timestamp
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		for _, m := range msgs {
			seq++
			m.ChatSessionID = s.ID
			m.Seq = seq
			if !m.Timestamp.After(prev) {
				m.Timestamp = prev.Add(time.Microsecond)
			}
			prev = m.Timestamp
		}

		if err := tx.Create(msgs).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrConflict
			}
			return err
		}
		return tx.Model(&s).Update("updated_at", prev).Error
	})
	return err
}

func (r *chatRepository) EndSession(ctx context.Context, userID uint, sessionID string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.ChatSession{}).
		Where("session_id = ? AND user_id = ? AND is_active = ?", sessionID, userID, true).
		Updates(map[string]any{"is_active": false, "ended_at": at, "updated_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *chatRepository) DeleteForUser(ctx context.Context, userID uint, sessionID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s models.ChatSession
		err := tx.Where("session_id = ? AND user_id = ?", sessionID, userID).First(&s).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.Where("chat_session_id = ?", s.ID).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&s).Error
	})
}
