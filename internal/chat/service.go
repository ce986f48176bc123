// Package chat keeps per-user assistant conversations and produces the
// assistant's replies.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"cardiopredict/internal/models"
	"cardiopredict/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound  = errors.New("chat session not found")
	ErrConcurrentUpdate = errors.New("chat session was updated concurrently")
	ErrEmptyMessage     = errors.New("message text is required")
)

const (
	summaryRunes    = 100
	newConversation = "New conversation"
)

type Store interface {
	CreateSession(ctx context.Context, s *models.ChatSession) error
	GetForUser(ctx context.Context, userID uint, sessionID string) (*models.ChatSession, error)
	ListForUser(ctx context.Context, userID uint, page repository.Page) ([]models.ChatSession, int64, error)
	AppendMessages(ctx context.Context, userID uint, sessionID string, msgs []*models.ChatMessage) error
	EndSession(ctx context.Context, userID uint, sessionID string, at time.Time) error
	DeleteForUser(ctx context.Context, userID uint, sessionID string) error
}

type Summary struct {
	SessionID      string              `json:"sessionId"`
	SessionStarted time.Time           `json:"sessionStarted"`
	SessionEnded   *time.Time          `json:"sessionEnded,omitempty"`
	IsActive       bool                `json:"isActive"`
	MessageCount   int                 `json:"messageCount"`
	LastMessage    *models.ChatMessage `json:"lastMessage,omitempty"`
	Summary        string              `json:"summary"`
}

type Service struct {
	store     Store
	responder *Responder
	locks     *keyedMutex
	log       *zap.Logger
	now       func() time.Time
}

func NewService(store Store, responder *Responder, log *zap.Logger) *Service {
	return &Service{
		store:     store,
		responder: responder,
		locks:     newKeyedMutex(),
		log:       log,
		now:       time.Now,
	}
}

// Start opens a session seeded with a single greeting from the assistant.
func (s *Service) Start(ctx context.Context, userID uint, displayName string) (*models.ChatSession, error) {
	now := s.now()
	session := &models.ChatSession{
		SessionID: uuid.NewString(),
		UserID:    userID,
		StartedAt: now,
		IsActive:  true,
		Messages: []models.ChatMessage{{
			Seq:         1,
			Sender:      models.SenderBot,
			Text:        fmt.Sprintf("Hello %s! I'm CardioCare AI, your intelligent health assistant. How can I help you today?", displayName),
			MessageType: models.MessageSystem,
			Timestamp:   now,
		}},
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create chat session: %w", err)
	}

	s.log.Info("chat session started", zap.Uint("user_id", userID), zap.String("session_id", session.SessionID))
	return session, nil
}

// Send appends the user's message and the assistant's reply as one turn and
// returns both. Turns on the same session are serialized. Surrounding
// whitespace is trimmed before the text is stored.
func (s *Service) Send(ctx context.Context, userID uint, sessionID, text, messageType, displayName string) ([]models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if messageType == "" {
		messageType = models.MessageText
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	reply := s.responder.Respond(text, displayName)
	confidence := reply.Confidence
	now := s.now()
	pair := []*models.ChatMessage{
		{
			Sender:      models.SenderUser,
			Text:        text,
			MessageType: messageType,
			Timestamp:   now,
		},
		{
			Sender:      models.SenderBot,
			Text:        reply.Text,
			MessageType: models.MessageText,
			Intent:      reply.Intent,
			Confidence:  &confidence,
			Timestamp:   s.now(),
		},
	}

	if err := s.store.AppendMessages(ctx, userID, sessionID, pair); err != nil {
		return nil, s.mapErr(err)
	}

	s.log.Debug("chat turn stored",
		zap.String("session_id", sessionID),
		zap.String("intent", reply.Intent),
		zap.Int("seq", pair[1].Seq),
	)
	return []models.ChatMessage{*pair[0], *pair[1]}, nil
}

func (s *Service) End(ctx context.Context, userID uint, sessionID string) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	if err := s.store.EndSession(ctx, userID, sessionID, s.now()); err != nil {
		return s.mapErr(err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, userID uint, sessionID string) (*models.ChatSession, error) {
	session, err := s.store.GetForUser(ctx, userID, sessionID)
	if err != nil {
		return nil, s.mapErr(err)
	}
	return session, nil
}

func (s *Service) List(ctx context.Context, userID uint, page repository.Page) ([]Summary, int64, error) {
	sessions, total, err := s.store.ListForUser(ctx, userID, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list chat sessions: %w", err)
	}

	out := make([]Summary, 0, len(sessions))
	for _, cs := range sessions {
		out = append(out, summarize(cs))
	}
	return out, total, nil
}

func (s *Service) Delete(ctx context.Context, userID uint, sessionID string) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	if err := s.store.DeleteForUser(ctx, userID, sessionID); err != nil {
		return s.mapErr(err)
	}
	return nil
}

func (s *Service) mapErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrSessionNotFound
	case errors.Is(err, repository.ErrConflict):
		return ErrConcurrentUpdate
	default:
		return err
	}
}

// summarize previews the first message after the greeting.
func summarize(cs models.ChatSession) Summary {
	sum := Summary{
		SessionID:      cs.SessionID,
		SessionStarted: cs.StartedAt,
		SessionEnded:   cs.EndedAt,
		IsActive:       cs.IsActive,
		MessageCount:   len(cs.Messages),
		Summary:        newConversation,
	}
	if n := len(cs.Messages); n > 0 {
		last := cs.Messages[n-1]
		sum.LastMessage = &last
	}
	if len(cs.Messages) > 1 {
		text := cs.Messages[1].Text
		if utf8.RuneCountInString(text) > summaryRunes {
			text = string([]rune(text)[:summaryRunes])
		}
		sum.Summary = text + "..."
	}
	return sum
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock blocks until key is free and returns its unlock func. Entries are
// dropped once nobody holds or waits for them.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
