package chat

import (
	"context"
	"strings"
	"sync"
	"testing"

	"cardiopredict/internal/models"
	"cardiopredict/internal/repository"
	"cardiopredict/internal/testhelper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	repo := repository.NewChatRepository(testhelper.NewDB(t))
	return NewService(repo, NewResponderWithPicker(func(int) int { return 0 }), zap.NewNop())
}

func TestService_StartSeedsGreeting(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	s, err := svc.Start(ctx, 1, "Dana")
	require.NoError(t, err)
	assert.True(t, s.IsActive)
	assert.NotEmpty(t, s.SessionID)

	got, err := svc.Get(ctx, 1, s.SessionID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	seed := got.Messages[0]
	assert.Equal(t, models.SenderBot, seed.Sender)
	assert.Equal(t, models.MessageSystem, seed.MessageType)
	assert.Equal(t, "Hello Dana! I'm CardioCare AI, your intelligent health assistant. How can I help you today?", seed.Text)
}

func TestService_SendAppendsUserThenBot(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	s, err := svc.Start(ctx, 1, "Dana")
	require.NoError(t, err)

	msgs, err := svc.Send(ctx, 1, s.SessionID, "What about my blood pressure BP readings?", "", "Dana")
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, models.SenderUser, msgs[0].Sender)
	assert.Equal(t, models.MessageText, msgs[0].MessageType)
	assert.Equal(t, 2, msgs[0].Seq)

	assert.Equal(t, models.SenderBot, msgs[1].Sender)
	assert.Equal(t, "blood_pressure", msgs[1].Intent)
	require.NotNil(t, msgs[1].Confidence)
	assert.Equal(t, 0.92, *msgs[1].Confidence)
	assert.Equal(t, 3, msgs[1].Seq)
	assert.True(t, msgs[1].Timestamp.After(msgs[0].Timestamp))

	got, err := svc.Get(ctx, 1, s.SessionID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 3)
}

func TestService_EndedSessionRejectsMessages(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	s, err := svc.Start(ctx, 1, "Dana")
	require.NoError(t, err)
	require.NoError(t, svc.End(ctx, 1, s.SessionID))

	_, err = svc.Send(ctx, 1, s.SessionID, "hello", "", "Dana")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.End(ctx, 1, s.SessionID), ErrSessionNotFound)

	got, err := svc.Get(ctx, 1, s.SessionID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.NotNil(t, got.EndedAt)
	assert.Len(t, got.Messages, 1)
}

func TestService_ForeignAndMissingSessions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	s, err := svc.Start(ctx, 1, "Dana")
	require.NoError(t, err)

	_, err = svc.Send(ctx, 2, s.SessionID, "hello", "", "Eve")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Get(ctx, 2, s.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, 2, s.SessionID), ErrSessionNotFound)
	_, err = svc.Send(ctx, 1, "missing", "hello", "", "Dana")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Send(ctx, 1, s.SessionID, "", "", "Dana")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = svc.Send(ctx, 1, s.SessionID, " \t\n ", "", "Dana")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	msgs, err := svc.Send(ctx, 1, s.SessionID, "  hello there  ", "", "Dana")
	require.NoError(t, err)
	assert.Equal(t, "hello there", msgs[0].Text)

	require.NoError(t, svc.Delete(ctx, 1, s.SessionID))
	_, err = svc.Get(ctx, 1, s.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestService_ConcurrentSendsStayContiguous(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	s, err := svc.Start(ctx, 1, "Dana")
	require.NoError(t, err)

	const turns = 10
	var wg sync.WaitGroup
	errs := make([]error, turns)
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Send(ctx, 1, s.SessionID, "tell me about diet", "", "Dana")
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	got, err := svc.Get(ctx, 1, s.SessionID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1+2*turns)
	for i, m := range got.Messages {
		assert.Equal(t, i+1, m.Seq)
		if i == 0 {
			continue
		}
		assert.True(t, m.Timestamp.After(got.Messages[i-1].Timestamp))
		want := models.SenderUser
		if i%2 == 0 {
			want = models.SenderBot
		}
		assert.Equal(t, want, m.Sender, "turns must not interleave")
	}
	assert.Empty(t, svc.locks.locks)
}

func TestService_ListSummaries(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	fresh, err := svc.Start(ctx, 1, "Dana")
	require.NoError(t, err)

	talked, err := svc.Start(ctx, 1, "Dana")
	require.NoError(t, err)
	long := strings.Repeat("é", 150)
	_, err = svc.Send(ctx, 1, talked.SessionID, long, "", "Dana")
	require.NoError(t, err)

	_, err = svc.Start(ctx, 2, "Eve")
	require.NoError(t, err)

	list, total, err := svc.List(ctx, 1, repository.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, list, 2)

	byID := map[string]Summary{}
	for _, s := range list {
		byID[s.SessionID] = s
	}

	assert.Equal(t, "New conversation", byID[fresh.SessionID].Summary)
	assert.Equal(t, 1, byID[fresh.SessionID].MessageCount)

	sum := byID[talked.SessionID]
	assert.Equal(t, 3, sum.MessageCount)
	assert.Equal(t, strings.Repeat("é", 100)+"...", sum.Summary)
	require.NotNil(t, sum.LastMessage)
	assert.Equal(t, models.SenderBot, sum.LastMessage.Sender)
}
