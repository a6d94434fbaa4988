package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("Should sample process gauges", func(t *testing.T) {
		sample := SampleMetrics(ctx, t.TempDir())
		assert.False(t, sample.CapturedAt.IsZero())
		assert.Positive(t, sample.HeapUsedBytes)
	})

	t.Run("Should return the newest samples oldest first", func(t *testing.T) {
		store := newTestStore(t)
		base := time.Now().UTC().Add(-time.Hour)
		for i := 0; i < 5; i++ {
			require.NoError(t, RecordMetrics(ctx, store, MetricSample{
				CapturedAt:    base.Add(time.Duration(i) * time.Minute),
				HeapUsedBytes: int64(i),
			}))
		}

		items, err := LatestMetrics(ctx, store, 3)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.EqualValues(t, 2, items[0].HeapUsedBytes)
		assert.EqualValues(t, 4, items[2].HeapUsedBytes)
	})

	t.Run("Should prune old samples", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, RecordMetrics(ctx, store, MetricSample{CapturedAt: time.Now().UTC().Add(-48 * time.Hour)}))
		require.NoError(t, RecordMetrics(ctx, store, MetricSample{CapturedAt: time.Now().UTC()}))

		removed, err := PruneMetrics(ctx, store, 24*time.Hour)
		require.NoError(t, err)
		assert.EqualValues(t, 1, removed)
	})

	t.Run("Should not block when nobody drains the hub", func(t *testing.T) {
		hub := NewMetricsHub()
		for i := 0; i < 100; i++ {
			hub.Broadcast(MetricSample{})
		}
		assert.Zero(t, hub.Len())
	})
}

type recordingNotifier struct {
	events []Event
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, ev Event) error {
	r.events = append(r.events, ev)
	return r.err
}

func TestNotifiers(t *testing.T) {
	t.Run("Should deliver to every notifier and join failures", func(t *testing.T) {
		ok := &recordingNotifier{}
		broken := &recordingNotifier{err: errors.New("broker down")}
		err := Notifiers{broken, ok}.Notify(context.Background(), Event{Type: EventQuestionCreated, Subject: "New question"})
		require.Error(t, err)
		require.Len(t, ok.events, 1)
		assert.False(t, ok.events[0].OccurredAt.IsZero())
	})

	t.Run("Should log notifications", func(t *testing.T) {
		var buf bytes.Buffer
		logger := charmlog.New(&buf)
		err := LogNotifier{Logger: logger}.Notify(context.Background(), Event{
			Type:  EventPasswordReset,
			Email: "alice@example.org",
			Link:  "http://localhost:5173/reset-password?token=abc",
		})
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "user.password_reset")
		assert.Contains(t, buf.String(), "token=abc")
	})
}

func TestDashboardStats(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_, err := RegisterUser(ctx, store, testTokens(), "a@example.org", "Secret123!", "A")
	require.NoError(t, err)
	_, err = FindOrCreateGuest(ctx, store, "g@example.org", "")
	require.NoError(t, err)

	stats, err := LoadDashboardStats(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Users)
	assert.Equal(t, 1, stats.GuestUsers)
	assert.Equal(t, 1, stats.PendingApproval)
	assert.Zero(t, stats.OpenQuestions)
}
