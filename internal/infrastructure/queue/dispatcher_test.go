package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fourseasons/crowdfunding-api/internal/core/domain"
	"github.com/fourseasons/crowdfunding-api/internal/pkg/metrics"
)

type recordingRepo struct {
	mu     sync.Mutex
	events []domain.ActivityEvent
	fail   bool
	block  chan struct{}
}

func (r *recordingRepo) Insert(_ context.Context, e *domain.ActivityEvent) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("mongo down")
	}
	r.events = append(r.events, *e)
	return nil
}

func (r *recordingRepo) snapshot() []domain.ActivityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ActivityEvent(nil), r.events...)
}

func event(subject string, seq int) domain.ActivityEvent {
	return domain.ActivityEvent{
		ID:        fmt.Sprintf("%s-%d", subject, seq),
		Type:      domain.ActivityLoginFailed,
		SubjectID: subject,
	}
}

func TestActivityDispatcher_PersistsInOrderPerSubject(t *testing.T) {
	repo := &recordingRepo{}
	d := NewActivityDispatcher(3, repo, zerolog.Nop())
	d.Start()

	subjects := []string{"acc-1", "acc-2", "proj-9"}
	for i := 0; i < 20; i++ {
		for _, s := range subjects {
			d.Publish(event(s, i))
		}
	}
	require.NoError(t, d.Stop(context.Background()))

	got := repo.snapshot()
	require.Len(t, got, 60)

	next := map[string]int{}
	for _, e := range got {
		assert.Equal(t, fmt.Sprintf("%s-%d", e.SubjectID, next[e.SubjectID]), e.ID)
		next[e.SubjectID]++
	}
}

func TestActivityDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewActivityDispatcher(8, &recordingRepo{}, zerolog.Nop())
	for _, s := range []string{"", "a", "acc-1", "0a2f1f0e-8a5d-4c39-a5c2-51c6f7bd7d1e"} {
		idx := d.shardIndex(s)
		assert.Equal(t, idx, d.shardIndex(s))
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 8)
	}
}

func TestActivityDispatcher_DropsWhenFull(t *testing.T) {
	repo := &recordingRepo{block: make(chan struct{})}
	d := NewActivityDispatcher(1, repo, zerolog.Nop())
	d.Start()

	before := testutil.ToFloat64(metrics.ActivityDroppedTotal)

	// One event is held by the blocked worker; the buffer takes channelBuffer more.
	total := channelBuffer + 10
	for i := 0; i < total; i++ {
		d.Publish(event("acc-1", i))
		if i == 0 {
			require.Eventually(t, func() bool { return len(d.workers[0]) == 0 }, time.Second, time.Millisecond)
		}
	}

	dropped := testutil.ToFloat64(metrics.ActivityDroppedTotal) - before
	assert.Equal(t, float64(total-1-channelBuffer), dropped)

	close(repo.block)
	require.NoError(t, d.Stop(context.Background()))
	assert.Len(t, repo.snapshot(), 1+channelBuffer)
}

func TestActivityDispatcher_CountsPersistenceErrors(t *testing.T) {
	repo := &recordingRepo{fail: true}
	d := NewActivityDispatcher(2, repo, zerolog.Nop())
	d.Start()

	before := testutil.ToFloat64(metrics.ActivityErrorsTotal)
	d.Publish(event("acc-1", 0))
	d.Publish(event("acc-2", 0))
	require.NoError(t, d.Stop(context.Background()))

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.ActivityErrorsTotal)-before)
}

func TestActivityDispatcher_PublishAfterStopIsDropped(t *testing.T) {
	repo := &recordingRepo{}
	d := NewActivityDispatcher(1, repo, zerolog.Nop())
	d.Start()
	require.NoError(t, d.Stop(context.Background()))
	require.NoError(t, d.Stop(context.Background()), "stop is idempotent")

	before := testutil.ToFloat64(metrics.ActivityDroppedTotal)
	d.Publish(event("acc-1", 0))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ActivityDroppedTotal)-before)
	assert.Empty(t, repo.snapshot())
}

func TestActivityDispatcher_StopHonoursContext(t *testing.T) {
	repo := &recordingRepo{block: make(chan struct{})}
	d := NewActivityDispatcher(1, repo, zerolog.Nop())
	d.Start()
	d.Publish(event("acc-1", 0))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Stop(ctx), context.DeadlineExceeded)

	close(repo.block)
	require.NoError(t, d.Stop(context.Background()))
}
