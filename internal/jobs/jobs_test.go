package jobs

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/unalkalkan/bookshelf/pkg/types"
)

type fakeReleaser struct {
	calls   atomic.Int32
	maxIdle atomic.Int64
}

func (f *fakeReleaser) ReleaseIdle(maxIdle time.Duration) int {
	f.calls.Add(1)
	f.maxIdle.Store(int64(maxIdle))
	return 2
}

func TestSweepSessions(t *testing.T) {
	r := &fakeReleaser{}
	assert.Equal(t, 2, sweepSessions(r, 30*time.Minute))
	assert.Equal(t, int32(1), r.calls.Load())
	assert.Equal(t, int64(30*time.Minute), r.maxIdle.Load())
}

func TestStartJobs(t *testing.T) {
	t.Run("Disabled when idle timeout is zero", func(t *testing.T) {
		sc := StartJobs(&fakeReleaser{}, types.SessionConfig{IdleTimeoutMinutes: 0, SweepIntervalMinutes: 5})
		defer sc.Stop()
		assert.Equal(t, 0, sc.JobCount())
	})

	t.Run("Schedules the sweep", func(t *testing.T) {
		r := &fakeReleaser{}
		sc := StartJobs(r, types.SessionConfig{IdleTimeoutMinutes: 30, SweepIntervalMinutes: 5})
		defer sc.Stop()
		assert.Equal(t, 1, sc.JobCount())

		// gocron runs a new job immediately once started
		assert.Eventually(t, func() bool { return r.calls.Load() >= 1 }, time.Second, 10*time.Millisecond)
		assert.Equal(t, int64(30*time.Minute), r.maxIdle.Load())
	})
}
