// Package sessionsweeper periodically removes expired sessions from the store.
package sessionsweeper

import (
	"context"
	"time"

	"github.com/patric-chuzhbe/storybooks/internal/logger"
)

type expiredSessionsRemover interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type Sweeper struct {
	db           expiredSessionsRemover
	interval     time.Duration
	errorChannel chan error
	done         chan struct{}
	now          func() time.Time
}

// New returns a sweeper that runs every interval. errorsCapacity bounds the
// number of unread errors; further errors are dropped.
func New(db expiredSessionsRemover, interval time.Duration, errorsCapacity int) *Sweeper {
	return &Sweeper{
		db:           db,
		interval:     interval,
		errorChannel: make(chan error, errorsCapacity),
		done:         make(chan struct{}),
		now:          time.Now,
	}
}

// ListenErrors passes every sweep error to callback on its own goroutine
// until the sweeper stops.
func (s *Sweeper) ListenErrors(callback func(error)) {
	go func() {
		for err := range s.errorChannel {
			callback(err)
		}
	}()
}

// Run starts sweeping. It returns immediately; cancel ctx to stop, then
// wait on Done.
func (s *Sweeper) Run(ctx context.Context) {
	go func() {
		defer close(s.done)
		defer close(s.errorChannel)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// Done is closed once Run's goroutine has exited.
func (s *Sweeper) Done() <-chan struct{} {
	return s.done
}

func (s *Sweeper) sweep(ctx context.Context) {
	removed, err := s.db.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		select {
		case s.errorChannel <- err:
		default:
		}
		return
	}
	if removed > 0 {
		logger.Log.Infof("removed %d expired sessions", removed)
	}
}
