package hub

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Sweeper periodically closes rooms nobody has joined or returned to.
type Sweeper struct {
	sched gocron.Scheduler
}

func StartSweeper(h *Hub, every, idleFor time.Duration, log *zap.Logger) (*Sweeper, error) {
	if log == nil {
		log = zap.NewNop()
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), every)
			defer cancel()
			n, err := h.Sweep(ctx, idleFor)
			if err != nil {
				log.Warn("room sweep failed", zap.Error(err))
				return
			}
			if n > 0 {
				log.Info("swept idle rooms", zap.Int("closed", n))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}

	sched.Start()
	return &Sweeper{sched: sched}, nil
}

func (s *Sweeper) Stop() error {
	return s.sched.Shutdown()
}
