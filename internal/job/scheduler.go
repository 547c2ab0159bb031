package job

import (
	"context"
	"fmt"
	"sync"

	"realestate/internal/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs providers on cron specs with seconds precision. A run that
// is still going when its next tick fires is skipped.
type Scheduler struct {
	cron    *cron.Cron
	baseCtx context.Context
}

func NewScheduler(baseCtx context.Context) *Scheduler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		baseCtx: baseCtx,
	}
}

func (s *Scheduler) Add(name, spec string, run func(context.Context)) error {
	var mu sync.Mutex
	_, err := s.cron.AddFunc(spec, func() {
		if !mu.TryLock() {
			logger.Debug(fmt.Sprintf("[%s] previous run still going, skip", name))
			return
		}
		defer mu.Unlock()
		run(s.baseCtx)
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	logger.Info(fmt.Sprintf("[%s] scheduled", name), zap.String("spec", spec))
	return nil
}

func (s *Scheduler) Start() {
	logger.Info("cron started")
	s.cron.Start()
}

// Stop waits for running jobs to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("cron stopped")
}
