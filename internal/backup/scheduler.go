package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/lukelai18/ECommerce-API/internal/store"
)

// Scheduler runs exports on a cron schedule and writes them to every
// destination.
type Scheduler struct {
	store        store.Store
	destinations []Destination
	logger       *slog.Logger
	cron         *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler. schedule is a standard cron spec or a
// descriptor such as "@every 3m".
func NewScheduler(st store.Store, destinations []Destination, schedule string, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		store:        st,
		destinations: destinations,
		logger:       logger,
		cron:         c,
		ctx:          ctx,
		cancel:       cancel,
	}
	if _, err := c.AddFunc(schedule, func() { s.runLogged(s.ctx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("parse schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs an initial backup immediately, then follows the schedule.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runLogged(s.ctx)
	}()
	s.cron.Start()
}

// Stop cancels in-flight exports and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

// RunOnce exports the store and writes it to every destination. Destination
// failures do not stop the others; they are joined into the returned error.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var buf bytes.Buffer
	if err := ExportJSONL(ctx, s.store, &buf); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	data := buf.Bytes()

	var errs []error
	for _, dest := range s.destinations {
		if err := dest.Write(ctx, data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", dest.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) runLogged(ctx context.Context) {
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("backup failed", "err", err)
		return
	}
	s.logger.Info("backup completed", "destinations", len(s.destinations))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
