package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// everyMinute is the cron schedule of the showcase check.
const everyMinute = "* * * * *"

// Job is run by the scheduler with the time it fired.
type Job func(ctx context.Context, now time.Time)

// Scheduler runs a Job once a minute after the gateway session is ready.
type Scheduler struct {
	cron   *cron.Cron
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	// running serializes job runs so an overlapping tick waits instead of being dropped.
	running sync.Mutex
}

// NewScheduler builds a stopped scheduler firing job every minute in loc.
// A tick that fires while the previous run is still going waits for it and then runs
// with the time it fired, so a guild due in that minute is still matched.
func NewScheduler(logger zerolog.Logger, loc *time.Location, job Job) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	log := logger.With().Str("component", "scheduler").Logger()
	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, log: log, ctx: ctx, cancel: cancel}

	if _, err := c.AddFunc(everyMinute, func() { s.run(job, time.Now().In(loc)) }); err != nil {
		cancel()
		return nil, fmt.Errorf("could not set up showcase job: %w", err)
	}
	return s, nil
}

func (s *Scheduler) run(job Job, fired time.Time) {
	s.running.Lock()
	defer s.running.Unlock()
	if waited := time.Since(fired); waited > time.Minute {
		s.log.Warn().Dur("waited", waited).Time("fired", fired).Msg("showcase check delayed by previous run")
	}
	job(s.ctx, fired)
}

// Start begins scheduling. Calls after the first are no-ops.
func (s *Scheduler) Start() {
	s.once.Do(func() {
		s.cron.Start()
		s.log.Info().Msg("daily showcase task started (checks every minute)")
	})
}

// Stop cancels a running job and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
