package jobpoll

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clapper/internal/logging"
	"clapper/internal/services"
)

// State is a provider job's observed lifecycle position.
type State string

const (
	// StateProcessing means the provider is still working; poll again.
	StateProcessing State = "processing"
	// StateCompleted means the result is ready at Snapshot.ResultLocator.
	StateCompleted State = "completed"
	// StateFailed means the provider reported a terminal failure.
	StateFailed State = "failed"
)

// Snapshot is one observation of a provider job. Attempts is filled by the
// poller on terminal snapshots so callers can record polling effort.
type Snapshot struct {
	State         State
	ResultLocator string
	FailureReason string
	Attempts      int
}

// PollFunc queries the provider for the job's current state. Errors are
// treated as fatal for the job; the poller never retries a failed query.
type PollFunc func(ctx context.Context) (Snapshot, error)

const (
	// DefaultInterval matches the provider guidance of polling every 10s.
	DefaultInterval = 10 * time.Second
	// DefaultMaxAttempts bounds a job wait to 100 polls before timing out.
	DefaultMaxAttempts = 100
)

// Poller drives a PollFunc to a terminal state. The zero value is not usable;
// construct with New.
type Poller struct {
	interval    time.Duration
	maxAttempts int
	logger      *slog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures a Poller.
type Option func(*Poller)

// WithSleep replaces the wait between attempts, letting tests run the
// state machine without real delays.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Poller) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// New constructs a poller. Non-positive interval or attempts fall back to the
// defaults.
func New(interval time.Duration, maxAttempts int, logger *slog.Logger, opts ...Option) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	poller := &Poller{
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      logging.NewComponentLogger(logger, "jobpoll"),
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(poller)
	}
	return poller
}

// Await polls until the job completes, fails, or maxAttempts polls have been
// spent. A completed job returns its snapshot; a failed job returns the
// provider-reported reason; exhaustion returns a timeout. All three outcomes
// are terminal for the job; nothing here retries.
func (p *Poller) Await(ctx context.Context, jobID string, poll PollFunc) (Snapshot, error) {
	if poll == nil {
		return Snapshot{}, services.Wrap(services.ErrProviderRequest, "jobpoll", "await", "nil poll function", nil)
	}
	sampler := logging.NewProgressSampler(10)
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Snapshot{}, err
		}

		snapshot, err := poll(ctx)
		if err != nil {
			return Snapshot{}, services.Wrap(services.ErrProviderRequest, "jobpoll", "status query",
				fmt.Sprintf("job %s attempt %d/%d", jobID, attempt, p.maxAttempts), err)
		}

		snapshot.Attempts = attempt
		switch snapshot.State {
		case StateCompleted:
			p.logger.Debug("job completed",
				logging.String("job_id", jobID),
				logging.Int("attempts", attempt))
			return snapshot, nil
		case StateFailed:
			reason := snapshot.FailureReason
			if reason == "" {
				reason = "provider reported failure without detail"
			}
			return snapshot, services.Wrap(services.ErrProviderJobFailed, "jobpoll", "await",
				fmt.Sprintf("job %s: %s", jobID, reason), nil)
		case StateProcessing:
			percent := float64(attempt) / float64(p.maxAttempts) * 100
			if sampler.ShouldLog(percent, "waiting", "") {
				p.logger.Debug("job still processing",
					logging.String("job_id", jobID),
					logging.Int("attempt", attempt),
					logging.Int("max_attempts", p.maxAttempts))
			}
		default:
			return Snapshot{}, services.Wrap(services.ErrProviderRequest, "jobpoll", "await",
				fmt.Sprintf("job %s reported unknown state %q", jobID, snapshot.State), nil)
		}

		if attempt == p.maxAttempts {
			break
		}
		if err := p.sleep(ctx, p.interval); err != nil {
			return Snapshot{}, err
		}
	}
	return Snapshot{Attempts: p.maxAttempts}, services.Wrap(services.ErrProviderJobTimeout, "jobpoll", "await",
		fmt.Sprintf("job %s not terminal after %d attempts", jobID, p.maxAttempts), nil)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
