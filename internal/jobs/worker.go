package jobs

import (
	"context"
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPollInterval = 800 * time.Millisecond
	defaultStaleAfter   = 5 * time.Minute
	maxBackoff          = 600 * time.Second
)

// HandlerFunc processes one claimed job. Handlers must be idempotent:
// delivery is at-least-once and a job may be re-run after a crash.
type HandlerFunc func(ctx context.Context, job *Job) error

// Worker polls for due jobs and dispatches them to the handler registered
// for their type. One iteration's failure only delays the next poll.
type Worker struct {
	ID           string
	Repo         *Repo
	Log          *zap.SugaredLogger
	PollInterval time.Duration
	StaleAfter   time.Duration

	handlers map[string]HandlerFunc
}

func NewWorker(repo *Repo, log *zap.SugaredLogger) *Worker {
	return &Worker{
		ID:           "worker-" + uuid.NewString()[:8],
		Repo:         repo,
		Log:          log,
		PollInterval: defaultPollInterval,
		StaleAfter:   defaultStaleAfter,
		handlers:     make(map[string]HandlerFunc),
	}
}

// Register installs the handler for a job type. Not safe to call after Run.
func (w *Worker) Register(typ string, h HandlerFunc) {
	w.handlers[typ] = h
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.PollInterval)
	defer ticker.Stop()

	w.Log.Infow("job worker started", "worker", w.ID, "poll_interval", w.PollInterval)
	for {
		select {
		case <-ctx.Done():
			w.Log.Infow("job worker stopping", "worker", w.ID)
			return
		case <-ticker.C:
			// drain bursts: keep claiming until nothing is due
			for w.tick(ctx) {
				if ctx.Err() != nil {
					return
				}
			}
		}
	}
}

// tick claims and handles at most one job, reporting whether it found work.
func (w *Worker) tick(ctx context.Context) bool {
	if n, err := w.Repo.ReclaimStale(w.StaleAfter); err != nil {
		w.Log.Warnw("stale job reclaim failed", "error", err)
	} else if n > 0 {
		w.Log.Infow("reclaimed stale jobs", "count", n)
	}

	job, err := w.Repo.Claim(w.ID)
	if err != nil {
		w.Log.Errorw("job claim failed", "worker", w.ID, "error", err)
		return false
	}
	if job == nil {
		return false
	}
	w.handle(ctx, job)
	return true
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	h, ok := w.handlers[job.Type]
	if !ok {
		w.Log.Errorw("no handler for job type", "job", job.ID, "type", job.Type)
		if err := w.Repo.MarkFailed(job.ID, "no handler for type "+job.Type); err != nil {
			w.Log.Errorw("mark failed errored", "job", job.ID, "error", err)
		}
		return
	}

	err := w.invoke(ctx, h, job)
	switch {
	case err == nil:
		if err := w.Repo.Complete(job); err != nil {
			w.Log.Errorw("complete errored", "job", job.ID, "error", err)
		}
	case errors.Is(err, ErrStale):
		// the referenced record is gone; treat as success so cancelled
		// meetings never produce late notifications
		w.Log.Infow("job target gone, completing as no-op", "job", job.ID, "type", job.Type)
		if err := w.Repo.Complete(job); err != nil {
			w.Log.Errorw("complete errored", "job", job.ID, "error", err)
		}
	case errors.Is(err, ErrPermanent):
		w.Log.Errorw("job failed permanently", "job", job.ID, "type", job.Type, "error", err)
		if err := w.Repo.MarkFailed(job.ID, err.Error()); err != nil {
			w.Log.Errorw("mark failed errored", "job", job.ID, "error", err)
		}
	default:
		w.retry(job, err)
	}
}

// invoke runs the handler with panics converted to errors so a bad handler
// cannot take the poll loop down.
func (w *Worker) invoke(ctx context.Context, h HandlerFunc, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("handler panic: %v", r)
		}
	}()
	return h(ctx, job)
}

func (w *Worker) retry(job *Job, cause error) {
	if job.Attempts >= job.MaxAttempts {
		w.Log.Errorw("job exhausted retries, dead-lettering",
			"job", job.ID, "type", job.Type, "attempts", job.Attempts, "error", cause)
		if err := w.Repo.MarkFailed(job.ID, cause.Error()); err != nil {
			w.Log.Errorw("mark failed errored", "job", job.ID, "error", err)
		}
		return
	}

	delay := backoff(job.Attempts)
	w.Log.Warnw("job failed, will retry",
		"job", job.ID, "type", job.Type, "attempts", job.Attempts, "retry_in", delay, "error", cause)
	if err := w.Repo.RetryLater(job.ID, time.Now().Add(delay), cause.Error()); err != nil {
		w.Log.Errorw("requeue errored", "job", job.ID, "error", err)
	}
}

// backoff is exponential in the attempt count, capped at maxBackoff.
func backoff(attempts int) time.Duration {
	sec := math.Min(math.Pow(2, float64(attempts)), maxBackoff.Seconds())
	return time.Duration(sec) * time.Second
}
