package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
)

type Repo struct {
	DB *gorm.DB
}

// Options tune a single enqueue. Zero MaxAttempts means DefaultMaxAttempts.
type Options struct {
	MaxAttempts      int
	RemoveOnComplete bool
}

// Enqueue persists a deferred job. delay <= 0 makes it immediately eligible.
// A persistence failure is surfaced to the caller; enqueue failures for
// reminders are logged by the caller and never block the primary flow.
func (r *Repo) Enqueue(ctx context.Context, userID uint64, typ, ref string, payload any, delay time.Duration, opts Options) (uint64, error) {
	return r.EnqueueTx(r.DB.WithContext(ctx), userID, typ, ref, payload, delay, opts)
}

// EnqueueTx is Enqueue inside a caller-owned transaction, so a booking and
// its reminder job commit or roll back together.
func (r *Repo) EnqueueTx(tx *gorm.DB, userID uint64, typ, ref string, payload any, delay time.Duration, opts Options) (uint64, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, errors.Wrap(err, "marshal job payload")
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	j := Job{
		UserID:           userID,
		Type:             typ,
		Ref:              ref,
		Payload:          body,
		RunAt:            time.Now().Add(delay),
		Status:           StatusPending,
		MaxAttempts:      maxAttempts,
		RemoveOnComplete: opts.RemoveOnComplete,
	}
	if err := tx.Create(&j).Error; err != nil {
		return 0, errors.Wrap(err, "enqueue job")
	}
	return j.ID, nil
}

// Claim atomically moves the earliest due PENDING job to RUNNING and
// increments its attempt counter. The transition is a compare-and-swap keyed
// on (id, status=PENDING): losing the race to another worker affects zero
// rows, and selection is retried. Returns nil when nothing is due.
func (r *Repo) Claim(workerID string) (*Job, error) {
	for {
		var job Job
		err := r.DB.
			Where("status = ? AND run_at <= ?", StatusPending, time.Now()).
			Order("run_at asc").
			First(&job).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "select due job")
		}

		now := time.Now()
		res := r.DB.Model(&Job{}).
			Where("id = ? AND status = ?", job.ID, StatusPending).
			Updates(map[string]any{
				"status":     StatusRunning,
				"attempts":   gorm.Expr("attempts + 1"),
				"locked_by":  workerID,
				"locked_at":  now,
				"updated_at": now,
			})
		if res.Error != nil {
			return nil, errors.Wrap(res.Error, "claim job")
		}
		if res.RowsAffected == 0 {
			// lost the race, pick the next candidate
			continue
		}

		job.Status = StatusRunning
		job.Attempts++
		job.LockedBy = &workerID
		job.LockedAt = &now
		return &job, nil
	}
}

// ReclaimStale returns RUNNING jobs whose lock is older than staleAfter to
// PENDING. A worker killed mid-processing leaves its job RUNNING; this is
// what keeps delivery at-least-once instead of at-most-once.
func (r *Repo) ReclaimStale(staleAfter time.Duration) (int64, error) {
	cutoff := time.Now().Add(-staleAfter)
	res := r.DB.Model(&Job{}).
		Where("status = ? AND locked_at IS NOT NULL AND locked_at < ?", StatusRunning, cutoff).
		Updates(map[string]any{
			"status":     StatusPending,
			"locked_by":  nil,
			"locked_at":  nil,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "reclaim stale jobs")
	}
	return res.RowsAffected, nil
}

// Complete finishes a successfully handled job: deleted outright under
// RemoveOnComplete, otherwise kept as a DONE row.
func (r *Repo) Complete(job *Job) error {
	if job.RemoveOnComplete {
		return errors.Wrap(r.DB.Delete(&Job{}, job.ID).Error, "delete completed job")
	}
	err := r.DB.Model(&Job{}).Where("id = ?", job.ID).
		Updates(map[string]any{"status": StatusDone, "updated_at": time.Now()}).Error
	return errors.Wrap(err, "mark job done")
}

// MarkFailed dead-letters a job. The row stays around for inspection.
func (r *Repo) MarkFailed(id uint64, reason string) error {
	err := r.DB.Model(&Job{}).Where("id = ?", id).
		Updates(map[string]any{
			"status":     StatusFailed,
			"last_error": reason,
			"updated_at": time.Now(),
		}).Error
	return errors.Wrap(err, "mark job failed")
}

// RetryLater releases a claimed job back to PENDING with a new run time.
// Attempts stay as incremented by the claim.
func (r *Repo) RetryLater(id uint64, runAt time.Time, reason string) error {
	err := r.DB.Model(&Job{}).Where("id = ?", id).
		Updates(map[string]any{
			"status":     StatusPending,
			"run_at":     runAt,
			"locked_by":  nil,
			"locked_at":  nil,
			"last_error": reason,
			"updated_at": time.Now(),
		}).Error
	return errors.Wrap(err, "requeue job")
}

// CancelPending best-effort deletes not-yet-claimed jobs of the given type
// and ref. Zero matches is not an error; a job already claimed by a worker
// is left alone and the dispatch-side existence guard catches it.
func (r *Repo) CancelPending(ctx context.Context, typ, ref string) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("type = ? AND ref = ? AND status = ?", typ, ref, StatusPending).
		Delete(&Job{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "cancel pending jobs")
	}
	return res.RowsAffected, nil
}
