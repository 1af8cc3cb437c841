package jobs

import "github.com/cockroachdb/errors"

// ErrStale signals that a job references a record that no longer exists
// (booking deleted after its reminder was scheduled). The worker completes
// the job as a no-op instead of retrying.
var ErrStale = errors.New("job references a deleted record")

// ErrPermanent marks a handler failure that no retry can fix (malformed
// payload, unknown job type). The worker dead-letters the job immediately.
var ErrPermanent = errors.New("permanent handler failure")
