package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(&Job{}))
	return gdb
}

func testRepo(t *testing.T) *Repo {
	return &Repo{DB: testDB(t)}
}

func mustGet(t *testing.T, db *gorm.DB, id uint64) *Job {
	t.Helper()
	var j Job
	require.NoError(t, db.First(&j, id).Error)
	return &j
}

// forceDue makes a pending job immediately eligible again, standing in for
// the passage of backoff time.
func forceDue(t *testing.T, db *gorm.DB, id uint64) {
	t.Helper()
	require.NoError(t, db.Model(&Job{}).Where("id = ?", id).
		Update("run_at", time.Now().Add(-time.Second)).Error)
}

func TestEnqueueSetsRunAt(t *testing.T) {
	r := testRepo(t)

	id, err := r.Enqueue(context.Background(), 1, "notify-user", "m1", map[string]any{"k": "v"}, time.Hour, Options{})
	require.NoError(t, err)

	j := mustGet(t, r.DB, id)
	assert.Equal(t, StatusPending, j.Status)
	assert.Equal(t, DefaultMaxAttempts, j.MaxAttempts)
	assert.Equal(t, "m1", j.Ref)
	assert.WithinDuration(t, time.Now().Add(time.Hour), j.RunAt, 5*time.Second)
}

func TestClaimReturnsNilWhenNothingDue(t *testing.T) {
	r := testRepo(t)

	_, err := r.Enqueue(context.Background(), 1, "notify-user", "m1", nil, time.Hour, Options{})
	require.NoError(t, err)

	j, err := r.Claim("w1")
	require.NoError(t, err)
	assert.Nil(t, j)
}

func TestClaimMovesJobToRunning(t *testing.T) {
	r := testRepo(t)

	id, err := r.Enqueue(context.Background(), 1, "notify-user", "m1", nil, -time.Second, Options{})
	require.NoError(t, err)

	j, err := r.Claim("w1")
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, id, j.ID)
	assert.Equal(t, StatusRunning, j.Status)
	assert.Equal(t, 1, j.Attempts)
	require.NotNil(t, j.LockedBy)
	assert.Equal(t, "w1", *j.LockedBy)

	// a second worker finds nothing: the claim is exclusive
	again, err := r.Claim("w2")
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestClaimPrefersEarliestRunAt(t *testing.T) {
	r := testRepo(t)

	later, err := r.Enqueue(context.Background(), 1, "notify-user", "m1", nil, -time.Minute, Options{})
	require.NoError(t, err)
	earlier, err := r.Enqueue(context.Background(), 1, "notify-user", "m2", nil, -time.Hour, Options{})
	require.NoError(t, err)

	j, err := r.Claim("w1")
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, earlier, j.ID)

	j, err = r.Claim("w1")
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, later, j.ID)
}

func TestCompleteKeepsOrRemovesRow(t *testing.T) {
	r := testRepo(t)

	kept, err := r.Enqueue(context.Background(), 1, "notify-user", "m1", nil, -time.Second, Options{})
	require.NoError(t, err)
	removed, err := r.Enqueue(context.Background(), 1, "notify-user", "m2", nil, -time.Second, Options{RemoveOnComplete: true})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		j, err := r.Claim("w1")
		require.NoError(t, err)
		require.NotNil(t, j)
		require.NoError(t, r.Complete(j))
	}

	assert.Equal(t, StatusDone, mustGet(t, r.DB, kept).Status)
	var count int64
	require.NoError(t, r.DB.Model(&Job{}).Where("id = ?", removed).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRetryLaterReleasesClaim(t *testing.T) {
	r := testRepo(t)

	id, err := r.Enqueue(context.Background(), 1, "notify-user", "m1", nil, -time.Second, Options{})
	require.NoError(t, err)

	j, err := r.Claim("w1")
	require.NoError(t, err)
	require.NotNil(t, j)

	require.NoError(t, r.RetryLater(id, time.Now().Add(time.Minute), "boom"))
	j2 := mustGet(t, r.DB, id)
	assert.Equal(t, StatusPending, j2.Status)
	assert.Nil(t, j2.LockedBy)
	assert.Equal(t, 1, j2.Attempts) // claim's increment survives
	require.NotNil(t, j2.LastError)
	assert.Equal(t, "boom", *j2.LastError)
}

func TestMarkFailedDeadLetters(t *testing.T) {
	r := testRepo(t)

	id, err := r.Enqueue(context.Background(), 1, "notify-user", "m1", nil, -time.Second, Options{})
	require.NoError(t, err)
	require.NoError(t, r.MarkFailed(id, "gave up"))

	j := mustGet(t, r.DB, id)
	assert.Equal(t, StatusFailed, j.Status)
	require.NotNil(t, j.LastError)
	assert.Equal(t, "gave up", *j.LastError)
}

func TestCancelPendingSkipsClaimedJobs(t *testing.T) {
	r := testRepo(t)

	_, err := r.Enqueue(context.Background(), 1, "notify-user", "m1", nil, time.Hour, Options{})
	require.NoError(t, err)
	claimed, err := r.Enqueue(context.Background(), 1, "notify-user", "m2", nil, -time.Second, Options{})
	require.NoError(t, err)
	_, err = r.Claim("w1")
	require.NoError(t, err)

	n, err := r.CancelPending(context.Background(), "notify-user", "m1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// the claimed job is out of cancel's reach
	n, err = r.CancelPending(context.Background(), "notify-user", "m2")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, StatusRunning, mustGet(t, r.DB, claimed).Status)

	// absence of a match is not an error
	n, err = r.CancelPending(context.Background(), "notify-user", "nope")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReclaimStaleReturnsJobToPending(t *testing.T) {
	r := testRepo(t)

	id, err := r.Enqueue(context.Background(), 1, "notify-user", "m1", nil, -time.Second, Options{})
	require.NoError(t, err)

	j, err := r.Claim("w1")
	require.NoError(t, err)
	require.NotNil(t, j)

	// simulate a worker that died mid-processing
	require.NoError(t, r.DB.Model(&Job{}).Where("id = ?", id).
		Update("locked_at", time.Now().Add(-time.Hour)).Error)

	n, err := r.ReclaimStale(5 * time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, StatusPending, mustGet(t, r.DB, id).Status)

	// reclaimed job is claimable again; no job is lost permanently
	j2, err := r.Claim("w2")
	require.NoError(t, err)
	require.NotNil(t, j2)
	assert.Equal(t, 2, j2.Attempts)
}

func TestReclaimStaleLeavesFreshClaimsAlone(t *testing.T) {
	r := testRepo(t)

	_, err := r.Enqueue(context.Background(), 1, "notify-user", "m1", nil, -time.Second, Options{})
	require.NoError(t, err)
	_, err = r.Claim("w1")
	require.NoError(t, err)

	n, err := r.ReclaimStale(5 * time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)
}
