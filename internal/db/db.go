package db

import (
	"github.com/cockroachdb/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"devmeet/internal/auth"
	"devmeet/internal/booking"
	"devmeet/internal/jobs"
	"devmeet/internal/notify"
)

func Connect(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&auth.User{},
		&booking.Booking{},
		&booking.Attendee{},
		&jobs.Job{},
		&notify.Notification{},
	); err != nil {
		return err
	}

	stmts := []string{
		// worker poll path: earliest due pending job
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		// stale-RUNNING reclaim
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
		// cancellation by correlation key
		`create index if not exists idx_jobs_cancel on jobs(type, ref, status);`,
		`create index if not exists idx_notifications_user_created on notifications(user_id, created_at desc);`,
		`create index if not exists idx_attendees_booking_pin on attendees(booking_id, meeting_pin);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return errors.Wrapf(err, "index exec failed (sql=%s)", s)
		}
	}
	return nil
}
