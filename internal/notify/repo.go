package notify

import (
	"context"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("notification not found")

type Repo struct {
	DB *gorm.DB
}

// ListByUser returns the newest notifications first.
func (r *Repo) ListByUser(ctx context.Context, userID uint64, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []Notification
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}
	return out, nil
}

// MarkRead flips one notification, scoped to its owner.
func (r *Repo) MarkRead(ctx context.Context, userID, id uint64) error {
	res := r.DB.WithContext(ctx).Model(&Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return errors.Wrap(res.Error, "mark notification read")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead flips every unread notification of the user.
func (r *Repo) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "mark all read")
	}
	return res.RowsAffected, nil
}
