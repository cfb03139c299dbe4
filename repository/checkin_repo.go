package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ichacara/attendance/models"
	"github.com/ichacara/attendance/services"
)

const storeOpTimeout = 5 * time.Second

// CheckinRepo is the gorm implementation of services.CheckinStore.
type CheckinRepo struct {
	db *gorm.DB
}

// NewCheckinRepo creates a repository over the given DB handle.
func NewCheckinRepo(db *gorm.DB) *CheckinRepo {
	return &CheckinRepo{db: db}
}

func (r *CheckinRepo) Create(ctx context.Context, rec *models.CheckIn) error {
	ctx, cancel := context.WithTimeout(ctx, storeOpTimeout)
	defer cancel()
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		if isDuplicateKey(err) {
			return services.ErrDuplicateDay
		}
		return err
	}
	return nil
}

func (r *CheckinRepo) Get(ctx context.Context, id uint) (*models.CheckIn, error) {
	ctx, cancel := context.WithTimeout(ctx, storeOpTimeout)
	defer cancel()
	var rec models.CheckIn
	err := r.db.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *CheckinRepo) FindInRange(ctx context.Context, userID uint, from, to time.Time) (*models.CheckIn, error) {
	ctx, cancel := context.WithTimeout(ctx, storeOpTimeout)
	defer cancel()
	var rec models.CheckIn
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from, to).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *CheckinRepo) Last(ctx context.Context, userID uint) (*models.CheckIn, error) {
	ctx, cancel := context.WithTimeout(ctx, storeOpTimeout)
	defer cancel()
	var rec models.CheckIn
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *CheckinRepo) ListRange(ctx context.Context, from, to time.Time) ([]models.CheckIn, error) {
	ctx, cancel := context.WithTimeout(ctx, storeOpTimeout)
	defer cancel()
	var recs []models.CheckIn
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *CheckinRepo) Confirm(ctx context.Context, id uint) error {
	ctx, cancel := context.WithTimeout(ctx, storeOpTimeout)
	defer cancel()
	res := r.db.WithContext(ctx).
		Model(&models.CheckIn{}).
		Where("id = ?", id).
		Update("confirmed", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Either missing or already confirmed; distinguish for the caller.
		var cnt int64
		if err := r.db.WithContext(ctx).Model(&models.CheckIn{}).Where("id = ?", id).Count(&cnt).Error; err != nil {
			return err
		}
		if cnt == 0 {
			return services.ErrNotFound
		}
	}
	return nil
}

// isDuplicateKey reports whether the insert was rejected by a unique index.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// MySQL error 1062 surfaces as a plain message without translation enabled.
	return strings.Contains(err.Error(), "Duplicate entry")
}
