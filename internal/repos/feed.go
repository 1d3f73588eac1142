package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sportlens/sportlens-backend/internal/logger"
	"github.com/sportlens/sportlens-backend/internal/types"
)

type FeedRepo interface {
	Create(ctx context.Context, tx *gorm.DB, feed *types.Feed) (*types.Feed, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Feed, error)
	GetByURL(ctx context.Context, tx *gorm.DB, url string) (*types.Feed, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Feed, error)
	ListEnabled(ctx context.Context, tx *gorm.DB) ([]*types.Feed, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
	TouchLastFetched(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type feedRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeedRepo(db *gorm.DB, baseLog *logger.Logger) FeedRepo {
	return &feedRepo{
		db:  db,
		log: baseLog.With("repo", "FeedRepo"),
	}
}

func (r *feedRepo) Create(ctx context.Context, tx *gorm.DB, feed *types.Feed) (*types.Feed, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(feed).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return feed, nil
}

func (r *feedRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Feed, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var feed types.Feed
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&feed).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &feed, nil
}

func (r *feedRepo) GetByURL(ctx context.Context, tx *gorm.DB, url string) (*types.Feed, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var feed types.Feed
	err := transaction.WithContext(ctx).Where("url = ?", url).First(&feed).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &feed, nil
}

func (r *feedRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Feed, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Feed
	if err := transaction.WithContext(ctx).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *feedRepo) ListEnabled(ctx context.Context, tx *gorm.DB) ([]*types.Feed, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Feed
	if err := transaction.WithContext(ctx).Where("enabled = ?", true).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *feedRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()
	return transaction.WithContext(ctx).Model(&types.Feed{}).Where("id = ?", id).Updates(updates).Error
}

func (r *feedRepo) TouchLastFetched(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	now := time.Now()
	return r.UpdateFields(ctx, tx, id, map[string]any{"last_fetched": now})
}

func (r *feedRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Where("id = ?", id).Delete(&types.Feed{}).Error
}
