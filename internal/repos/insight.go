package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sportlens/sportlens-backend/internal/logger"
	"github.com/sportlens/sportlens-backend/internal/types"
)

type InsightRepo interface {
	Create(ctx context.Context, tx *gorm.DB, insight *types.Insight) (*types.Insight, error)
	ListByArticle(ctx context.Context, tx *gorm.DB, articleID uuid.UUID) ([]*types.Insight, error)
	List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Insight, error)
	CountByArticle(ctx context.Context, tx *gorm.DB, articleID uuid.UUID) (int64, error)
}

type insightRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInsightRepo(db *gorm.DB, baseLog *logger.Logger) InsightRepo {
	return &insightRepo{
		db:  db,
		log: baseLog.With("repo", "InsightRepo"),
	}
}

func (r *insightRepo) Create(ctx context.Context, tx *gorm.DB, insight *types.Insight) (*types.Insight, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(insight).Error; err != nil {
		return nil, err
	}
	return insight, nil
}

func (r *insightRepo) ListByArticle(ctx context.Context, tx *gorm.DB, articleID uuid.UUID) ([]*types.Insight, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Insight
	err := transaction.WithContext(ctx).
		Where("article_id = ?", articleID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *insightRepo) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Insight, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Insight
	err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *insightRepo) CountByArticle(ctx context.Context, tx *gorm.DB, articleID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(ctx).Model(&types.Insight{}).
		Where("article_id = ?", articleID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
