package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sportlens/sportlens-backend/internal/logger"
	"github.com/sportlens/sportlens-backend/internal/types"
)

type AnalysisRepo interface {
	Create(ctx context.Context, tx *gorm.DB, analysis *types.Analysis) (*types.Analysis, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Analysis, error)
	List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Analysis, error)
}

type analysisRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisRepo {
	return &analysisRepo{
		db:  db,
		log: baseLog.With("repo", "AnalysisRepo"),
	}
}

func (r *analysisRepo) Create(ctx context.Context, tx *gorm.DB, analysis *types.Analysis) (*types.Analysis, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(analysis).Error; err != nil {
		return nil, err
	}
	return analysis, nil
}

func (r *analysisRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Analysis, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var analysis types.Analysis
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&analysis).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (r *analysisRepo) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Analysis, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Analysis
	err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
