package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sportlens/sportlens-backend/internal/logger"
	"github.com/sportlens/sportlens-backend/internal/types"
)

type ArticleRepo interface {
	Create(ctx context.Context, tx *gorm.DB, article *types.Article) (*types.Article, error)
	// CreateMany inserts the batch in one transaction. Rows whose fingerprint
	// already exists are skipped rather than failing the batch; the returned
	// count is the number of rows actually inserted.
	CreateMany(ctx context.Context, tx *gorm.DB, articles []*types.Article) (int64, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Article, error)
	GetByFingerprint(ctx context.Context, tx *gorm.DB, fingerprint string) (*types.Article, error)
	List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Article, error)
	ListByFeed(ctx context.Context, tx *gorm.DB, feedID uuid.UUID, limit, offset int) ([]*types.Article, error)
	Search(ctx context.Context, tx *gorm.DB, query string, limit, offset int) ([]*types.Article, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
	DeleteMany(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (int64, error)
	DeleteByFeed(ctx context.Context, tx *gorm.DB, feedID uuid.UUID) (int64, error)
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, age time.Duration) (int64, error)
	DeleteBySearch(ctx context.Context, tx *gorm.DB, query string) (int64, error)
}

type articleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArticleRepo(db *gorm.DB, baseLog *logger.Logger) ArticleRepo {
	return &articleRepo{
		db:  db,
		log: baseLog.With("repo", "ArticleRepo"),
	}
}

func (r *articleRepo) Create(ctx context.Context, tx *gorm.DB, article *types.Article) (*types.Article, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(article).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return article, nil
}

func (r *articleRepo) CreateMany(ctx context.Context, tx *gorm.DB, articles []*types.Article) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(articles) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "link_timestamp_hash"}},
			DoNothing: true,
		}).
		Create(&articles)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected < int64(len(articles)) {
		r.log.Debug("Some articles already existed and were skipped",
			"staged", len(articles), "inserted", res.RowsAffected)
	}
	return res.RowsAffected, nil
}

func (r *articleRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Article, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var article types.Article
	err := transaction.WithContext(ctx).Preload("Feed").Where("id = ?", id).First(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &article, nil
}

func (r *articleRepo) GetByFingerprint(ctx context.Context, tx *gorm.DB, fingerprint string) (*types.Article, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var article types.Article
	err := transaction.WithContext(ctx).Where("link_timestamp_hash = ?", fingerprint).First(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &article, nil
}

func (r *articleRepo) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Article, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Article
	err := transaction.WithContext(ctx).
		Preload("Feed").
		Order("published_at DESC").
		Limit(limit).Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *articleRepo) ListByFeed(ctx context.Context, tx *gorm.DB, feedID uuid.UUID, limit, offset int) ([]*types.Article, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Article
	err := transaction.WithContext(ctx).
		Where("feed_id = ?", feedID).
		Order("published_at DESC").
		Limit(limit).Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *articleRepo) Search(ctx context.Context, tx *gorm.DB, query string, limit, offset int) ([]*types.Article, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	term := "%" + query + "%"
	var out []*types.Article
	err := transaction.WithContext(ctx).
		Where("title LIKE ? OR content LIKE ? OR summary LIKE ?", term, term, term).
		Order("published_at DESC").
		Limit(limit).Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *articleRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).Model(&types.Article{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *articleRepo) DeleteMany(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(ctx).Where("id IN ?", ids).Delete(&types.Article{})
	return res.RowsAffected, res.Error
}

func (r *articleRepo) DeleteByFeed(ctx context.Context, tx *gorm.DB, feedID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).Where("feed_id = ?", feedID).Delete(&types.Article{})
	return res.RowsAffected, res.Error
}

func (r *articleRepo) DeleteOlderThan(ctx context.Context, tx *gorm.DB, age time.Duration) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	cutoff := time.Now().Add(-age)
	res := transaction.WithContext(ctx).Where("published_at < ?", cutoff).Delete(&types.Article{})
	return res.RowsAffected, res.Error
}

func (r *articleRepo) DeleteBySearch(ctx context.Context, tx *gorm.DB, query string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	term := "%" + query + "%"
	res := transaction.WithContext(ctx).
		Where("title LIKE ? OR content LIKE ? OR summary LIKE ?", term, term, term).
		Delete(&types.Article{})
	return res.RowsAffected, res.Error
}
