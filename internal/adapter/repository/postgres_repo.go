package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github-repo-analyzer/internal/common"
	"github-repo-analyzer/internal/domain"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	defaultHistoryLimit = 10
	searchLimit         = 10
)

// PostgresRepo 实现了 port.Repository 接口
type PostgresRepo struct {
	db      *gorm.DB
	nowFunc func() time.Time
}

// NewPostgresRepo 初始化数据库连接并自动迁移表结构
func NewPostgresRepo(dsn string) (*PostgresRepo, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "连接数据库失败", err)
	}

	// 自动创建 analysis_records 表，字段变了也会自动补列
	if err := db.AutoMigrate(&domain.AnalysisRecord{}); err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "数据库迁移失败", err)
	}

	return &PostgresRepo{db: db, nowFunc: time.Now}, nil
}

// Save 每次分析插入一条新记录，ID 和分析时间为空时自动补齐
func (r *PostgresRepo) Save(ctx context.Context, rec *domain.AnalysisRecord) error {
	if rec == nil {
		return common.NewError(common.ErrCodeInvalidInput, "record is nil")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.AnalyzedAt.IsZero() {
		rec.AnalyzedAt = r.now()
	}

	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return common.WrapError(common.ErrCodeDatabase, fmt.Sprintf("保存 %s 失败", rec.FullName), err)
	}
	return nil
}

// Latest 返回某个仓库最近一次的记录
func (r *PostgresRepo) Latest(ctx context.Context, fullName string) (*domain.AnalysisRecord, error) {
	var rec domain.AnalysisRecord
	err := r.db.WithContext(ctx).
		Where("full_name = ?", fullName).
		Order("analyzed_at DESC").
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NewError(common.ErrCodeNotFound, fmt.Sprintf("no analysis recorded for %s", fullName))
	}
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "查询最近记录失败", err)
	}
	return &rec, nil
}

// History 按分析时间倒序返回最多 limit 条记录，limit <= 0 时取 10 条
func (r *PostgresRepo) History(ctx context.Context, fullName string, limit int) ([]*domain.AnalysisRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	var recs []*domain.AnalysisRecord
	err := r.db.WithContext(ctx).
		Where("full_name = ?", fullName).
		Order("analyzed_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "查询历史记录失败", err)
	}
	return recs, nil
}

// Search 在仓库名和 AI 分析里模糊查询，高分优先
func (r *PostgresRepo) Search(ctx context.Context, query string) ([]*domain.AnalysisRecord, error) {
	var recs []*domain.AnalysisRecord
	likeQuery := "%" + query + "%"
	err := r.db.WithContext(ctx).
		Where("full_name LIKE ? OR analysis LIKE ?", likeQuery, likeQuery).
		Order("total DESC").
		Limit(searchLimit).
		Find(&recs).Error
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "搜索失败", err)
	}
	return recs, nil
}

// Close 关闭底层连接池
func (r *PostgresRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *PostgresRepo) now() time.Time {
	if r.nowFunc == nil {
		return time.Now()
	}
	return r.nowFunc()
}
