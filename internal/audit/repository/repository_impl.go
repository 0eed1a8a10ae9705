package repository

import (
	"context"

	auditdomain "github.com/casaflowlabs/casaflow/internal/audit/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, log *auditdomain.AuditLog) error
	List(ctx context.Context, db *gorm.DB, req auditdomain.ListRequest) ([]auditdomain.AuditLog, int64, error)
	FindRange(ctx context.Context, db *gorm.DB, req auditdomain.ExportRequest) ([]auditdomain.AuditLog, error)
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, log *auditdomain.AuditLog) error {
	return db.WithContext(ctx).Create(log).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, req auditdomain.ListRequest) ([]auditdomain.AuditLog, int64, error) {
	query := db.WithContext(ctx).Model(&auditdomain.AuditLog{})
	if len(req.Actions) > 0 {
		query = query.Where("action IN ?", req.Actions)
	}
	if req.From != nil {
		query = query.Where("created_at >= ?", *req.From)
	}
	if req.To != nil {
		query = query.Where("created_at < ?", *req.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []auditdomain.AuditLog
	err := req.Page.Apply(query).Order("created_at DESC, id DESC").Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func (r *repo) FindRange(ctx context.Context, db *gorm.DB, req auditdomain.ExportRequest) ([]auditdomain.AuditLog, error) {
	query := db.WithContext(ctx).Model(&auditdomain.AuditLog{}).
		Where("created_at >= ? AND created_at < ?", req.StartDate, req.EndDate)
	if len(req.Actions) > 0 {
		query = query.Where("action IN ?", req.Actions)
	}

	var logs []auditdomain.AuditLog
	if err := query.Order("created_at ASC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
