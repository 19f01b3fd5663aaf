package data

import (
	"context"

	"recharge-service/internal/biz"
	"recharge-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm/clause"
)

type reviewRepo struct {
	data *Data
	log  *log.Helper
}

// NewReviewRepo 创建复核记录 repo
func NewReviewRepo(data *Data, logger log.Logger) biz.ReviewRepo {
	return &reviewRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// CreateReview 写入复核记录，重复记录忽略
func (r *reviewRepo) CreateReview(ctx context.Context, rec *biz.ReviewRecord) error {
	m := &model.RechargeReview{
		OrderID:       rec.OrderID,
		Reason:        rec.Reason,
		TransactionID: rec.TransactionID,
		PaidAmount:    rec.PaidAmount,
		Detail:        rec.Detail,
	}
	if err := r.data.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m).Error; err != nil {
		return err
	}
	rec.ID = m.ID
	return nil
}

// ListReviews 分页查询复核记录（新的在前）
func (r *reviewRepo) ListReviews(ctx context.Context, page, pageSize int) ([]*biz.ReviewRecord, int64, error) {
	db := r.data.DB(ctx).Model(&model.RechargeReview{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []*model.RechargeReview
	if err := db.Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&list).Error; err != nil {
		return nil, 0, err
	}

	result := make([]*biz.ReviewRecord, 0, len(list))
	for _, m := range list {
		result = append(result, &biz.ReviewRecord{
			ID:            m.ID,
			OrderID:       m.OrderID,
			Reason:        m.Reason,
			TransactionID: m.TransactionID,
			PaidAmount:    m.PaidAmount,
			Detail:        m.Detail,
			CreatedAt:     m.CreatedAt,
		})
	}
	return result, total, nil
}
