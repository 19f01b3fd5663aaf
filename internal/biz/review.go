package biz

import (
	"context"
	"time"

	rechargeErrors "recharge-service/internal/errors"
	"recharge-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/shopspring/decimal"
)

// ReviewRecord 需要人工复核的充值异常
type ReviewRecord struct {
	ID            int64
	OrderID       string
	Reason        string // AMOUNT_MISMATCH / LATE_PAYMENT
	TransactionID string
	PaidAmount    decimal.Decimal
	Detail        string
	CreatedAt     time.Time
}

// ReviewRepo 复核记录数据层接口，同一 (order, reason, transaction) 只保留一条
type ReviewRepo interface {
	CreateReview(ctx context.Context, r *ReviewRecord) error
	ListReviews(ctx context.Context, page, pageSize int) ([]*ReviewRecord, int64, error)
}

// ReviewUseCase 人工复核
type ReviewUseCase struct {
	repo    ReviewRepo
	log     *log.Helper
	metrics *metrics.RechargeMetrics
}

// NewReviewUseCase 创建复核 UseCase
func NewReviewUseCase(repo ReviewRepo, logger log.Logger) *ReviewUseCase {
	return &ReviewUseCase{
		repo:    repo,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// Flag 记录复核告警；写库失败只记日志，告警本身已经输出
func (uc *ReviewUseCase) Flag(ctx context.Context, r *ReviewRecord) {
	uc.log.Errorf("[REVIEW] %s: order_id=%s, transaction_id=%s, paid_amount=%s, detail=%s",
		r.Reason, r.OrderID, r.TransactionID, r.PaidAmount, r.Detail)
	uc.metrics.ReviewTotal.WithLabelValues(r.Reason).Inc()
	if err := uc.repo.CreateReview(ctx, r); err != nil {
		uc.log.Errorf("CreateReview failed: order_id=%s, reason=%s, error=%v", r.OrderID, r.Reason, err)
	}
}

// List 分页查询复核记录
func (uc *ReviewUseCase) List(ctx context.Context, page, pageSize int) ([]*ReviewRecord, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	list, total, err := uc.repo.ListReviews(ctx, page, pageSize)
	if err != nil {
		return nil, 0, rechargeErrors.Wrap(err, rechargeErrors.ErrCodeStorageFailed)
	}
	return list, total, nil
}
