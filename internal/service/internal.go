package service

import (
	"context"

	"recharge-service/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
)

// InternalService 面向内部服务与运营的接口（扣币、账本核对、复核记录）
type InternalService struct {
	wallet *biz.WalletUseCase
	review *biz.ReviewUseCase
	log    *log.Helper
}

// NewInternalService 创建 InternalService
func NewInternalService(wallet *biz.WalletUseCase, review *biz.ReviewUseCase, logger log.Logger) *InternalService {
	return &InternalService{
		wallet: wallet,
		review: review,
		log:    log.NewHelper(logger),
	}
}

// Debit 扣币，related_id 重复时不重复扣减
func (s *InternalService) Debit(ctx context.Context, req *DebitRequest) (*DebitReply, error) {
	balance, err := s.wallet.Debit(ctx, req.UserID, req.Amount, req.Description, req.RelatedID)
	if err != nil {
		s.log.Errorf("Debit failed: user_id=%s, related_id=%s, error=%v", req.UserID, req.RelatedID, err)
		return nil, err
	}
	return &DebitReply{BalanceAfter: balance.StringFixed(2)}, nil
}

// Audit 重放流水核对余额，不一致时返回 LEDGER_MISMATCH，核对明细在错误 metadata 中
func (s *InternalService) Audit(ctx context.Context, req *WalletRequest) (*AuditReply, error) {
	a, err := s.wallet.Audit(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	return &AuditReply{
		UserID:      a.UserID,
		Balance:     a.Balance.StringFixed(2),
		Replayed:    a.Replayed.StringFixed(2),
		Entries:     a.Entries,
		Consistent:  a.Consistent,
		FirstBadRow: a.FirstBadRow,
	}, nil
}

// ListReviews 分页查询复核记录
func (s *InternalService) ListReviews(ctx context.Context, req *ListReviewsRequest) (*ListReviewsReply, error) {
	list, total, err := s.review.List(ctx, int(req.Page), int(req.PageSize))
	if err != nil {
		return nil, err
	}
	reply := &ListReviewsReply{
		Total:   total,
		Reviews: make([]*ReviewInfo, 0, len(list)),
	}
	for _, r := range list {
		reply.Reviews = append(reply.Reviews, &ReviewInfo{
			ID:            r.ID,
			OrderID:       r.OrderID,
			Reason:        r.Reason,
			TransactionID: r.TransactionID,
			PaidAmount:    r.PaidAmount.StringFixed(2),
			Detail:        r.Detail,
			CreatedAt:     r.CreatedAt,
		})
	}
	return reply, nil
}
