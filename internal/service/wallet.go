package service

import (
	"context"

	"recharge-service/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
)

// WalletService 面向客户端的钱包查询
type WalletService struct {
	uc  *biz.WalletUseCase
	log *log.Helper
}

// NewWalletService 创建 WalletService
func NewWalletService(uc *biz.WalletUseCase, logger log.Logger) *WalletService {
	return &WalletService{
		uc:  uc,
		log: log.NewHelper(logger),
	}
}

// GetWallet 获取钱包，不存在时创建
func (s *WalletService) GetWallet(ctx context.Context, req *WalletRequest) (*WalletReply, error) {
	w, err := s.uc.GetOrCreate(ctx, req.UserID)
	if err != nil {
		s.log.Errorf("GetWallet failed: %v", err)
		return nil, err
	}
	return &WalletReply{
		UserID:       w.UserID,
		Balance:      w.Balance.StringFixed(2),
		FrozenAmount: w.FrozenAmount.StringFixed(2),
		Currency:     w.Currency,
	}, nil
}

// GetBalance 获取余额（读缓存）
func (s *WalletService) GetBalance(ctx context.Context, req *WalletRequest) (*BalanceReply, error) {
	balance, err := s.uc.GetBalance(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	return &BalanceReply{UserID: req.UserID, Balance: balance.StringFixed(2)}, nil
}

// ListTransactions 分页查询流水
func (s *WalletService) ListTransactions(ctx context.Context, req *ListTransactionsRequest) (*ListTransactionsReply, error) {
	list, total, err := s.uc.ListTransactions(ctx, req.UserID, int(req.Page), int(req.PageSize))
	if err != nil {
		s.log.Errorf("ListTransactions failed: %v", err)
		return nil, err
	}
	reply := &ListTransactionsReply{
		Total:        total,
		Transactions: make([]*TransactionInfo, 0, len(list)),
	}
	for _, t := range list {
		reply.Transactions = append(reply.Transactions, &TransactionInfo{
			ID:           t.ID,
			Type:         t.Type,
			Amount:       t.Amount.StringFixed(2),
			BalanceAfter: t.BalanceAfter.StringFixed(2),
			Description:  t.Description,
			RelatedID:    t.RelatedID,
			CreatedAt:    t.CreatedAt,
		})
	}
	return reply, nil
}
