package biz

import "github.com/google/wire"

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewRechargeConfig,
	NewWalletUseCase,
	NewReviewUseCase,
	NewRechargeOrderUseCase,
)
