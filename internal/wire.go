//go:build wireinject
// +build wireinject

package internal

import (
	"github.com/google/wire"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dushixiang/helmsman/internal/config"
	"github.com/dushixiang/helmsman/internal/handler"
	"github.com/dushixiang/helmsman/internal/service"
)

var (
	handlerSet = wire.NewSet(
		handler.NewTradingHandler,
	)

	tradingSet = wire.NewSet(
		provideBroker,
		provideOpenAIClient,
		provideCircuitBreaker,
		provideRiskService,
		service.NewCooldownTracker,
		service.NewDailyTradeCounter,
		service.NewWashSaleTracker,
		service.NewIndicatorService,
		service.NewMarketService,
		service.NewTradingAccountService,
		service.NewPromptService,
		service.NewAgentService,
		service.NewExecutionService,
		service.NewTradingLoop,
	)
)

// InitializeApp 初始化应用
func InitializeApp(logger *zap.Logger, db *gorm.DB, conf *config.Config) (*AppComponents, error) {
	wire.Build(
		handlerSet,
		tradingSet,
		provideTelegram,
		wire.Struct(new(AppComponents), "*"),
	)
	return nil, nil
}
