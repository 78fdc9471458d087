package broker

import "context"

// Broker 券商接口，交易引擎依赖的唯一外部交易面
// AlpacaClient 为真实实现，PaperBroker 在真实行情上模拟账户
type Broker interface {
	// 市场数据
	GetLatestQuote(ctx context.Context, instrument Instrument) (*Quote, error)
	GetDailyBars(ctx context.Context, instrument Instrument, limit int) ([]*Bar, error)
	GetTopMovers(ctx context.Context, limit int) ([]Instrument, error)
	GetNews(ctx context.Context, symbol string, limit int) ([]*NewsArticle, error)

	// 账户信息
	GetAccount(ctx context.Context) (*Account, error)
	GetPositions(ctx context.Context) ([]*Position, error)

	// 订单操作：每个获批决策恰好提交一次，失败不自动重试
	SubmitMarketOrder(ctx context.Context, intent OrderIntent) (*OrderResult, error)
}
