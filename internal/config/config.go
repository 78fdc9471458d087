package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Telegram TelegramConf `json:"telegram"`
	Alpaca   AlpacaConf   `json:"alpaca"`
	Trading  TradingConf  `json:"trading"`
	Risk     RiskConf     `json:"risk"`
	LLM      LlmConf      `json:"llm"`
}

type TelegramConf struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  string `json:"chat_id"`
}

type AlpacaConf struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	Paper     bool   `json:"paper"` // 是否使用纸面交易入口
}

type TradingConf struct {
	Enabled         bool            `json:"enabled"`          // 是否提交真实订单，false时使用内存模拟账户
	PaperWallet     PaperWalletConf `json:"paper_wallet"`     // 模拟账户配置
	Watchlist       []string        `json:"watchlist"`        // 股票观察列表，如 ["AAPL", "MSFT"]
	CryptoWatchlist []string        `json:"crypto_watchlist"` // 加密货币观察列表，如 ["BTC/USD"]
	IntervalMinutes int             `json:"interval_minutes" validate:"min=1"` // 交易周期（分钟），默认30
	DiscoverMovers  bool            `json:"discover_movers"`  // 是否合并当日涨幅榜标的
	MaxMovers       int             `json:"max_movers"`       // 涨幅榜最多纳入数量，默认5
	MarketOpen      string          `json:"market_open"`      // 股票交易时段开始，如 "09:35"
	MarketClose     string          `json:"market_close"`     // 股票交易时段结束，如 "15:55"
}

type PaperWalletConf struct {
	InitialBalance float64 `json:"initial_balance"` // 初始资金（USD），默认100000
}

// RiskConf 风控阈值，启动前校验，非法配置直接拒绝启动
type RiskConf struct {
	MaxPositionPct         float64 `json:"max_position_pct" validate:"gt=0,lte=100"`           // 单一持仓占净值上限（%）
	LowPriceThreshold      float64 `json:"low_price_threshold" validate:"gte=0"`               // 低价股价格阈值（$）
	LowPriceMaxPositionPct float64 `json:"low_price_max_position_pct" validate:"gt=0,lte=100"` // 低价股持仓上限（%）
	MaxPortfolioRiskPct    float64 `json:"max_portfolio_risk_pct" validate:"gt=0,lte=100"`     // 总投入资金占净值上限（%）
	DailyLossLimitPct      float64 `json:"daily_loss_limit_pct" validate:"gt=0,lte=100"`       // 当日亏损熔断阈值（%）
	MaxTradesPerDay        int     `json:"max_trades_per_day" validate:"min=1"`                // 当日最大提交次数
	MinCashReservePct      float64 `json:"min_cash_reserve_pct" validate:"gte=0,lt=100"`       // 最低现金储备（%）
}

type LlmConf struct {
	BaseURL  string `json:"base_url"`  // LLM API基础URL
	APIKey   string `json:"api_key"`   // LLM API密钥
	Model    string `json:"model"`     // 模型名称
	ProxyURL string `json:"proxy_url"` // 代理地址，例如: http://127.0.0.1:7890
}

// 冷却时长与洗售窗口由法规/策略固定，不开放配置
const (
	EquityCooldownMinutes = 20 // 股票同标的重决策最短间隔（分钟）
	WashSaleWindowDays    = 30 // 洗售规则回看窗口（天）
)

// SetDefaults 填充缺省值
func (c *Config) SetDefaults() {
	if c.Trading.IntervalMinutes <= 0 {
		c.Trading.IntervalMinutes = 30
	}
	if c.Trading.MaxMovers <= 0 {
		c.Trading.MaxMovers = 5
	}
	if c.Trading.MarketOpen == "" {
		c.Trading.MarketOpen = "09:35"
	}
	if c.Trading.MarketClose == "" {
		c.Trading.MarketClose = "15:55"
	}
	if c.Trading.PaperWallet.InitialBalance <= 0 {
		c.Trading.PaperWallet.InitialBalance = 100000
	}
	if c.Risk.MaxPositionPct == 0 {
		c.Risk.MaxPositionPct = 15
	}
	if c.Risk.LowPriceThreshold == 0 {
		c.Risk.LowPriceThreshold = 10
	}
	if c.Risk.LowPriceMaxPositionPct == 0 {
		c.Risk.LowPriceMaxPositionPct = 3
	}
	if c.Risk.MaxPortfolioRiskPct == 0 {
		c.Risk.MaxPortfolioRiskPct = 80
	}
	if c.Risk.DailyLossLimitPct == 0 {
		c.Risk.DailyLossLimitPct = 3
	}
	if c.Risk.MaxTradesPerDay == 0 {
		c.Risk.MaxTradesPerDay = 10
	}
	if c.Risk.MinCashReservePct == 0 {
		c.Risk.MinCashReservePct = 20
	}
}

// Validate 启动前校验风控配置，失败即拒绝启动
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Risk.LowPriceMaxPositionPct > c.Risk.MaxPositionPct {
		return fmt.Errorf("invalid configuration: low_price_max_position_pct must not exceed max_position_pct")
	}
	if len(c.Trading.Watchlist) == 0 && len(c.Trading.CryptoWatchlist) == 0 {
		return fmt.Errorf("invalid configuration: watchlist and crypto_watchlist are both empty")
	}
	return nil
}
