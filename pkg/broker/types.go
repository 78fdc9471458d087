package broker

import "time"

// 通用券商类型定义，独立于任何特定券商
// 方便切换纸面账户与真实账户，或接入其他券商

// AssetClass 资产类别
type AssetClass string

const (
	AssetClassEquity AssetClass = "equity"
	AssetClassCrypto AssetClass = "crypto"
)

// Instrument 可交易标的：符号加显式资产类别
// 类别由来源声明（配置分组或筛选器接口），不从符号文本猜测
type Instrument struct {
	Symbol string     `json:"symbol"`
	Class  AssetClass `json:"class"`
}

// OrderSide 订单方向
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusFilled   OrderStatus = "filled"
	OrderStatusAccepted OrderStatus = "accepted"
	OrderStatusRejected OrderStatus = "rejected"
)

// Account 账户信息
type Account struct {
	Equity      float64 `json:"equity"`       // 账户净值
	Cash        float64 `json:"cash"`         // 现金
	BuyingPower float64 `json:"buying_power"` // 购买力
	LastEquity  float64 `json:"last_equity"`  // 上一交易日收盘净值
}

// Position 持仓信息
type Position struct {
	Symbol           string     `json:"symbol"`
	Class            AssetClass `json:"class"`
	Quantity         float64    `json:"quantity"`
	AvgEntryPrice    float64    `json:"avg_entry_price"`
	CurrentPrice     float64    `json:"current_price"`
	MarketValue      float64    `json:"market_value"`
	UnrealizedPnl    float64    `json:"unrealized_pnl"`
	UnrealizedPnlPct float64    `json:"unrealized_pnl_pct"`
}

// Quote 最新报价
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// Bar 日线K线
type Bar struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// NewsArticle 标的相关新闻
type NewsArticle struct {
	Symbol    string    `json:"symbol"`
	Headline  string    `json:"headline"`
	Source    string    `json:"source"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderIntent 订单意图（市价单）
type OrderIntent struct {
	Symbol   string     `json:"symbol"`
	Class    AssetClass `json:"class"`
	Side     OrderSide  `json:"side"`
	Quantity float64    `json:"quantity"`
}

// OrderResult 订单提交结果
type OrderResult struct {
	OrderID   string      `json:"order_id"`
	Symbol    string      `json:"symbol"`
	Side      OrderSide   `json:"side"`
	Quantity  float64     `json:"quantity"`
	FillPrice float64     `json:"fill_price"` // 未成交时为0
	Status    OrderStatus `json:"status"`
}

func (s OrderSide) String() string {
	return string(s)
}

func (s OrderStatus) String() string {
	return string(s)
}

func (a AssetClass) String() string {
	return string(a)
}
