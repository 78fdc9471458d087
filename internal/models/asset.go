package models

// AssetClass 资产类别
// 风控规则按类别区分适用性，类别在标的进入候选时显式打标，绝不从符号文本猜测
type AssetClass string

const (
	AssetClassEquity AssetClass = "equity" // 股票
	AssetClassCrypto AssetClass = "crypto" // 加密货币
)

func (c AssetClass) String() string {
	return string(c)
}

// IsValid 是否为已知资产类别
func (c AssetClass) IsValid() bool {
	return c == AssetClassEquity || c == AssetClassCrypto
}

// CooldownApplies 冷却规则是否适用于该类别
func (c AssetClass) CooldownApplies() bool {
	return c == AssetClassEquity
}

// WashSaleApplies 洗售规则是否适用于该类别
func (c AssetClass) WashSaleApplies() bool {
	return c == AssetClassEquity
}

// Action 交易动作
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

func (a Action) String() string {
	return string(a)
}

// IsValid 是否为已知交易动作
func (a Action) IsValid() bool {
	return a == ActionBuy || a == ActionSell || a == ActionHold
}

// Confidence 决策信心等级
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func (c Confidence) String() string {
	return string(c)
}

// IsValid 是否为已知信心等级
func (c Confidence) IsValid() bool {
	return c == ConfidenceHigh || c == ConfidenceMedium || c == ConfidenceLow
}
