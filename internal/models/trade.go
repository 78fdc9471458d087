package models

import (
	"time"

	"gorm.io/gorm"
)

// ExecutionStatus 订单提交结果状态
type ExecutionStatus string

const (
	ExecutionStatusFilled   ExecutionStatus = "filled"   // 已成交
	ExecutionStatusAccepted ExecutionStatus = "accepted" // 已受理未成交（无成交价）
	ExecutionStatusRejected ExecutionStatus = "rejected" // 被券商拒绝
	ExecutionStatusError    ExecutionStatus = "error"    // 提交失败（网络/服务错误）
)

// Trade 交易执行记录
// 每次非HOLD决策到达券商提交即记录一条，无论成交与否
type Trade struct {
	ID          string          `gorm:"primaryKey;type:varchar(26)" json:"id"`
	DecisionID  string          `gorm:"type:varchar(26);index" json:"decision_id"`     // 关联的决策ID
	Symbol      string          `gorm:"type:varchar(20);not null;index" json:"symbol"` // 标的符号
	AssetClass  AssetClass      `gorm:"type:varchar(10);not null" json:"asset_class"`  // 资产类别
	Side        Action          `gorm:"type:varchar(10);not null" json:"side"`         // buy/sell
	Quantity    float64         `gorm:"type:decimal(20,8);not null" json:"quantity"`   // 数量
	FillPrice   float64         `gorm:"type:decimal(20,8)" json:"fill_price"`          // 成交价格（未成交为0）
	RealizedPnl float64         `gorm:"type:decimal(20,8)" json:"realized_pnl"`        // 已实现盈亏（仅卖出成交时有值）
	Status      ExecutionStatus `gorm:"type:varchar(16);not null;index" json:"status"` // 提交结果
	ErrorDetail string          `json:"error_detail"`                                  // 失败详情
	OrderID     string          `gorm:"type:varchar(50);index" json:"order_id"`        // 券商订单ID
	TradingDay  string          `gorm:"type:varchar(10);not null;index" json:"trading_day"`
	ExecutedAt  time.Time       `gorm:"not null;index" json:"executed_at"` // 执行时间
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (Trade) TableName() string {
	return "trades"
}
