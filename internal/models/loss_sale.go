package models

import (
	"time"

	"gorm.io/gorm"
)

// LossSale 亏损卖出记录（洗售规则数据源）
// 仅在股票类资产卖出且已实现亏损时创建；加密资产永不写入
type LossSale struct {
	ID           string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Symbol       string         `gorm:"type:varchar(20);not null;index" json:"symbol"` // 标的符号
	SaleDate     time.Time      `gorm:"not null;index" json:"sale_date"`               // 卖出日期
	RealizedLoss float64        `gorm:"type:decimal(20,8);not null" json:"realized_loss"`
	TradeID      string         `gorm:"type:varchar(26)" json:"trade_id"` // 关联的成交记录
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (LossSale) TableName() string {
	return "loss_sales"
}
