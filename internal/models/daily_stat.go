package models

import (
	"time"

	"gorm.io/gorm"
)

// DailyStat 单个交易日的风控状态
// 熔断器与当日交易计数的持久化形态，重启后据此恢复
type DailyStat struct {
	ID               string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	TradingDay       string         `gorm:"type:varchar(10);not null;uniqueIndex" json:"trading_day"` // 交易日（场所时区，YYYY-MM-DD）
	StartOfDayEquity float64        `gorm:"type:decimal(20,8);not null" json:"start_of_day_equity"`   // 开盘净值基准
	BreakerTripped   bool           `gorm:"not null;default:false" json:"breaker_tripped"`            // 熔断器是否已触发（日内单调）
	TradeCount       int            `gorm:"not null;default:0" json:"trade_count"`                    // 当日提交次数（日内只增不减）
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (DailyStat) TableName() string {
	return "daily_stats"
}
