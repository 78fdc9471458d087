package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AccountHistory 账户历史记录（每周期一条快照）
type AccountHistory struct {
	ID                  string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Equity              float64        `gorm:"type:decimal(20,8);not null" json:"equity"`       // 账户净值
	Cash                float64        `gorm:"type:decimal(20,8)" json:"cash"`                  // 现金
	BuyingPower         float64        `gorm:"type:decimal(20,8)" json:"buying_power"`          // 购买力
	InitialEquity       float64        `gorm:"type:decimal(20,8)" json:"initial_equity"`        // 初始净值
	PeakEquity          float64        `gorm:"type:decimal(20,8)" json:"peak_equity"`           // 峰值净值
	ReturnPercent       float64        `gorm:"type:decimal(10,4)" json:"return_percent"`        // 收益率
	DrawdownFromPeak    float64        `gorm:"type:decimal(10,4)" json:"drawdown_from_peak"`    // 从峰值的回撤
	DailyPnlPercent     float64        `gorm:"type:decimal(10,4)" json:"daily_pnl_percent"`     // 当日盈亏百分比
	Positions           datatypes.JSON `gorm:"type:json" json:"positions"`                      // 持仓明细快照
	Iteration           int            `gorm:"type:int;index" json:"iteration"`                 // 交易周期数
	TradingDay          string         `gorm:"type:varchar(10);index" json:"trading_day"`       // 交易日
	RecordedAt          time.Time      `gorm:"not null;index" json:"recorded_at"`               // 记录时间
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (AccountHistory) TableName() string {
	return "account_histories"
}
