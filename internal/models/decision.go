package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// VetoMarker 风控否决标记，追加在风险备注中
const VetoMarker = "VETOED"

// Decision AI决策记录（每周期每标的一条）
type Decision struct {
	ID         string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Iteration  int            `gorm:"not null;index" json:"iteration"`               // 交易周期编号
	Symbol     string         `gorm:"type:varchar(20);not null;index" json:"symbol"` // 标的符号
	AssetClass AssetClass     `gorm:"type:varchar(10);not null" json:"asset_class"`  // 资产类别
	Action     Action         `gorm:"type:varchar(10);not null" json:"action"`       // buy/sell/hold
	Confidence Confidence     `gorm:"type:varchar(10)" json:"confidence"`            // 信心等级
	Quantity   float64        `gorm:"type:decimal(20,8)" json:"quantity"`            // 数量（HOLD时为0）
	Reasoning  string         `json:"reasoning"`                                     // 决策理由
	RiskNotes  string         `json:"risk_notes"`                                    // 风险备注（含否决标记）
	Vetoed     bool           `gorm:"index" json:"vetoed"`                           // 是否被风控否决
	ExecutedAt time.Time      `gorm:"not null;index" json:"executed_at"`             // 决策时间
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (Decision) TableName() string {
	return "decisions"
}

// IsVetoed 风险备注中是否含否决标记
func (d Decision) IsVetoed() bool {
	return strings.Contains(d.RiskNotes, VetoMarker)
}

// WithVeto 返回被否决后的新决策值：动作改写为HOLD，保留原理由，追加否决原因
// 纯值变换，不修改原决策，避免调用方在改写过程中读到半成品
func (d Decision) WithVeto(reason string) Decision {
	vetoed := d
	vetoed.Action = ActionHold
	vetoed.Quantity = 0
	vetoed.Vetoed = true
	note := VetoMarker + ": " + reason
	if vetoed.RiskNotes != "" {
		vetoed.RiskNotes = vetoed.RiskNotes + "; " + note
	} else {
		vetoed.RiskNotes = note
	}
	return vetoed
}
