package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithVeto(t *testing.T) {
	d := Decision{
		Symbol:     "AAPL",
		AssetClass: AssetClassEquity,
		Action:     ActionBuy,
		Confidence: ConfidenceHigh,
		Quantity:   10,
		Reasoning:  "strong momentum",
	}

	got := d.WithVeto("cash reserve breach")

	assert.Equal(t, ActionHold, got.Action)
	assert.Equal(t, float64(0), got.Quantity)
	assert.True(t, got.Vetoed)
	assert.True(t, got.IsVetoed())
	assert.Equal(t, "VETOED: cash reserve breach", got.RiskNotes)
	// 原决策保持不变
	assert.Equal(t, ActionBuy, d.Action)
	assert.Equal(t, float64(10), d.Quantity)
	assert.False(t, d.Vetoed)
	// 理由保留
	assert.Equal(t, "strong momentum", got.Reasoning)
}

func TestWithVeto_AppendsToExistingNotes(t *testing.T) {
	d := Decision{Action: ActionSell, Quantity: 3, RiskNotes: "tight stop"}

	got := d.WithVeto("wash sale window")

	assert.Equal(t, "tight stop; VETOED: wash sale window", got.RiskNotes)
}

func TestAssetClassRules(t *testing.T) {
	assert.True(t, AssetClassEquity.CooldownApplies())
	assert.True(t, AssetClassEquity.WashSaleApplies())
	assert.False(t, AssetClassCrypto.CooldownApplies())
	assert.False(t, AssetClassCrypto.WashSaleApplies())
	assert.False(t, AssetClass("forex").IsValid())
}
