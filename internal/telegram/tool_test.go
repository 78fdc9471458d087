package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, "BTC/USD", EscapeMarkdown("BTC/USD"))
	assert.Equal(t, "a\\_b\\*c", EscapeMarkdown("a_b*c"))
	assert.Equal(t, "\\[x\\]", EscapeMarkdown("[x]"))
}

func TestFormatTradeMessage(t *testing.T) {
	got := FormatTradeMessage("AAPL", "buy", 10, 199.5, "filled")
	assert.Contains(t, got, "BUY")
	assert.Contains(t, got, "AAPL")
	assert.Contains(t, got, "$199.50")
	assert.Contains(t, got, "filled")
}

func TestFormatVetoMessage(t *testing.T) {
	got := FormatVetoMessage("TSLA", "buy", "VETOED: wash sale window")
	assert.Contains(t, got, "Vetoed")
	assert.Contains(t, got, "TSLA")
	assert.Contains(t, got, "wash sale window")
}

func TestFormatBreakerMessage(t *testing.T) {
	got := FormatBreakerMessage(100000, 96500)
	assert.Contains(t, got, "$100000.00")
	assert.Contains(t, got, "$96500.00")
	assert.Contains(t, got, "-3.50%")
}
