package telegram

import (
	"fmt"
	"strings"
)

// EscapeMarkdown 转义Markdown格式中的特殊字符
func EscapeMarkdown(input string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"*", "\\*",
		"_", "\\_",
		"`", "\\`",
		"[", "\\[",
		"]", "\\]",
	)
	return replacer.Replace(input)
}

// FormatTradeMessage 格式化成交通知
func FormatTradeMessage(symbol, side string, quantity, fillPrice float64, status string) string {
	return fmt.Sprintf("*Trade* %s %s x%.4f @ $%.2f (%s)",
		strings.ToUpper(side), EscapeMarkdown(symbol), quantity, fillPrice, EscapeMarkdown(status))
}

// FormatBreakerMessage 格式化熔断触发通知
func FormatBreakerMessage(startOfDayEquity, currentEquity float64) string {
	lossPct := 0.0
	if startOfDayEquity > 0 {
		lossPct = (currentEquity - startOfDayEquity) / startOfDayEquity * 100
	}
	return fmt.Sprintf("*Circuit breaker tripped* equity $%.2f → $%.2f (%.2f%%), trading halted for the day",
		startOfDayEquity, currentEquity, lossPct)
}

// FormatVetoMessage 格式化风控否决通知
func FormatVetoMessage(symbol, action, reason string) string {
	return fmt.Sprintf("*Vetoed* %s %s: %s",
		strings.ToUpper(action), EscapeMarkdown(symbol), EscapeMarkdown(reason))
}
