package service

import (
	"fmt"
	"strings"

	"github.com/dushixiang/helmsman/pkg/broker"
	"github.com/dushixiang/helmsman/pkg/ta"
	"github.com/markcheno/go-talib"
)

// IndicatorSet 单个标的的技术指标计算结果
type IndicatorSet struct {
	Sma20         float64
	Sma50Partial  float64 // 数据不足50根时按可用数据计算
	Rsi14         float64
	Macd          float64
	MacdSignal    float64
	MacdHist      float64
	BollUpper     float64
	BollMiddle    float64
	BollLower     float64
	Atr14         float64
	Vwap          float64
	VolumeRatio   float64 // 最新成交量相对20日均量
	RangePosition float64 // 当前价在20日高低区间中的位置（0~100）
	Streak        int     // 收盘价连涨/连跌天数
	BarCount      int
}

// IndicatorService 技术指标计算服务
type IndicatorService struct{}

// NewIndicatorService 创建指标计算服务
func NewIndicatorService() *IndicatorService {
	return &IndicatorService{}
}

// Compute 基于日线序列计算指标集
// 日线不足20根时返回nil，提示侧降级为纯价格信息
func (s *IndicatorService) Compute(bars []*broker.Bar, currentPrice float64) *IndicatorSet {
	if len(bars) < 20 {
		return nil
	}

	high := make([]float64, len(bars))
	low := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	volume := make([]float64, len(bars))
	for i, b := range bars {
		high[i] = b.High
		low[i] = b.Low
		closes[i] = b.Close
		volume[i] = float64(b.Volume)
	}

	set := &IndicatorSet{BarCount: len(bars)}

	sma20 := talib.Sma(closes, 20)
	set.Sma20 = sma20[len(sma20)-1]

	sma50Period := 50
	if len(closes) < sma50Period {
		sma50Period = len(closes)
	}
	sma50 := talib.Sma(closes, sma50Period)
	set.Sma50Partial = sma50[len(sma50)-1]

	if len(closes) >= 15 {
		rsi := talib.Rsi(closes, 14)
		set.Rsi14 = rsi[len(rsi)-1]
	}

	if len(closes) >= 34 {
		macd, signal, hist := talib.Macd(closes, 12, 26, 9)
		set.Macd = macd[len(macd)-1]
		set.MacdSignal = signal[len(signal)-1]
		set.MacdHist = hist[len(hist)-1]
	}

	upper, middle, lower := talib.BBands(closes, 20, 2, 2, talib.SMA)
	set.BollUpper = upper[len(upper)-1]
	set.BollMiddle = middle[len(middle)-1]
	set.BollLower = lower[len(lower)-1]

	if len(closes) >= 15 {
		atr := talib.Atr(high, low, closes, 14)
		set.Atr14 = atr[len(atr)-1]
	}

	set.Vwap = ta.VWAP(high, low, closes, volume, 20)

	avgVol := 0.0
	for _, v := range ta.LastValues(volume, 20) {
		avgVol += v
	}
	avgVol /= float64(len(ta.LastValues(volume, 20)))
	if avgVol > 0 {
		set.VolumeRatio = volume[len(volume)-1] / avgVol
	}

	set.RangePosition = ta.RangePosition(currentPrice, ta.Lowest(low, 20), ta.Highest(high, 20))
	set.Streak = ta.Streak(closes)

	return set
}

// Lines 指标集的提示词文本行
func (set *IndicatorSet) Lines() string {
	if set == nil {
		return "indicators: insufficient history"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SMA20: %.2f | SMA50: %.2f\n", set.Sma20, set.Sma50Partial)
	if set.Rsi14 > 0 {
		fmt.Fprintf(&b, "RSI14: %.1f\n", set.Rsi14)
	}
	if set.MacdSignal != 0 || set.Macd != 0 {
		fmt.Fprintf(&b, "MACD: %.3f | signal: %.3f | hist: %.3f\n", set.Macd, set.MacdSignal, set.MacdHist)
	}
	fmt.Fprintf(&b, "Bollinger: upper %.2f / mid %.2f / lower %.2f\n", set.BollUpper, set.BollMiddle, set.BollLower)
	if set.Atr14 > 0 {
		fmt.Fprintf(&b, "ATR14: %.2f\n", set.Atr14)
	}
	if set.Vwap > 0 {
		fmt.Fprintf(&b, "VWAP20: %.2f\n", set.Vwap)
	}
	fmt.Fprintf(&b, "volume ratio: %.2fx | 20d range position: %.0f%% | streak: %+d days\n",
		set.VolumeRatio, set.RangePosition, set.Streak)
	return b.String()
}
