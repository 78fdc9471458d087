package ta

// LastValues 取序列末尾的size个值
func LastValues(s []float64, size int) []float64 {
	if l := len(s); l > size {
		return s[l-size:]
	}
	return s
}

// Highest 最近period个值中的最大值
func Highest(s []float64, period int) float64 {
	arr := LastValues(s, period)
	maxVal := arr[0]
	for _, v := range arr {
		if v > maxVal {
			maxVal = v
		}
	}
	return maxVal
}

// Lowest 最近period个值中的最小值
func Lowest(s []float64, period int) float64 {
	arr := LastValues(s, period)
	minVal := arr[0]
	for _, v := range arr {
		if v < minVal {
			minVal = v
		}
	}
	return minVal
}

// VWAP 用最近period根K线近似计算成交量加权均价
// typical price = (high+low+close)/3，成交量为0的K线跳过
func VWAP(high, low, close []float64, volume []float64, period int) float64 {
	h := LastValues(high, period)
	l := LastValues(low, period)
	c := LastValues(close, period)
	v := LastValues(volume, period)

	tpVol := 0.0
	totalVol := 0.0
	for i := range c {
		if v[i] <= 0 {
			continue
		}
		tp := (h[i] + l[i] + c[i]) / 3
		tpVol += tp * v[i]
		totalVol += v[i]
	}
	if totalVol == 0 {
		return 0
	}
	return tpVol / totalVol
}

// RangePosition 当前价在最近区间高低点之间的位置（0~100）
func RangePosition(current, lowest, highest float64) float64 {
	if highest <= lowest {
		return 50
	}
	return (current - lowest) / (highest - lowest) * 100
}

// Streak 收盘价连续上涨（正值）或下跌（负值）的天数
func Streak(close []float64) int {
	if len(close) < 2 {
		return 0
	}
	streak := 0
	for i := len(close) - 1; i > 0; i-- {
		diff := close[i] - close[i-1]
		if diff > 0 {
			if streak < 0 {
				break
			}
			streak++
		} else if diff < 0 {
			if streak > 0 {
				break
			}
			streak--
		} else {
			break
		}
	}
	return streak
}
