// 包 format：面向用户的金额与距离文本
package format

import (
	"strconv"

	"github.com/shopspring/decimal"
)

const feetPerMile = 5280

// feetThresholdMiles：低于该距离时以英尺展示
const feetThresholdMiles = 0.1

// Price：分 → "$9.99"；保留两位小数，不加千位分隔符
func Price(cents int64) string {
	return "$" + decimal.New(cents, -2).StringFixed(2)
}

// 文档注释：距离文本
// 约束：不足 0.1 英里时换算为英尺并四舍五入到整数（"53 ft"）；否则保留一位小数（"1.0 mi"）。
// 舍入作用于浮点数的精确二进制值而非其最短十进制形式，0.15 实为 0.1499… 故得 "0.1 mi"。
func Distance(miles float64) string {
	if miles < feetThresholdMiles {
		feet := decimal.NewFromFloat(miles * feetPerMile).Round(0)
		return strconv.FormatInt(feet.IntPart(), 10) + " ft"
	}
	return exact(miles).StringFixed(1) + " mi"
}

// exact：float64 的精确十进制展开；30 位小数足以区分 x.x5 附近的舍入方向
func exact(f float64) decimal.Decimal {
	d, err := decimal.NewFromString(strconv.FormatFloat(f, 'f', 30, 64))
	if err != nil {
		return decimal.NewFromFloat(f)
	}
	return d
}
