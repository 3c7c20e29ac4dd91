package location

import "geoloc/internal/geo"

// ErrorCode：定位失败分类（封闭集合）
type ErrorCode string

const (
	PermissionDenied    ErrorCode = "PERMISSION_DENIED"
	PositionUnavailable ErrorCode = "POSITION_UNAVAILABLE"
	Timeout             ErrorCode = "TIMEOUT"
	NotSupported        ErrorCode = "NOT_SUPPORTED"
)

// 固定文案：与错误码一一对应，供界面直接展示
const (
	MsgPermissionDenied    = "Location permission denied"
	MsgPositionUnavailable = "Position unavailable"
	MsgTimeout             = "Geolocation request timed out"
	MsgNotSupported        = "Geolocation is not supported by this browser"
)

// Failure：一次定位失败；不可变
type Failure struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (f *Failure) Error() string { return string(f.Code) + ": " + f.Message }

// Reading：一次成功定位；Accuracy 单位米，Timestamp 为毫秒时间戳
type Reading struct {
	Location  geo.Coordinate `json:"location"`
	Accuracy  float64        `json:"accuracy"`
	Timestamp int64          `json:"timestamp"`
}
