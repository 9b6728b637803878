package util

import (
	"encoding/base64"
	"time"

	"github.com/goccy/go-json"
)

// EncodeTimeCursor 把游标位置(毫秒时间戳+ID)编码为 Base64 字符串
func EncodeTimeCursor(ts time.Time, id string) string {
	b, _ := json.Marshal([]interface{}{ts.UnixMilli(), id})
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeTimeCursor 解码前端传来的游标,空串返回零值
func DecodeTimeCursor(cursor string) (time.Time, string, error) {
	if cursor == "" {
		return time.Time{}, "", nil
	}
	b, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", err
	}

	var values []interface{}
	if err = json.Unmarshal(b, &values); err != nil {
		return time.Time{}, "", err
	}
	if len(values) != 2 {
		return time.Time{}, "", nil
	}

	millis, ok := values[0].(float64)
	if !ok {
		return time.Time{}, "", nil
	}
	id, _ := values[1].(string)

	return time.UnixMilli(int64(millis)), id, nil
}
