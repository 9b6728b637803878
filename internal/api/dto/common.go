package dto

// Response 统一响应体
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// PageQuery 偏移分页查询参数
type PageQuery struct {
	Limit int `form:"limit"`
	Skip  int `form:"skip"`
}
