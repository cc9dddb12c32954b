package dto

// Response 统一响应体，code 与 HTTP 状态码一致
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"totalPages"`
	TotalCount int64 `json:"totalCount"`
}

// PageQuery 通用分页参数
type PageQuery struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}
