// Package api はHTTP APIで共有するレスポンス型を定義します。
package api

// ErrorResponse はエラー時のJSONレスポンスです。
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse は /healthz のレスポンスです。
type HealthResponse struct {
	Status  string `json:"status"`
	Symbols int    `json:"symbols"`
}
