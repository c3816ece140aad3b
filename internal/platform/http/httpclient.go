// Package http はオブジェクトストレージなど外部呼び出し用のHTTPトランスポート設定を提供します。
package http

import (
	"net"
	"net/http"
	"time"
)

// TuneTransport は外部呼び出し用の接続設定をtに適用します。
// リクエスト全体のタイムアウトはクライアント側（呼び出し元）で設定してください。
//
// 設定:
//   - Proxy: 環境変数（HTTPS_PROXYなど）が設定されている場合に使用
//   - Dialer.Timeout: TCP接続タイムアウト（デフォルトより短い）
//   - MaxIdleConnsPerHost: 同一バケットへの分割ファイル取得で接続を再利用する
//
// TLSClientConfig には触れないため、AWS SDKが設定するカスタムCA（AWS_CA_BUNDLE）は維持されます。
func TuneTransport(t *http.Transport) {
	t.Proxy = http.ProxyFromEnvironment
	t.DialContext = (&net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = 16
	t.IdleConnTimeout = 90 * time.Second
	t.TLSHandshakeTimeout = 5 * time.Second
}
