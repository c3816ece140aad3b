// Package storage はs3://ロケーションのソースを読むためのS3クライアントを生成します。
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	platformhttp "chart_backend/internal/platform/http"
)

// S3Config はS3（またはS3互換ストレージ）への接続設定です。
type S3Config struct {
	Region string
	// Endpoint はMinIOなどS3互換ストレージのURLです。空ならAWSのデフォルト。
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
	// Timeout は1オブジェクト取得あたりのHTTPタイムアウトです。
	Timeout time.Duration
}

// loadOptions はS3Configからaws configのロードオプションを組み立てます。
func loadOptions(cfg S3Config) []func(*config.LoadOptions) error {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	opts := []func(*config.LoadOptions) error{
		// BuildableClient を渡すことで、AWS_CA_BUNDLE などSDK側のTLS設定をトランスポートに適用できる
		config.WithHTTPClient(awshttp.NewBuildableClient().
			WithTimeout(timeout).
			WithTransportOptions(platformhttp.TuneTransport)),
	}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	// 静的キーが両方あるときのみ使用し、それ以外はデフォルトのクレデンシャルチェーンに任せる
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	return opts
}

// clientOptions はエンドポイントとパススタイルの設定をs3.Optionsへ適用します。
func clientOptions(cfg S3Config) func(*s3.Options) {
	return func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	}
}

// NewS3Client はS3クライアントを生成します。接続確認は行いません。
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	slog.Info("s3 client configured", "region", awsCfg.Region, "endpoint", cfg.Endpoint, "path_style", cfg.PathStyle)
	return s3.NewFromConfig(awsCfg, clientOptions(cfg)), nil
}
