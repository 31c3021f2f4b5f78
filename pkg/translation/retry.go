package translation

import (
	"context"
	"time"
)

// RetryConfig 有界退避重试配置
type RetryConfig struct {
	// MaxRetries 首次调用之外的最大重试次数
	MaxRetries int `json:"max_retries"`

	// InitialDelay 首次重试前的等待
	InitialDelay time.Duration `json:"initial_delay"`

	// MaxDelay 等待上限
	MaxDelay time.Duration `json:"max_delay"`

	// BackoffFactor 指数退避因子
	BackoffFactor float64 `json:"backoff_factor"`
}

// DefaultRetryConfig 返回默认重试配置
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Retrier 对可重试错误执行有界指数退避。
// 上下文溢出与调用方取消不会被重试
type Retrier struct {
	config RetryConfig
}

// NewRetrier 创建重试器
func NewRetrier(config RetryConfig) *Retrier {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = time.Second
	}
	if config.BackoffFactor < 1 {
		config.BackoffFactor = 2.0
	}
	return &Retrier{config: config}
}

// Complete 执行带重试的补全调用
func (r *Retrier) Complete(ctx context.Context, client Client, req *CompletionRequest) (*CompletionResponse, error) {
	var lastErr error
	delay := r.config.InitialDelay

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * r.config.BackoffFactor)
			if r.config.MaxDelay > 0 && delay > r.config.MaxDelay {
				delay = r.config.MaxDelay
			}
		}

		resp, err := client.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}
