package translation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// 错误代码。区分可重试、需要重切分与致命三类处理路径
const (
	// ErrCodeScheduling 配置非法，未发起任何网络调用即中止
	ErrCodeScheduling = "scheduling"

	// ErrCodeContextOverflow 请求超出模型上下文窗口，通过重切分恢复
	ErrCodeContextOverflow = "context_overflow"

	// ErrCodeTimeout 单次调用超时，可退避重试
	ErrCodeTimeout = "timeout"

	// ErrCodeRateLimited 被限流，可退避重试
	ErrCodeRateLimited = "rate_limited"

	// ErrCodeTransport 其他传输错误
	ErrCodeTransport = "transport"
)

// Error 补全调用错误
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable 是否可以原样重试。上下文溢出不在此列：
// 重发同样的请求只会再次失败，必须先重切分
func (e *Error) Retryable() bool {
	switch e.Code {
	case ErrCodeTimeout, ErrCodeRateLimited, ErrCodeTransport:
		return true
	default:
		return false
	}
}

// NewError 创建补全调用错误
func NewError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// IsContextOverflow 是否为上下文溢出错误
func IsContextOverflow(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Code == ErrCodeContextOverflow
}

// IsRetryable 是否为可重试错误
func IsRetryable(err error) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Retryable()
	}
	return false
}

// 服务端在 400 响应里描述上下文溢出的常见措辞
var contextOverflowPatterns = []string{
	"context length",
	"context_length_exceeded",
	"maximum context",
	"reduce the length",
	"too many tokens",
}

// Classify 将底层调用错误归入错误分类。nil 原样返回
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var te *Error
	if errors.As(err, &te) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrCodeTimeout, "completion call timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(ErrCodeTimeout, "completion call timed out", err)
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range contextOverflowPatterns {
		if strings.Contains(msg, pattern) {
			return NewError(ErrCodeContextOverflow, "request exceeds model context window", err)
		}
	}
	if strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") {
		return NewError(ErrCodeRateLimited, "rate limited by completion endpoint", err)
	}

	return NewError(ErrCodeTransport, "completion call failed", err)
}
