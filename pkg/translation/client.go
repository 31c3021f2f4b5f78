// Package translation 定义远程补全调用的抽象与其周边设施：
// 错误分类、有界退避重试、提示词构建、批量输出解析与响应缓存。
package translation

import (
	"context"
	"io"
)

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message 对话消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest 补全请求
type CompletionRequest struct {
	// Model 模型 ID
	Model string `json:"model"`

	// Messages 对话消息
	Messages []Message `json:"messages"`

	// Temperature 采样温度。默认 0，保证重跑同一批次时输出可复现
	Temperature float32 `json:"temperature"`

	// MaxTokens 最大生成 token 数；0 表示交由服务端决定
	MaxTokens int `json:"max_tokens,omitempty"`

	// Stop 停止序列
	Stop []string `json:"stop,omitempty"`
}

// CompletionResponse 补全响应
type CompletionResponse struct {
	// Text 生成的文本
	Text string `json:"text"`

	// TokensIn 输入 token 数
	TokensIn int `json:"tokens_in"`

	// TokensOut 输出 token 数
	TokensOut int `json:"tokens_out"`

	// FinishReason 结束原因（stop/length/...）
	FinishReason string `json:"finish_reason"`
}

// Truncated 输出是否因长度限制被截断
func (r *CompletionResponse) Truncated() bool {
	return r.FinishReason == "length"
}

// Stream 流式响应。按块消费，io.EOF 表示正常结束；
// 只有完整收完并解析后，结果才能参与质检
type Stream interface {
	// Recv 读取下一个文本块
	Recv() (string, error)

	// Close 关闭流
	Close() error
}

// Client 远程补全调用抽象。实现负责传输细节与错误分类
type Client interface {
	// Complete 同步补全
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// CompleteStream 流式补全
	CompleteStream(ctx context.Context, req *CompletionRequest) (Stream, error)

	// GetModel 返回默认模型 ID
	GetModel() string
}

// Collect 同步消费整个流并拼接为完整响应文本
func Collect(s Stream) (string, error) {
	defer s.Close()

	var b []byte
	for {
		chunk, err := s.Recv()
		if err == io.EOF {
			return string(b), nil
		}
		if err != nil {
			return string(b), err
		}
		b = append(b, chunk...)
	}
}
