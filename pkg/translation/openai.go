package translation

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig OpenAI 兼容端点配置。
// 默认指向本地 vLLM 服务，也兼容任何 OpenAI 风格的推理服务
type OpenAIConfig struct {
	// BaseURL API 地址
	BaseURL string `json:"base_url"`

	// APIKey 密钥；本地服务通常随意填写
	APIKey string `json:"api_key"`

	// Model 默认模型 ID
	Model string `json:"model"`

	// Timeout 单次请求超时
	Timeout time.Duration `json:"timeout"`
}

// DefaultOpenAIConfig 返回默认配置
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		BaseURL: "http://localhost:8000/v1",
		APIKey:  "dummy",
		Model:   "Qwen/Qwen3-32B",
		Timeout: 5 * time.Minute,
	}
}

// OpenAIClient 基于 OpenAI 兼容接口的补全客户端
type OpenAIClient struct {
	client *openai.Client
	config OpenAIConfig
}

// NewOpenAIClient 创建补全客户端
func NewOpenAIClient(config OpenAIConfig) *OpenAIClient {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8000/v1"
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}

	cfg := openai.DefaultConfig(config.APIKey)
	cfg.BaseURL = config.BaseURL
	cfg.HTTPClient = &http.Client{Timeout: config.Timeout}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		config: config,
	}
}

// GetModel 返回默认模型 ID
func (c *OpenAIClient) GetModel() string {
	return c.config.Model
}

// Complete 同步补全
func (c *OpenAIClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req, false))
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, NewError(ErrCodeTransport, "completion endpoint returned no choices", nil)
	}

	choice := resp.Choices[0]
	return &CompletionResponse{
		Text:         choice.Message.Content,
		TokensIn:     resp.Usage.PromptTokens,
		TokensOut:    resp.Usage.CompletionTokens,
		FinishReason: string(choice.FinishReason),
	}, nil
}

// CompleteStream 流式补全
func (c *OpenAIClient) CompleteStream(ctx context.Context, req *CompletionRequest) (Stream, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, c.buildRequest(req, true))
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	return &openaiStream{stream: stream}, nil
}

// buildRequest 转换为底层请求
func (c *OpenAIClient) buildRequest(req *CompletionRequest, stream bool) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = c.config.Model
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stop:        req.Stop,
		Stream:      stream,
	}
}

// openaiStream Stream 接口的流式实现
type openaiStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openaiStream) Recv() (string, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *openaiStream) Close() error {
	s.stream.Close()
	return nil
}

// classifyOpenAIError 将 SDK 错误映射到错误分类
func classifyOpenAIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return NewError(ErrCodeRateLimited, "rate limited by completion endpoint", err)
		case apiErr.HTTPStatusCode == http.StatusBadRequest && isOverflowMessage(apiErr.Message):
			return NewError(ErrCodeContextOverflow, "request exceeds model context window", err)
		case apiErr.HTTPStatusCode >= 500:
			return NewError(ErrCodeTransport, "completion endpoint server error", err)
		}
	}

	return Classify(err)
}

func isOverflowMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, pattern := range contextOverflowPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
