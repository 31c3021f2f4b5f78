package translation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hayasaka-lab/go-bilingual-agent/pkg/bilingual"
)

func TestStripReasoning(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"无思考标记", "译文内容", "译文内容"},
		{"闭合的think", "<think>先想一想</think>\n译文内容", "译文内容"},
		{"多个标记对", "<think>a</think>译文<thinking>b</thinking>", "译文"},
		{"未闭合的think", "译文内容\n<think>想到一半被截断", "译文内容"},
		{"只有思考", "<think>全是思考", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripReasoning(tc.in))
		})
	}
}

func TestParseBatchOutput(t *testing.T) {
	t.Run("按行拆分并去掉编号", func(t *testing.T) {
		out := ParseBatchOutput("1. 第一行译文\n2、第二行译文\n3) 第三行译文\n")
		assert.Equal(t, []string{"第一行译文", "第二行译文", "第三行译文"}, out)
	})

	t.Run("跳过空行与标记行", func(t *testing.T) {
		out := ParseBatchOutput("译文一\n\n[翻译完成]\n译文二\n[END]\n")
		assert.Equal(t, []string{"译文一", "译文二"}, out)
	})

	t.Run("移除思考过程", func(t *testing.T) {
		out := ParseBatchOutput("<think>逐行考虑</think>\n译文一\n译文二")
		assert.Equal(t, []string{"译文一", "译文二"}, out)
	})

	t.Run("空输出", func(t *testing.T) {
		assert.Nil(t, ParseBatchOutput(""))
		assert.Nil(t, ParseBatchOutput("<think>未完"))
	})
}

func TestParseSingleOutput(t *testing.T) {
	assert.Equal(t, "改进后的译文", ParseSingleOutput("改进后的译文\n多余的解释"))
	assert.Equal(t, "", ParseSingleOutput(""))
}

func TestErrorClassify(t *testing.T) {
	t.Run("超时", func(t *testing.T) {
		err := Classify(context.DeadlineExceeded)
		var te *Error
		require.ErrorAs(t, err, &te)
		assert.Equal(t, ErrCodeTimeout, te.Code)
		assert.True(t, te.Retryable())
	})

	t.Run("取消原样透传", func(t *testing.T) {
		err := Classify(context.Canceled)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("上下文溢出", func(t *testing.T) {
		err := Classify(errors.New("This model's maximum context length is 32768 tokens"))
		assert.True(t, IsContextOverflow(err))
		assert.False(t, IsRetryable(err))
	})

	t.Run("限流", func(t *testing.T) {
		err := Classify(errors.New("429 Too Many Requests"))
		var te *Error
		require.ErrorAs(t, err, &te)
		assert.Equal(t, ErrCodeRateLimited, te.Code)
		assert.True(t, te.Retryable())
	})

	t.Run("其他传输错误", func(t *testing.T) {
		err := Classify(errors.New("connection refused"))
		var te *Error
		require.ErrorAs(t, err, &te)
		assert.Equal(t, ErrCodeTransport, te.Code)
	})

	t.Run("已分类的错误不再包装", func(t *testing.T) {
		orig := NewError(ErrCodeContextOverflow, "overflow", nil)
		assert.Equal(t, error(orig), Classify(orig))
	})
}

// flakyClient 前 failures 次调用失败，之后成功
type flakyClient struct {
	failures int
	err      error
	calls    int
}

func (c *flakyClient) Complete(_ context.Context, _ *CompletionRequest) (*CompletionResponse, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, c.err
	}
	return &CompletionResponse{Text: "成功", FinishReason: "stop"}, nil
}

func (c *flakyClient) CompleteStream(_ context.Context, _ *CompletionRequest) (Stream, error) {
	return nil, errors.New("not implemented")
}

func (c *flakyClient) GetModel() string { return "test-model" }

func fastRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:    maxRetries,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestRetrier(t *testing.T) {
	req := &CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "テスト"}}}

	t.Run("可重试错误重试后成功", func(t *testing.T) {
		client := &flakyClient{failures: 2, err: NewError(ErrCodeTimeout, "timeout", nil)}
		r := NewRetrier(fastRetryConfig(3))

		resp, err := r.Complete(context.Background(), client, req)
		require.NoError(t, err)
		assert.Equal(t, "成功", resp.Text)
		assert.Equal(t, 3, client.calls)
	})

	t.Run("重试次数有上界", func(t *testing.T) {
		client := &flakyClient{failures: 10, err: NewError(ErrCodeTimeout, "timeout", nil)}
		r := NewRetrier(fastRetryConfig(2))

		_, err := r.Complete(context.Background(), client, req)
		require.Error(t, err)
		assert.Equal(t, 3, client.calls) // 首次 + 2 次重试
	})

	t.Run("上下文溢出不重试", func(t *testing.T) {
		client := &flakyClient{failures: 10, err: NewError(ErrCodeContextOverflow, "overflow", nil)}
		r := NewRetrier(fastRetryConfig(3))

		_, err := r.Complete(context.Background(), client, req)
		require.True(t, IsContextOverflow(err))
		assert.Equal(t, 1, client.calls)
	})

	t.Run("等待期间响应取消", func(t *testing.T) {
		client := &flakyClient{failures: 10, err: NewError(ErrCodeTimeout, "timeout", nil)}
		r := NewRetrier(RetryConfig{MaxRetries: 3, InitialDelay: time.Hour})

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		_, err := r.Complete(ctx, client, req)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, client.calls)
	})
}

func TestPromptBuilder(t *testing.T) {
	t.Run("批量消息带编号", func(t *testing.T) {
		b := NewPromptBuilder("")
		msgs := b.BuildBatchMessages(nil, []bilingual.SourceLine{
			{Index: 5, Text: "五行目"},
			{Index: 6, Text: "六行目"},
		})
		require.Len(t, msgs, 2)
		assert.Equal(t, RoleSystem, msgs[0].Role)
		assert.Contains(t, msgs[1].Content, "1. 五行目")
		assert.Contains(t, msgs[1].Content, "2. 六行目")
		assert.Contains(t, msgs[1].Content, "2 行")
	})

	t.Run("上下文标注为只读", func(t *testing.T) {
		b := NewPromptBuilder("")
		window := []*bilingual.Unit{{Index: 1, Source: "前文", Target: "前文译"}}
		msgs := b.BuildBatchMessages(window, []bilingual.SourceLine{{Index: 2, Text: "本文"}})
		assert.Contains(t, msgs[1].Content, "不要重新输出")
		assert.Contains(t, msgs[1].Content, "前文译")
	})

	t.Run("术语表附加到系统消息", func(t *testing.T) {
		b := NewPromptBuilder("魔法使い=魔法使")
		msgs := b.BuildBatchMessages(nil, []bilingual.SourceLine{{Index: 1, Text: "x"}})
		assert.Contains(t, msgs[0].Content, "魔法使い=魔法使")
	})

	t.Run("重译消息包含已发现的问题", func(t *testing.T) {
		b := NewPromptBuilder("")
		u := &bilingual.Unit{Index: 1, Source: "原文", Target: "坏译文"}
		msgs := b.BuildRetranslateMessages(u, nil, "ngram_repeat")
		assert.Contains(t, msgs[1].Content, "坏译文")
		assert.Contains(t, msgs[1].Content, "ngram_repeat")
	})
}

func TestMaxTokensFor(t *testing.T) {
	msgs := []Message{{Role: RoleUser, Content: "短い"}}

	t.Run("余量之内", func(t *testing.T) {
		got := MaxTokensFor(msgs, 4096, 0)
		assert.Greater(t, got, 500)
		assert.Less(t, got, 4096)
	})

	t.Run("下限500", func(t *testing.T) {
		assert.Equal(t, 500, MaxTokensFor(msgs, 100, 0))
	})

	t.Run("尊重上限", func(t *testing.T) {
		assert.Equal(t, 1000, MaxTokensFor(msgs, 32768, 1000))
	})
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()
	msgs := []Message{{Role: RoleUser, Content: "こんにちは"}}
	key := CacheKey("model-a", msgs)

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Set(key, "你好")
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "你好", got)

	// 不同模型产生不同的键
	assert.NotEqual(t, key, CacheKey("model-b", msgs))

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestErrorFormat(t *testing.T) {
	err := NewError(ErrCodeTimeout, "completion call timed out", fmt.Errorf("underlying"))
	assert.Contains(t, err.Error(), "[timeout]")
	assert.ErrorContains(t, err, "underlying")
	assert.Equal(t, "underlying", errors.Unwrap(err).Error())
}
