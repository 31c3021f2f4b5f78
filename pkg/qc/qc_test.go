package qc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hayasaka-lab/go-bilingual-agent/pkg/bilingual"
	"github.com/hayasaka-lab/go-bilingual-agent/pkg/translation"
)

func TestDetectorRepeatLoop(t *testing.T) {
	d := NewDetector(DefaultDetectorOptions())

	t.Run("单字符刷屏", func(t *testing.T) {
		degenerate, reason := d.Detect("いいいいいいいいいい", "好好好好好好好好好好")
		assert.True(t, degenerate)
		assert.Equal(t, ReasonNgramRepeat, reason)
	})

	t.Run("ngram循环", func(t *testing.T) {
		target := "他说他说他说他说他说他说他说他说他说他说他说他说"
		degenerate, reason := d.Detect("彼は言った", target)
		assert.True(t, degenerate)
		assert.Equal(t, ReasonNgramRepeat, reason)
	})

	t.Run("正常重复不误报", func(t *testing.T) {
		degenerate, _ := d.Detect("そうだね、そうだね", "是啊，是啊")
		assert.False(t, degenerate)
	})
}

func TestDetectorSourceCopy(t *testing.T) {
	d := NewDetector(DefaultDetectorOptions())

	t.Run("译文照抄原文", func(t *testing.T) {
		src := "これはテストですよ"
		degenerate, reason := d.Detect(src, src)
		assert.True(t, degenerate)
		assert.Equal(t, ReasonSourceCopy, reason)
	})

	t.Run("译文残留长假名段", func(t *testing.T) {
		degenerate, reason := d.Detect("彼女はそう言った", "她说そういうことだから")
		assert.True(t, degenerate)
		assert.Equal(t, ReasonSourceCopy, reason)
	})

	t.Run("半角片假名同样识别", func(t *testing.T) {
		degenerate, reason := d.Detect("ソウデスネ", "她说ｿｳｲｳｺﾄﾀﾞｶﾗ")
		assert.True(t, degenerate)
		assert.Equal(t, ReasonSourceCopy, reason)
	})

	t.Run("中文相同不算照抄", func(t *testing.T) {
		degenerate, _ := d.Detect("魔法", "魔法")
		assert.False(t, degenerate)
	})

	t.Run("短假名残留放行", func(t *testing.T) {
		degenerate, _ := d.Detect("ふふ、そうよ", "呵呵ふふ，是啊")
		assert.False(t, degenerate)
	})
}

func TestDetectorLengthRatio(t *testing.T) {
	d := NewDetector(DefaultDetectorOptions())

	t.Run("译文过短", func(t *testing.T) {
		src := "この長い文章はとても長くて、翻訳すると普通はそれなりの長さになるはずです"
		degenerate, reason := d.Detect(src, "短")
		assert.True(t, degenerate)
		assert.Equal(t, ReasonLengthRatio, reason)
	})

	t.Run("译文过长", func(t *testing.T) {
		degenerate, reason := d.Detect("はい", "这是一个远远超过原文三倍长度的译文输出结果")
		assert.True(t, degenerate)
		assert.Equal(t, ReasonLengthRatio, reason)
	})

	t.Run("正常比例", func(t *testing.T) {
		degenerate, _ := d.Detect("おはようございます", "早上好")
		assert.False(t, degenerate)
	})
}

func TestRuleChecker(t *testing.T) {
	c := NewRuleChecker(DefaultRuleOptions())

	t.Run("空白行直接通过", func(t *testing.T) {
		r := c.Check(&bilingual.Unit{Index: 1, Source: "", Target: ""})
		assert.Equal(t, bilingual.VerdictGood, r.Verdict)
	})

	t.Run("空译文", func(t *testing.T) {
		r := c.Check(&bilingual.Unit{Index: 1, Source: "原文", Target: "  "})
		assert.Equal(t, bilingual.VerdictBad, r.Verdict)
		assert.Equal(t, ReasonEmptyTarget, r.Reason)
	})

	t.Run("错误模式", func(t *testing.T) {
		r := c.Check(&bilingual.Unit{Index: 1, Source: "長い原文です", Target: "前半（以下省略）"})
		assert.Equal(t, bilingual.VerdictBad, r.Verdict)
		assert.Equal(t, ReasonErrorPattern, r.Reason)
	})

	t.Run("长串无标点", func(t *testing.T) {
		run := ""
		for i := 0; i < 90; i++ {
			run += "字"
		}
		src := ""
		for i := 0; i < 60; i++ {
			src += "あ"
		}
		r := c.Check(&bilingual.Unit{Index: 1, Source: src, Target: run})
		assert.Equal(t, bilingual.VerdictBad, r.Verdict)
		assert.Contains(t, r.Rules, ReasonMissingPunct)
	})

	t.Run("正常译文通过", func(t *testing.T) {
		r := c.Check(&bilingual.Unit{Index: 1, Source: "おはよう", Target: "早上好。"})
		assert.Equal(t, bilingual.VerdictGood, r.Verdict)
	})
}

func TestParseScore(t *testing.T) {
	cases := []struct {
		name string
		text string
		want float64
		ok   bool
	}{
		{"标准前缀", "score: 0.85", 0.85, true},
		{"全角冒号", "score：0.4", 0.4, true},
		{"带思考过程", "<think>译文有点生硬</think>\nscore: 0.7", 0.7, true},
		{"多个分数取最后", "初判 score: 0.9\n复核 score: 0.4", 0.4, true},
		{"裸数字", "质量一般，0.6", 0.6, true},
		{"整数边界", "score: 1", 1.0, true},
		{"超出范围", "score: 1.5", 0, false},
		{"无数字", "译文质量还行", 0, false},
		{"空输出", "", 0, false},
		{"只有思考过程", "<think>还没想完", 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseScore(tc.text)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.InDelta(t, tc.want, got, 1e-9)
			}
		})
	}
}

// scriptedClient 按序返回预置响应的补全客户端
type scriptedClient struct {
	responses []string
	errs      []error
	calls     int
}

func (c *scriptedClient) Complete(_ context.Context, _ *translation.CompletionRequest) (*translation.CompletionResponse, error) {
	i := c.calls
	c.calls++
	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	text := ""
	if i < len(c.responses) {
		text = c.responses[i]
	}
	return &translation.CompletionResponse{Text: text, FinishReason: "stop"}, nil
}

func (c *scriptedClient) CompleteStream(_ context.Context, _ *translation.CompletionRequest) (translation.Stream, error) {
	return nil, errors.New("not implemented")
}

func (c *scriptedClient) GetModel() string { return "test-model" }

func newTestJudge(client translation.Client, threshold float64) *Judge {
	retrier := translation.NewRetrier(translation.RetryConfig{MaxRetries: 0})
	opts := DefaultJudgeOptions()
	opts.Threshold = threshold
	return NewJudge(client, retrier, opts)
}

func TestJudgeScore(t *testing.T) {
	unit := &bilingual.Unit{Index: 1, Source: "おはよう", Target: "早上好"}

	t.Run("低于阈值判BAD", func(t *testing.T) {
		j := newTestJudge(&scriptedClient{responses: []string{"score: 0.4"}}, 0.7)
		r := j.Score(context.Background(), unit, nil)
		require.Equal(t, bilingual.VerdictBad, r.Verdict)
		assert.InDelta(t, 0.4, r.Score, 1e-9)
		assert.Equal(t, fmt.Sprintf("%s: 0.40", ReasonLowScore), r.Reason)
	})

	t.Run("达到阈值判GOOD", func(t *testing.T) {
		j := newTestJudge(&scriptedClient{responses: []string{"score: 0.7"}}, 0.7)
		r := j.Score(context.Background(), unit, nil)
		assert.Equal(t, bilingual.VerdictGood, r.Verdict)
	})

	t.Run("输出解析失败软降级", func(t *testing.T) {
		j := newTestJudge(&scriptedClient{responses: []string{"完全没有分数"}}, 0.7)
		r := j.Score(context.Background(), unit, nil)
		assert.Equal(t, bilingual.VerdictBad, r.Verdict)
		assert.Equal(t, ReasonJudgeUnparseable, r.Reason)
	})

	t.Run("调用失败软降级", func(t *testing.T) {
		client := &scriptedClient{errs: []error{translation.NewError(translation.ErrCodeContextOverflow, "overflow", nil)}}
		j := newTestJudge(client, 0.7)
		r := j.Score(context.Background(), unit, nil)
		assert.Equal(t, bilingual.VerdictBad, r.Verdict)
		assert.Equal(t, ReasonJudgeUnparseable, r.Reason)
	})
}

func TestContainsKana(t *testing.T) {
	assert.True(t, ContainsKana("これはテスト"))
	assert.True(t, ContainsKana("漢字とひらがな"))
	assert.False(t, ContainsKana("纯中文句子。"))
	assert.False(t, ContainsKana("ASCII only"))
}
