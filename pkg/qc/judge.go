package qc

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hayasaka-lab/go-bilingual-agent/pkg/bilingual"
	"github.com/hayasaka-lab/go-bilingual-agent/pkg/translation"
)

const judgePreface = `你是严格的翻译质检员。给定日文原文与中文译文（附带上下文），评估译文质量：
- 关注含义对应、是否截断、是否残留日文、表达是否自然。
- 先在心里完成推理，最后一行只输出 score: <0到1之间的小数>。`

var scoreRe = regexp.MustCompile(`(?i)score\s*[:：]\s*([01](?:\.\d+)?|\.\d+)`)
var bareNumberRe = regexp.MustCompile(`\b([01](?:\.\d+)?|0?\.\d+)\b`)

// JudgeOptions 大模型质检参数
type JudgeOptions struct {
	// Model 评审使用的模型；为空时使用客户端默认模型
	Model string

	// Threshold 低于该分数判定为 BAD
	Threshold float64

	// MaxTokens 评审调用的生成上限
	MaxTokens int
}

// DefaultJudgeOptions 默认质检参数
func DefaultJudgeOptions() JudgeOptions {
	return JudgeOptions{
		Threshold: 0.7,
		MaxTokens: 2048,
	}
}

// Judge 大模型质检器：发起一次补全调用为译文打分。
// 评审失败从不向上抛错，而是软降级为 BAD，避免中断整个流程
type Judge struct {
	client  translation.Client
	retrier *translation.Retrier
	opts    JudgeOptions
}

// NewJudge 创建大模型质检器
func NewJudge(client translation.Client, retrier *translation.Retrier, opts JudgeOptions) *Judge {
	if opts.Threshold <= 0 {
		opts.Threshold = 0.7
	}
	return &Judge{client: client, retrier: retrier, opts: opts}
}

// Threshold 返回判定阈值
func (j *Judge) Threshold() float64 {
	return j.opts.Threshold
}

// Score 为一个翻译单元打分。context 为周边已接受的单元，
// 仅用于让评审理解风格与衔接
func (j *Judge) Score(ctx context.Context, u *bilingual.Unit, window []*bilingual.Unit) Result {
	req := &translation.CompletionRequest{
		Model:       j.opts.Model,
		Messages:    j.buildMessages(u, window),
		Temperature: 0,
		MaxTokens:   j.opts.MaxTokens,
	}

	resp, err := j.retrier.Complete(ctx, j.client, req)
	if err != nil {
		return Result{
			Verdict: bilingual.VerdictBad,
			Reason:  ReasonJudgeUnparseable,
		}
	}

	score, ok := ParseScore(resp.Text)
	if !ok {
		return Result{
			Verdict: bilingual.VerdictBad,
			Reason:  ReasonJudgeUnparseable,
		}
	}

	result := Result{Score: score}
	if score < j.opts.Threshold {
		result.Verdict = bilingual.VerdictBad
		result.Reason = fmt.Sprintf("%s: %.2f", ReasonLowScore, score)
	} else {
		result.Verdict = bilingual.VerdictGood
	}
	return result
}

// buildMessages 构建评审请求
func (j *Judge) buildMessages(u *bilingual.Unit, window []*bilingual.Unit) []translation.Message {
	var user strings.Builder

	if len(window) > 0 {
		user.WriteString("上下文（已接受的译文）：\n")
		for _, c := range window {
			fmt.Fprintf(&user, "原文: %s\n译文: %s\n", c.Source, c.Target)
		}
		user.WriteString("\n")
	}
	fmt.Fprintf(&user, "待评审：\n原文: %s\n译文: %s\n", u.Source, u.Target)
	user.WriteString("\n最后一行只输出 score: <0到1>。")

	return []translation.Message{
		{Role: translation.RoleSystem, Content: judgePreface},
		{Role: translation.RoleUser, Content: user.String()},
	}
}

// ParseScore 从评审输出中解析分数。
// 先清理思考过程；优先匹配 "score:" 前缀，否则取最后一个
// 落在 [0,1] 内的数字；解析失败返回 ok=false
func ParseScore(text string) (float64, bool) {
	cleaned := translation.StripReasoning(text)
	if cleaned == "" {
		return 0, false
	}

	if m := scoreRe.FindAllStringSubmatch(cleaned, -1); len(m) > 0 {
		return parseClamped(m[len(m)-1][1])
	}

	if m := bareNumberRe.FindAllStringSubmatch(cleaned, -1); len(m) > 0 {
		return parseClamped(m[len(m)-1][1])
	}

	return 0, false
}

func parseClamped(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v > 1 {
		return 0, false
	}
	return v, true
}
