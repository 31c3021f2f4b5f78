package translator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hayasaka-lab/go-bilingual-agent/internal/config"
	"github.com/hayasaka-lab/go-bilingual-agent/internal/logger"
	"github.com/hayasaka-lab/go-bilingual-agent/pkg/bilingual"
	"github.com/hayasaka-lab/go-bilingual-agent/pkg/qc"
	"github.com/hayasaka-lab/go-bilingual-agent/pkg/translation"
)

// flushEvery 增强模式每处理这么多单元落盘一次
const flushEvery = 10

// Enhancer 增强模式：对已有双语文档逐单元质检，
// 未通过的单元发起有界重译。单元之间严格按文档顺序处理，
// 后续单元的上下文只包含之前已落定为 GOOD 的单元
type Enhancer struct {
	cfg     *config.Config
	client  translation.Client
	retrier *translation.Retrier
	prompts *translation.PromptBuilder
	rules   *qc.RuleChecker
	judge   *qc.Judge
	log     logger.Logger
	hooks   Hooks
}

// NewEnhancer 创建增强模式处理器
func NewEnhancer(cfg *config.Config, client translation.Client, log logger.Logger, hooks Hooks) (*Enhancer, error) {
	terminology, err := cfg.Terminology()
	if err != nil {
		return nil, err
	}

	retrier := translation.NewRetrier(retryConfig(cfg))

	judgeOpts := qc.DefaultJudgeOptions()
	judgeOpts.Model = cfg.Model
	judgeOpts.Threshold = cfg.QCThreshold

	return &Enhancer{
		cfg:     cfg,
		client:  client,
		retrier: retrier,
		prompts: translation.NewPromptBuilder(terminology),
		rules:   qc.NewRuleChecker(qc.DefaultRuleOptions()),
		judge:   qc.NewJudge(client, retrier, judgeOpts),
		log:     log,
		hooks:   hooks,
	}, nil
}

// DeriveEnhancedPath 增强模式输出路径：{stem}_enhanced.txt。
// 输入为首轮输出时先去掉 _bilingual 后缀
func DeriveEnhancedPath(input string) string {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(input, ext)
	stem = strings.TrimSuffix(stem, "_bilingual")
	return stem + "_enhanced" + ext
}

// candidate 重译过程中的一个候选译文
type candidate struct {
	target string
	score  float64
	reason string
}

// Run 对一个双语文档执行质检与有界重译。
// 输入必须是合法的双语文件，解析失败即为 FAILED
func (e *Enhancer) Run(ctx context.Context, inputPath, outputPath string) (*RunResult, error) {
	start := time.Now()
	res := &RunResult{
		ID:     uuid.NewString(),
		Input:  inputPath,
		Output: outputPath,
	}
	log := e.log.With(zap.String("run", res.ID), zap.String("文件", inputPath))

	if !e.cfg.InPlace && !e.cfg.Overwrite && !e.cfg.DryRun && outputPath != inputPath {
		if _, err := os.Stat(outputPath); err == nil {
			log.Info("输出文件已存在，跳过", zap.String("输出", outputPath))
			res.Skipped = true
			res.Status = StatusComplete
			res.Duration = time.Since(start)
			return res, nil
		}
	}

	doc, err := bilingual.ParseFile(inputPath)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		res.Duration = time.Since(start)
		return res, err
	}
	res.Units = len(doc.Units)

	log.Info("开始增强处理",
		zap.Int("单元数", len(doc.Units)),
		zap.Int("待复核", doc.BadCount()),
		zap.Bool("仅规则", e.cfg.RuleCheckOnly),
		zap.Bool("预演", e.cfg.DryRun))

	var processed int
	for _, u := range doc.Units {
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			break
		}

		e.processUnit(ctx, doc, u, res)

		processed++
		if processed%flushEvery == 0 {
			if err := e.flush(outputPath, doc); err != nil {
				res.Status = StatusFailed
				res.Err = err
				res.Duration = time.Since(start)
				return res, err
			}
		}
	}

	collectEnhancedExhausted(doc, res)
	if err := e.flush(outputPath, doc); err != nil {
		res.Status = StatusFailed
		res.Err = err
		res.Duration = time.Since(start)
		return res, err
	}

	res.finalize(start)
	log.Info("增强处理结束",
		zap.String("终态", string(res.Status)),
		zap.Int("重译次数", res.Retranslations),
		zap.Int("耗尽单元", len(res.Exhausted)))
	return res, nil
}

// processUnit 单元状态机：质检 → （必要时）有界重译 → 落定。
// 从不返回错误，所有失败都落在单元的结论与原因上
func (e *Enhancer) processUnit(ctx context.Context, doc *bilingual.Document, u *bilingual.Unit, res *RunResult) {
	if u.IsBlank() {
		u.Verdict = bilingual.VerdictGood
		u.Reason = ""
		return
	}

	// 原文不含假名：无需翻译的透传行
	if !qc.ContainsKana(u.Source) && u.Target != "" {
		u.Verdict = bilingual.VerdictGood
		u.Reason = ""
		return
	}

	// 上一轮已落定 GOOD 的单元默认不再复检，保证幂等
	if u.Verdict == bilingual.VerdictGood && !e.cfg.JudgeConfirmGood {
		return
	}

	window := e.contextWindow(doc, u)
	result := e.check(ctx, u, window)
	u.Verdict = result.Verdict
	u.Reason = result.Reason
	e.hooks.unitChecked(u.Index, result.Verdict, result.Reason)

	if result.Verdict == bilingual.VerdictGood || e.cfg.DryRun {
		return
	}

	e.retranslate(ctx, u, window, result, res)
}

// check 两段式质检：规则闸门先行，通过后才进行大模型评分
func (e *Enhancer) check(ctx context.Context, u *bilingual.Unit, window []*bilingual.Unit) qc.Result {
	if r := e.rules.Check(u); r.Verdict == bilingual.VerdictBad {
		return r
	}
	if e.cfg.RuleCheckOnly {
		return qc.Good()
	}
	return e.judge.Score(ctx, u, window)
}

// retranslate 有界重译循环。每次尝试后重新质检；
// 始终保留得分最高的候选，同分时保留较新的一个。
// 达到重试上限仍未通过的单元落定为 BAD，留给人工复核
func (e *Enhancer) retranslate(ctx context.Context, u *bilingual.Unit, window []*bilingual.Unit, first qc.Result, res *RunResult) {
	best := candidate{target: u.Target, score: first.Score, reason: first.Reason}

	for attempt := 1; attempt <= e.cfg.RetryLimit; attempt++ {
		if ctx.Err() != nil {
			break
		}

		u.Retries++
		res.Retranslations++
		e.hooks.unitRetried(u.Index, attempt)

		text, err := e.callRetranslate(ctx, u, window, best.reason)
		if err != nil {
			// 上下文溢出等不可重试错误：该单元无法继续，直接耗尽
			if !translation.IsRetryable(err) && ctx.Err() == nil {
				best.reason = errorReason(err)
				break
			}
			continue
		}
		if text == "" {
			continue
		}

		trial := &bilingual.Unit{Index: u.Index, Source: u.Source, Target: text}
		result := e.check(ctx, trial, window)
		e.hooks.unitChecked(u.Index, result.Verdict, result.Reason)

		if result.Verdict == bilingual.VerdictGood {
			u.Target = text
			u.Verdict = bilingual.VerdictGood
			u.Reason = ""
			return
		}

		if result.Score >= best.score {
			best = candidate{target: text, score: result.Score, reason: result.Reason}
		}
	}

	if best.target != "" {
		u.Target = best.target
	}
	u.Verdict = bilingual.VerdictBad
	u.Reason = best.reason
}

// callRetranslate 发起一次单行重译调用
func (e *Enhancer) callRetranslate(ctx context.Context, u *bilingual.Unit, window []*bilingual.Unit, issues string) (string, error) {
	messages := e.prompts.BuildRetranslateMessages(u, window, issues)
	req := &translation.CompletionRequest{
		Model:       e.model(),
		Messages:    messages,
		Temperature: float32(e.cfg.Temperature),
		MaxTokens:   translation.MaxTokensFor(messages, e.cfg.MaxContextTokens, e.cfg.MaxTokens),
		Stop:        e.cfg.Stop,
	}

	resp, err := e.retrier.Complete(ctx, e.client, req)
	if err != nil {
		return "", err
	}

	return translation.ParseSingleOutput(resp.Text), nil
}

// contextWindow 取单元之前最近的、已落定 GOOD 的单元作为上下文
func (e *Enhancer) contextWindow(doc *bilingual.Document, u *bilingual.Unit) []*bilingual.Unit {
	n := e.cfg.ContextLines
	if n <= 0 {
		return nil
	}

	var window []*bilingual.Unit
	for i := u.Index - 2; i >= 0 && len(window) < n; i-- {
		prev := doc.Units[i]
		if !prev.IsBlank() && prev.Verdict == bilingual.VerdictGood && prev.Target != "" {
			window = append([]*bilingual.Unit{prev}, window...)
		}
	}
	return window
}

// flush 原子落盘当前进度；预演模式不写任何文件
func (e *Enhancer) flush(outputPath string, doc *bilingual.Document) error {
	if e.cfg.DryRun {
		return nil
	}
	return bilingual.WriteFile(outputPath, doc)
}

func (e *Enhancer) model() string {
	if e.cfg.Model != "" {
		return e.cfg.Model
	}
	return e.client.GetModel()
}

// collectEnhancedExhausted 汇总耗尽单元，带上保留候选的评分
func collectEnhancedExhausted(doc *bilingual.Document, res *RunResult) {
	res.Exhausted = res.Exhausted[:0]
	for _, u := range doc.Units {
		if u.Verdict == bilingual.VerdictBad {
			res.Exhausted = append(res.Exhausted, ExhaustedUnit{
				Index:  u.Index,
				Reason: u.Reason,
			})
		}
	}
}
