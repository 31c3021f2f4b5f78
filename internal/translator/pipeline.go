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
	"github.com/hayasaka-lab/go-bilingual-agent/pkg/scheduler"
	"github.com/hayasaka-lab/go-bilingual-agent/pkg/translation"
)

// ReasonLineCountMismatch 模型返回行数与请求不符时的标注原因
const ReasonLineCountMismatch = "line_count_mismatch"

// Pipeline 首轮翻译流水线。批次严格按文档顺序处理，
// 后一批次的上下文只依赖之前已完成的批次
type Pipeline struct {
	cfg     *config.Config
	client  translation.Client
	retrier *translation.Retrier
	prompts *translation.PromptBuilder
	cache   *translation.MemoryCache
	log     logger.Logger
	hooks   Hooks
}

// NewPipeline 创建翻译流水线
func NewPipeline(cfg *config.Config, client translation.Client, log logger.Logger, hooks Hooks) (*Pipeline, error) {
	terminology, err := cfg.Terminology()
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:     cfg,
		client:  client,
		retrier: translation.NewRetrier(retryConfig(cfg)),
		prompts: translation.NewPromptBuilder(terminology),
		cache:   translation.NewMemoryCache(),
		log:     log,
		hooks:   hooks,
	}, nil
}

// retryConfig 由运行配置派生传输层重试配置
func retryConfig(cfg *config.Config) translation.RetryConfig {
	rc := translation.DefaultRetryConfig()
	if cfg.MaxRetries >= 0 {
		rc.MaxRetries = cfg.MaxRetries
	}
	return rc
}

// DeriveOutputPath 首轮输出路径：{stem}_bilingual.txt
func DeriveOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_bilingual" + ext
}

// Run 翻译一个文档并写出双语文件。
// 除配置错误与输入不可读外不返回 error：批次级错误降级为
// 受影响单元的标注，处理继续进行
func (p *Pipeline) Run(ctx context.Context, inputPath, outputPath string) (*RunResult, error) {
	start := time.Now()
	res := &RunResult{
		ID:     uuid.NewString(),
		Input:  inputPath,
		Output: outputPath,
	}
	log := p.log.With(zap.String("run", res.ID), zap.String("文件", inputPath))

	if !p.cfg.Overwrite {
		if _, err := os.Stat(outputPath); err == nil {
			log.Info("输出文件已存在，跳过", zap.String("输出", outputPath))
			res.Skipped = true
			res.Status = StatusComplete
			res.Duration = time.Since(start)
			return res, nil
		}
	}

	meta, lines, err := bilingual.ReadSource(inputPath)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		res.Duration = time.Since(start)
		return res, err
	}

	doc := bilingual.NewDocument(meta, lines)
	res.Units = len(doc.Units)

	batches, err := scheduler.Schedule(lines, p.cfg.BatchSize, p.cfg.ContextLines)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		res.Duration = time.Since(start)
		return res, err
	}

	log.Info("开始首轮翻译",
		zap.Int("总行数", len(lines)),
		zap.Int("批次数", len(batches)),
		zap.Int("批次大小", p.cfg.BatchSize))

	var batchErrors int
	var lastErr error
	for _, b := range batches {
		if ctx.Err() != nil {
			// 取消时保留已完成的工作
			res.Err = ctx.Err()
			break
		}

		if err := p.translateBatch(ctx, doc, b, res, true); err != nil {
			if ctx.Err() != nil {
				res.Err = ctx.Err()
				break
			}
			// 批次级错误：降级本批次单元，继续后续批次
			batchErrors++
			lastErr = err
			p.markBatch(doc, b, errorReason(err))
			log.Error("批次处理失败，降级继续",
				zap.Int("批次", b.Index), zap.Error(err))
		}

		if err := p.flush(outputPath, doc); err != nil {
			res.Status = StatusFailed
			res.Err = err
			res.Duration = time.Since(start)
			return res, err
		}
	}

	// 端点完全不可用：没有任何单元得到译文
	if batchErrors == len(batches) && batchErrors > 0 && !anyTranslated(doc) {
		res.Status = StatusFailed
		res.Err = lastErr
		res.Duration = time.Since(start)
		return res, lastErr
	}

	collectExhausted(doc, res)
	if err := p.flush(outputPath, doc); err != nil {
		res.Status = StatusFailed
		res.Err = err
		res.Duration = time.Since(start)
		return res, err
	}

	res.finalize(start)
	log.Info("首轮翻译结束",
		zap.String("终态", string(res.Status)),
		zap.Int("待复核", len(res.Exhausted)),
		zap.Int("输入token", res.TokensIn),
		zap.Int("输出token", res.TokensOut))
	return res, nil
}

// translateBatch 翻译一个批次并把结果写回文档。
// 上下文溢出时对半重切一次（切分后不携带上下文），
// 仍然溢出的部分降级为 context_overflow
func (p *Pipeline) translateBatch(ctx context.Context, doc *bilingual.Document, b scheduler.Batch, res *RunResult, allowResplit bool) error {
	translatable := b.TranslatableLines()
	if len(translatable) == 0 {
		return nil
	}

	window := p.contextBefore(doc, b)
	messages := p.prompts.BuildBatchMessages(window, translatable)

	key := translation.CacheKey(p.model(), messages)
	if cached, ok := p.cache.Get(key); ok {
		p.applyOutputs(doc, translatable, translation.ParseBatchOutput(cached))
		return nil
	}

	req := &translation.CompletionRequest{
		Model:       p.model(),
		Messages:    messages,
		Temperature: float32(p.cfg.Temperature),
		MaxTokens:   translation.MaxTokensFor(messages, p.cfg.MaxContextTokens, p.cfg.MaxTokens),
		Stop:        p.cfg.Stop,
	}

	p.hooks.batchSent(b.Index, len(translatable))

	var resp *translation.CompletionResponse
	var err error
	if p.cfg.StreamOutput {
		resp, err = p.completeStreaming(ctx, req)
	} else {
		resp, err = p.retrier.Complete(ctx, p.client, req)
	}

	if translation.IsContextOverflow(err) {
		if allowResplit {
			if halves := scheduler.Resplit(b); len(halves) == 2 {
				p.log.Warn("批次超出上下文窗口，对半重切",
					zap.Int("批次", b.Index), zap.Int("行数", len(b.Lines)))
				if err := p.translateBatch(ctx, doc, halves[0], res, false); err != nil {
					return err
				}
				return p.translateBatch(ctx, doc, halves[1], res, false)
			}
		}
		p.markBatch(doc, b, translation.ErrCodeContextOverflow)
		return nil
	}
	if err != nil {
		return err
	}

	res.TokensIn += resp.TokensIn
	res.TokensOut += resp.TokensOut
	p.hooks.batchDone(b.Index, resp.TokensIn, resp.TokensOut)

	if resp.Truncated() {
		p.log.Warn("批次输出被截断", zap.Int("批次", b.Index))
	}

	outputs := translation.ParseBatchOutput(resp.Text)
	if len(outputs) == len(translatable) {
		p.cache.Set(key, resp.Text)
	}
	p.applyOutputs(doc, translatable, outputs)
	return nil
}

// applyOutputs 按索引对齐译文。行数不匹配时多余输出丢弃、
// 缺失的行标注为 line_count_mismatch，后续行绝不发生移位
func (p *Pipeline) applyOutputs(doc *bilingual.Document, translatable []bilingual.SourceLine, outputs []string) {
	if len(outputs) != len(translatable) {
		p.log.Warn("批次行数不匹配",
			zap.Int("请求行数", len(translatable)),
			zap.Int("返回行数", len(outputs)))
	}

	for i, line := range translatable {
		u := doc.Units[line.Index-1]
		if i < len(outputs) {
			u.Target = outputs[i]
		} else {
			u.Verdict = bilingual.VerdictBad
			u.Reason = ReasonLineCountMismatch
		}
	}
}

// completeStreaming 走流式接口并同步收完整个响应。
// 结果只有在完整收完后才参与对齐与质检
func (p *Pipeline) completeStreaming(ctx context.Context, req *translation.CompletionRequest) (*translation.CompletionResponse, error) {
	stream, err := p.client.CompleteStream(ctx, req)
	if err != nil {
		return nil, err
	}

	text, err := translation.Collect(stream)
	if err != nil {
		return nil, err
	}
	return &translation.CompletionResponse{Text: text, FinishReason: "stop"}, nil
}

// contextBefore 取批次之前最近的已翻译单元作为只读上下文
func (p *Pipeline) contextBefore(doc *bilingual.Document, b scheduler.Batch) []*bilingual.Unit {
	if b.ContextLines <= 0 {
		return nil
	}

	var window []*bilingual.Unit
	for i := b.Start() - 2; i >= 0 && len(window) < b.ContextLines; i-- {
		u := doc.Units[i]
		if !u.IsBlank() && u.Target != "" {
			window = append([]*bilingual.Unit{u}, window...)
		}
	}
	return window
}

// markBatch 将批次中所有非空白单元降级标注
func (p *Pipeline) markBatch(doc *bilingual.Document, b scheduler.Batch, reason string) {
	for _, line := range b.Lines {
		if line.IsBlank() {
			continue
		}
		u := doc.Units[line.Index-1]
		u.Verdict = bilingual.VerdictBad
		u.Reason = reason
	}
}

// flush 将当前进度原子写盘；预演模式不落盘
func (p *Pipeline) flush(outputPath string, doc *bilingual.Document) error {
	if p.cfg.DryRun {
		return nil
	}
	return bilingual.WriteFile(outputPath, doc)
}

func (p *Pipeline) model() string {
	if p.cfg.Model != "" {
		return p.cfg.Model
	}
	return p.client.GetModel()
}

// errorReason 把调用错误映射为单元标注原因
func errorReason(err error) string {
	if te, ok := err.(*translation.Error); ok {
		return te.Code
	}
	return translation.ErrCodeTransport
}

// anyTranslated 是否有任何单元得到了译文
func anyTranslated(doc *bilingual.Document) bool {
	for _, u := range doc.Units {
		if !u.IsBlank() && u.Target != "" {
			return true
		}
	}
	return false
}

// collectExhausted 汇总需要人工复核的单元
func collectExhausted(doc *bilingual.Document, res *RunResult) {
	res.Exhausted = res.Exhausted[:0]
	for _, u := range doc.Units {
		if u.Verdict == bilingual.VerdictBad {
			res.Exhausted = append(res.Exhausted, ExhaustedUnit{Index: u.Index, Reason: u.Reason})
		}
	}
}
