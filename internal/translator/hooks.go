package translator

import (
	"go.uber.org/zap"

	"github.com/hayasaka-lab/go-bilingual-agent/internal/logger"
	"github.com/hayasaka-lab/go-bilingual-agent/pkg/bilingual"
)

// Hooks 流程观察点。所有字段可为 nil，
// 核心逻辑的正确性不依赖任何钩子的存在
type Hooks struct {
	// OnBatchSent 批次请求已发出
	OnBatchSent func(batchIndex, lineCount int)

	// OnBatchDone 批次响应已收完并解析
	OnBatchDone func(batchIndex, tokensIn, tokensOut int)

	// OnUnitChecked 单元完成一次质检
	OnUnitChecked func(index int, verdict bilingual.Verdict, reason string)

	// OnUnitRetried 单元发起一次重译
	OnUnitRetried func(index, attempt int)
}

func (h Hooks) batchSent(batchIndex, lineCount int) {
	if h.OnBatchSent != nil {
		h.OnBatchSent(batchIndex, lineCount)
	}
}

func (h Hooks) batchDone(batchIndex, tokensIn, tokensOut int) {
	if h.OnBatchDone != nil {
		h.OnBatchDone(batchIndex, tokensIn, tokensOut)
	}
}

func (h Hooks) unitChecked(index int, verdict bilingual.Verdict, reason string) {
	if h.OnUnitChecked != nil {
		h.OnUnitChecked(index, verdict, reason)
	}
}

func (h Hooks) unitRetried(index, attempt int) {
	if h.OnUnitRetried != nil {
		h.OnUnitRetried(index, attempt)
	}
}

// LoggingHooks 把观察点落到日志的默认实现
func LoggingHooks(log logger.Logger) Hooks {
	return Hooks{
		OnBatchSent: func(batchIndex, lineCount int) {
			log.Info("批次已发送", zap.Int("批次", batchIndex), zap.Int("行数", lineCount))
		},
		OnBatchDone: func(batchIndex, tokensIn, tokensOut int) {
			log.Info("批次完成",
				zap.Int("批次", batchIndex),
				zap.Int("输入token", tokensIn),
				zap.Int("输出token", tokensOut))
		},
		OnUnitChecked: func(index int, verdict bilingual.Verdict, reason string) {
			log.Debug("单元质检",
				zap.Int("行号", index),
				zap.String("结论", string(verdict)),
				zap.String("原因", reason))
		},
		OnUnitRetried: func(index, attempt int) {
			log.Info("单元重译", zap.Int("行号", index), zap.Int("第几次", attempt))
		},
	}
}
