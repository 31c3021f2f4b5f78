// Package translator 实现两条文档级流程：
// 首轮翻译流水线（原文 → 双语文档）与增强模式
// （已有双语文档 → 质检 → 有界重译）。
package translator

import (
	"time"
)

// Status 一次文档处理的终态
type Status string

const (
	// StatusComplete 全部单元通过
	StatusComplete Status = "COMPLETE"

	// StatusPartial 存在重试耗尽的单元，需要人工复核
	StatusPartial Status = "PARTIAL"

	// StatusFailed 不可恢复的错误（配置、解析或端点完全不可用）
	StatusFailed Status = "FAILED"
)

// ExitCode 终态对应的进程退出码
func (s Status) ExitCode() int {
	switch s {
	case StatusComplete:
		return 0
	case StatusPartial:
		return 2
	default:
		return 1
	}
}

// ExhaustedUnit 重试耗尽的单元摘要，供报告定位
type ExhaustedUnit struct {
	// Index 文档中的行号
	Index int

	// Reason 最后一次检测的原因
	Reason string

	// Score 保留候选的评分；纯规则判定时为 0
	Score float64
}

// RunResult 一次文档处理的结果
type RunResult struct {
	// ID 运行标识，用于日志关联
	ID string

	// Input / Output 输入与输出文件路径
	Input  string
	Output string

	// Status 终态
	Status Status

	// Skipped 输出已存在且未指定覆盖，本次未处理
	Skipped bool

	// Units 文档单元总数
	Units int

	// Exhausted 重试耗尽的单元，按文档顺序
	Exhausted []ExhaustedUnit

	// TokensIn / TokensOut 累计 token 消耗
	TokensIn  int
	TokensOut int

	// Retranslations 发起的重译调用次数
	Retranslations int

	// Duration 处理耗时
	Duration time.Duration

	// Err 终态为 FAILED 时的错误
	Err error
}

// finalize 根据耗尽单元数落定终态。
// 中途取消的运行即使没有耗尽单元也只能算 PARTIAL
func (r *RunResult) finalize(start time.Time) {
	r.Duration = time.Since(start)
	if r.Status == StatusFailed {
		return
	}
	if len(r.Exhausted) > 0 || r.Err != nil {
		r.Status = StatusPartial
	} else {
		r.Status = StatusComplete
	}
}
