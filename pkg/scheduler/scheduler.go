// Package scheduler 把文档切分为有界的翻译批次。
// 批次对原文行的所有权互不重叠、无缝覆盖整个文档；
// 上下文行只读共享，不会被重复翻译。
package scheduler

import (
	"errors"
	"fmt"

	"github.com/hayasaka-lab/go-bilingual-agent/pkg/bilingual"
)

// ErrInvalidBatchSize 批次大小非法。属于配置错误，
// 在发起任何网络调用之前即中止
var ErrInvalidBatchSize = errors.New("scheduler: max batch size must be positive")

// Batch 一个有界的翻译批次
type Batch struct {
	// Index 批次序号，从 1 开始
	Index int

	// Lines 本批次独占、按文档顺序排列的原文行（含空白行）
	Lines []bilingual.SourceLine

	// ContextLines 应携带的前置上下文行数。
	// 上下文内容在运行时由流水线从已完成的单元中取出
	ContextLines int
}

// Start 批次第一行的行号
func (b Batch) Start() int {
	if len(b.Lines) == 0 {
		return 0
	}
	return b.Lines[0].Index
}

// End 批次最后一行的行号
func (b Batch) End() int {
	if len(b.Lines) == 0 {
		return 0
	}
	return b.Lines[len(b.Lines)-1].Index
}

// TranslatableLines 批次中需要送翻的非空白行。
// 空白行保留所有权但直接透传
func (b Batch) TranslatableLines() []bilingual.SourceLine {
	var out []bilingual.SourceLine
	for _, line := range b.Lines {
		if !line.IsBlank() {
			out = append(out, line)
		}
	}
	return out
}

// Schedule 将原文行切分为有序批次。每行恰好属于一个批次；
// 每个批次额外携带最多 contextLines 行已完成翻译的前置上下文。
// 首批次上下文为空；不足一个批次的文档产生单个批次
func Schedule(lines []bilingual.SourceLine, batchSize, contextLines int) ([]Batch, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, batchSize)
	}
	if contextLines < 0 {
		contextLines = 0
	}
	if len(lines) == 0 {
		return nil, nil
	}

	var batches []Batch
	for start := 0; start < len(lines); start += batchSize {
		end := start + batchSize
		if end > len(lines) {
			end = len(lines)
		}

		ctx := contextLines
		if len(batches) == 0 {
			ctx = 0
		}

		batches = append(batches, Batch{
			Index:        len(batches) + 1,
			Lines:        lines[start:end],
			ContextLines: ctx,
		})
	}
	return batches, nil
}

// Resplit 将一个批次对半切分，用于上下文溢出后的恢复。
// 切分结果不再携带上下文行；单行批次无法继续切分，返回 nil
func Resplit(b Batch) []Batch {
	if len(b.Lines) <= 1 {
		return nil
	}

	mid := len(b.Lines) / 2
	return []Batch{
		{Index: b.Index, Lines: b.Lines[:mid], ContextLines: 0},
		{Index: b.Index, Lines: b.Lines[mid:], ContextLines: 0},
	}
}
