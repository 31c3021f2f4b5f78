// Package qc 提供译文质量检测：廉价的规则检测先行，
// 规则通过后才进行按次计费的大模型评分。
package qc

import (
	"github.com/hayasaka-lab/go-bilingual-agent/pkg/bilingual"
)

// 检测原因代码。写入单元的 Reason 字段，供报告与重译提示使用
const (
	ReasonNgramRepeat      = "ngram_repeat"
	ReasonSourceCopy       = "source_copy"
	ReasonLengthRatio      = "length_ratio"
	ReasonEmptyTarget      = "empty_target"
	ReasonErrorPattern     = "error_pattern"
	ReasonMissingPunct     = "missing_punctuation"
	ReasonJudgeUnparseable = "judge_unparseable"
	ReasonLowScore         = "low_score"
)

// Result 一次质量检测的结论。只用于标注单元，本身不持久化
type Result struct {
	// Verdict 检测结论
	Verdict bilingual.Verdict

	// Score 大模型评分，范围 [0,1]；规则检测时无意义
	Score float64

	// Rules 触发的规则名，规则检测时填写
	Rules []string

	// Reason 主要原因代码
	Reason string
}

// Good 构造通过结论
func Good() Result {
	return Result{Verdict: bilingual.VerdictGood, Score: 1.0}
}

// Bad 构造未通过结论
func Bad(reason string, rules ...string) Result {
	return Result{Verdict: bilingual.VerdictBad, Rules: rules, Reason: reason}
}
