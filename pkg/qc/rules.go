package qc

import (
	"strings"

	"github.com/hayasaka-lab/go-bilingual-agent/pkg/bilingual"
)

// 译文中出现即判定失败的错误模式，来自批量跑库时反复出现的坏输出
var errorPatterns = []string{
	"（以下省略）",
	"（省略）",
	"翻译失败",
	"无法翻译",
	"[ERROR]",
	"[FAILED]",
}

// RuleOptions 规则检测参数
type RuleOptions struct {
	Detector DetectorOptions

	// PunctRunLen 中文连续无标点字符段达到该长度即判定异常
	PunctRunLen int
}

// DefaultRuleOptions 默认规则参数
func DefaultRuleOptions() RuleOptions {
	return RuleOptions{
		Detector:    DefaultDetectorOptions(),
		PunctRunLen: 80,
	}
}

// RuleChecker 规则质检器：第一道廉价闸门。
// 任何 BAD 结论都会短路掉后续的大模型评审
type RuleChecker struct {
	opts     RuleOptions
	detector *Detector
}

// NewRuleChecker 创建规则质检器
func NewRuleChecker(opts RuleOptions) *RuleChecker {
	return &RuleChecker{
		opts:     opts,
		detector: NewDetector(opts.Detector),
	}
}

// Check 对一个翻译单元执行全部规则检测
func (c *RuleChecker) Check(u *bilingual.Unit) Result {
	// 空白行不参与质检
	if u.IsBlank() {
		return Good()
	}

	if strings.TrimSpace(u.Target) == "" {
		return Bad(ReasonEmptyTarget, ReasonEmptyTarget)
	}

	var rules []string

	for _, pattern := range errorPatterns {
		if strings.Contains(u.Target, pattern) {
			rules = append(rules, ReasonErrorPattern)
			break
		}
	}

	if degenerate, reason := c.detector.Detect(u.Source, u.Target); degenerate {
		rules = append(rules, reason)
	}

	if c.missingSeparators(u.Target) {
		rules = append(rules, ReasonMissingPunct)
	}

	if len(rules) > 0 {
		return Bad(rules[0], rules...)
	}
	return Good()
}

// missingSeparators 粗查中文长串是否缺少常见分隔标点
func (c *RuleChecker) missingSeparators(target string) bool {
	run := 0
	for _, r := range target {
		if isCJKOrAlnum(r) {
			run++
			if run >= c.opts.PunctRunLen {
				return true
			}
			continue
		}
		run = 0
	}
	return false
}

func isCJKOrAlnum(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF: // CJK 统一汉字
		return true
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return false
}
