package qc

import (
	"fmt"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/width"
)

// DetectorOptions 重复/退化检测参数
type DetectorOptions struct {
	// NgramUnitLen 视为循环单元的最小长度（字符数）
	NgramUnitLen int

	// NgramRepeats 触发判定所需的最少连续出现次数
	NgramRepeats int

	// CharRepeats 单字符连续重复的触发次数
	CharRepeats int

	// CopyRunLen 译文中连续假名达到该长度即判定为照抄原文
	CopyRunLen int

	// MinRatio / MaxRatio 译文与原文长度比例的允许区间
	MinRatio float64
	MaxRatio float64
}

// DefaultDetectorOptions 默认参数。长度比例区间沿用 0.3x–3x 的经验值
func DefaultDetectorOptions() DetectorOptions {
	return DetectorOptions{
		NgramUnitLen: 4,
		NgramRepeats: 4,
		CharRepeats:  8,
		CopyRunLen:   8,
		MinRatio:     0.3,
		MaxRatio:     3.0,
	}
}

// Detector 退化输出检测器。纯函数式，无网络调用，
// 必须在任何大模型评审之前运行
type Detector struct {
	opts    DetectorOptions
	ngramRe *regexp2.Regexp
	charRe  *regexp2.Regexp
}

// NewDetector 创建检测器。循环检测依赖反向引用，
// 标准库 regexp 无法表达，因此使用 regexp2
func NewDetector(opts DetectorOptions) *Detector {
	ngramPattern := fmt.Sprintf(`(.{%d,})\1{%d,}`, opts.NgramUnitLen, opts.NgramRepeats-1)
	charPattern := fmt.Sprintf(`(.)\1{%d,}`, opts.CharRepeats-1)

	return &Detector{
		opts:    opts,
		ngramRe: regexp2.MustCompile(ngramPattern, regexp2.None),
		charRe:  regexp2.MustCompile(charPattern, regexp2.None),
	}
}

// Detect 判断译文是否为退化输出。返回是否退化与原因代码
func (d *Detector) Detect(source, target string) (bool, string) {
	if target == "" {
		return false, ""
	}

	if d.hasRepeatLoop(target) {
		return true, ReasonNgramRepeat
	}

	if d.hasSourceCopy(source, target) {
		return true, ReasonSourceCopy
	}

	if bad, _ := d.checkLengthRatio(source, target); bad {
		return true, ReasonLengthRatio
	}

	return false, ""
}

// hasRepeatLoop 检测 n-gram 循环与单字符刷屏
func (d *Detector) hasRepeatLoop(target string) bool {
	if m, _ := d.charRe.MatchString(target); m {
		return true
	}
	if m, _ := d.ngramRe.MatchString(target); m {
		return true
	}
	return false
}

// hasSourceCopy 检测译文是否照抄了源语言文本：
// 译文与原文完全一致且两侧都含假名，或译文中存在长假名连续段。
// 半角片假名先折算为全角再判断
func (d *Detector) hasSourceCopy(source, target string) bool {
	normTarget := width.Widen.String(target)

	if source != "" && source == target && containsKana(width.Widen.String(source)) && containsKana(normTarget) {
		return true
	}

	return longestKanaRun(normTarget) >= d.opts.CopyRunLen
}

// checkLengthRatio 译文长度比例粗筛，用于发现截断与无限扩写
func (d *Detector) checkLengthRatio(source, target string) (bool, float64) {
	srcLen := utf8.RuneCountInString(source)
	if srcLen == 0 {
		return false, 0
	}

	ratio := float64(utf8.RuneCountInString(target)) / float64(srcLen)
	if ratio < d.opts.MinRatio || ratio > d.opts.MaxRatio {
		return true, ratio
	}
	return false, ratio
}

// isKana 是否为平假名或片假名（含长音符号）
func isKana(r rune) bool {
	switch {
	case r >= 0x3041 && r <= 0x309F: // 平假名
		return true
	case r >= 0x30A0 && r <= 0x30FF: // 片假名
		return true
	}
	return false
}

// ContainsKana 文本中是否含有假名。
// 原文不含假名的行视为无需翻译的透传行
func ContainsKana(s string) bool {
	return containsKana(s)
}

func containsKana(s string) bool {
	for _, r := range s {
		if isKana(r) {
			return true
		}
	}
	return false
}

// longestKanaRun 最长连续假名段的字符数
func longestKanaRun(s string) int {
	longest, cur := 0, 0
	for _, r := range s {
		if isKana(r) {
			cur++
			if cur > longest {
				longest = cur
			}
		} else {
			cur = 0
		}
	}
	return longest
}
