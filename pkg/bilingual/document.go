// Package bilingual 实现原文/译文逐行交错的双语文本格式：
// 可选的 YAML front matter 元数据块，之后每个原文行紧跟对应的译文行。
package bilingual

import (
	"gopkg.in/yaml.v3"
)

// 行内标记。写入文件后供下游工具与增强模式识别，
// 避免重新跑一遍质量检测。
const (
	// MarkerUntranslated 译文缺失占位标记
	MarkerUntranslated = "[翻译未完成]"

	// MarkerNeedsReview 质检未通过的译文行尾标记
	MarkerNeedsReview = "[质检未通过]"
)

// Verdict 单元的质检结论
type Verdict string

const (
	// VerdictUnchecked 尚未检测
	VerdictUnchecked Verdict = "UNCHECKED"

	// VerdictGood 检测通过
	VerdictGood Verdict = "GOOD"

	// VerdictBad 检测未通过
	VerdictBad Verdict = "BAD"
)

// SourceLine 原始文档中的一行，读取后不再修改
type SourceLine struct {
	// Index 从 1 开始的行号
	Index int

	// Text 行内容，不含换行符
	Text string
}

// IsBlank 是否为空白行
func (l SourceLine) IsBlank() bool {
	return l.Text == ""
}

// Unit 一个原文行与其译文的配对
type Unit struct {
	// Index 从 1 开始的行号，与原始文档一一对应
	Index int

	// Source 原文行
	Source string

	// Target 译文行；翻译前为空字符串
	Target string

	// Verdict 质检结论
	Verdict Verdict

	// Reason 结论原因（触发的规则名或分数说明）
	Reason string

	// Retries 已经重译的次数
	Retries int
}

// IsBlank 原文是否为空白行。空白行不参与翻译与质检，始终视为通过
func (u *Unit) IsBlank() bool {
	return u.Source == ""
}

// Translated 是否已有译文
func (u *Unit) Translated() bool {
	return u.IsBlank() || u.Target != ""
}

// Metadata front matter 元数据块。原样透传，不参与翻译与质检
type Metadata struct {
	// Raw 包含前后 "---" 分隔行在内的原始文本；为空表示没有元数据块
	Raw string
}

// IsEmpty 是否没有元数据块
func (m Metadata) IsEmpty() bool {
	return m.Raw == ""
}

// Fields 按需解析元数据中的键值对
func (m Metadata) Fields() (map[string]interface{}, error) {
	if m.IsEmpty() {
		return nil, nil
	}

	body := stripDelimiters(m.Raw)
	fields := make(map[string]interface{})
	if err := yaml.Unmarshal([]byte(body), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// Document 持久化的双语文档
type Document struct {
	Metadata Metadata
	Units    []*Unit
}

// NewDocument 从原文行构造尚未翻译的文档
func NewDocument(meta Metadata, lines []SourceLine) *Document {
	doc := &Document{Metadata: meta, Units: make([]*Unit, 0, len(lines))}
	for _, line := range lines {
		u := &Unit{Index: line.Index, Source: line.Text, Verdict: VerdictUnchecked}
		if u.IsBlank() {
			u.Verdict = VerdictGood
		}
		doc.Units = append(doc.Units, u)
	}
	return doc
}

// BadCount 统计结论为 BAD 的单元数
func (d *Document) BadCount() int {
	n := 0
	for _, u := range d.Units {
		if u.Verdict == VerdictBad {
			n++
		}
	}
	return n
}

// BadIndices 返回结论为 BAD 的单元行号，按文档顺序
func (d *Document) BadIndices() []int {
	var idx []int
	for _, u := range d.Units {
		if u.Verdict == VerdictBad {
			idx = append(idx, u.Index)
		}
	}
	return idx
}
