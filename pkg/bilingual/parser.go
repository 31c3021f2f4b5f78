package bilingual

import (
	"fmt"
	"os"
	"strings"
)

const frontMatterDelimiter = "---"

// ParseError 双语文件格式错误。对单个文件致命，不影响其他文档
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("bilingual format error at line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("bilingual format error: %s", e.Msg)
}

// Parse 解析双语文本。格式为可选的 front matter 块，
// 之后原文行与译文行严格成对出现；空白原文行对应空白译文行。
func Parse(data []byte) (*Document, error) {
	meta, rest, consumed, err := splitFrontMatter(string(data))
	if err != nil {
		return nil, err
	}

	lines := splitLines(rest)
	doc := &Document{Metadata: meta}

	index := 0
	for i := 0; i < len(lines); i += 2 {
		index++
		source := lines[i]

		u := &Unit{Index: index, Source: source, Verdict: VerdictUnchecked}
		if u.IsBlank() {
			u.Verdict = VerdictGood
		}

		if i+1 >= len(lines) {
			// 文件在原文行后截断，按未翻译处理
			if !u.IsBlank() {
				u.Verdict = VerdictBad
				u.Reason = "missing_target"
			}
			doc.Units = append(doc.Units, u)
			break
		}

		target := lines[i+1]
		switch {
		case target == MarkerUntranslated:
			u.Verdict = VerdictBad
			u.Reason = "untranslated"
		case strings.HasSuffix(target, " "+MarkerNeedsReview):
			u.Target = strings.TrimSuffix(target, " "+MarkerNeedsReview)
			u.Verdict = VerdictBad
			u.Reason = "needs_review"
		case target == MarkerNeedsReview:
			u.Verdict = VerdictBad
			u.Reason = "needs_review"
		case u.IsBlank() && target != "":
			return nil, &ParseError{Line: consumed + i + 2, Msg: "blank source line paired with non-blank target"}
		default:
			u.Target = target
		}
		doc.Units = append(doc.Units, u)
	}

	return doc, nil
}

// ParseFile 读取并解析双语文件
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// ReadSource 读取单语原文文件，返回元数据块与按 1 起始编号的原文行
func ReadSource(path string) (Metadata, []SourceLine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, nil, err
	}

	meta, rest, _, err := splitFrontMatter(string(data))
	if err != nil {
		return Metadata{}, nil, err
	}

	var lines []SourceLine
	for i, text := range splitLines(rest) {
		lines = append(lines, SourceLine{Index: i + 1, Text: text})
	}
	return meta, lines, nil
}

// splitFrontMatter 切出开头的 front matter 块。
// 返回元数据、剩余正文、元数据占用的行数。
func splitFrontMatter(content string) (Metadata, string, int, error) {
	if !strings.HasPrefix(content, frontMatterDelimiter+"\n") {
		return Metadata{}, content, 0, nil
	}

	lines := strings.SplitAfter(content, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\n") == frontMatterDelimiter {
			raw := strings.Join(lines[:i+1], "")
			return Metadata{Raw: raw}, strings.Join(lines[i+1:], ""), i + 1, nil
		}
	}
	return Metadata{}, "", 0, &ParseError{Line: 1, Msg: "unterminated front matter block"}
}

// splitLines 按换行拆分，去掉文件末尾换行产生的空尾元素
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// stripDelimiters 去掉 front matter 前后的分隔行
func stripDelimiters(raw string) string {
	body := strings.TrimPrefix(raw, frontMatterDelimiter+"\n")
	if i := strings.LastIndex(body, "\n"+frontMatterDelimiter); i >= 0 {
		body = body[:i]
	}
	return body
}
