package translation

import (
	"regexp"
	"strings"
)

var (
	listNumberRe = regexp.MustCompile(`^\d+[.、)）]\s*`)
	markerLineRe = regexp.MustCompile(`^\[[^\]]*\]$`)
)

// ParseBatchOutput 将模型的批量翻译输出拆成行。
// 移除思考过程、行号编号与 [翻译完成] 之类的标记行，
// 行数是否与请求一致由调用方判断并按索引对齐
func ParseBatchOutput(text string) []string {
	cleaned := StripReasoning(text)
	if cleaned == "" {
		return nil
	}

	var out []string
	for _, line := range strings.Split(cleaned, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		line = listNumberRe.ReplaceAllString(line, "")
		line = strings.TrimPrefix(line, "→")
		line = strings.TrimSpace(line)

		// 跳过 [翻译完成]、[END] 等独立标记行
		if markerLineRe.MatchString(line) {
			continue
		}
		if line == "" {
			continue
		}

		out = append(out, line)
	}
	return out
}

// ParseSingleOutput 提取单行重译输出。多行时取第一行
func ParseSingleOutput(text string) string {
	lines := ParseBatchOutput(text)
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}
