package translation

import (
	"regexp"
	"strings"
)

// 推理模型常见的思考标记对
var reasoningTagPairs = [][2]string{
	{"<think>", "</think>"},
	{"<thinking>", "</thinking>"},
	{"<reasoning>", "</reasoning>"},
	{"[THINKING]", "[/THINKING]"},
}

// 未闭合的 <think> 说明输出在思考途中被截断，后面不会再有正文
var unclosedThinkRe = regexp.MustCompile(`(?s)<think>.*$`)

// StripReasoning 移除推理模型输出中的思考过程，
// 质检与对齐只应看到最终正文
func StripReasoning(content string) string {
	result := content
	for _, pair := range reasoningTagPairs {
		pattern := regexp.QuoteMeta(pair[0]) + `(?s:.*?)` + regexp.QuoteMeta(pair[1])
		result = regexp.MustCompile(pattern).ReplaceAllString(result, "")
	}

	result = unclosedThinkRe.ReplaceAllString(result, "")

	return strings.TrimSpace(result)
}
