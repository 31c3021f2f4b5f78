package translation

import (
	"fmt"
	"strings"

	"github.com/hayasaka-lab/go-bilingual-agent/pkg/bilingual"
)

// 默认提示词。可通过 PromptBuilder 字段整体替换
const (
	defaultTranslatePreface = `你是专业的日中文学翻译。将给定的日文逐行翻译成简体中文：
- 严格保持行数一致，每行原文对应一行译文，不得合并或拆分。
- 只输出译文本身，不要行号、解释或任何额外标记。
- 拟声词、语气词翻译成自然的中文表达，不保留假名。`

	defaultEnhancePreface = `你是专业的中日互译编辑。给定原文与当前译文，改进译文质量：
- 修正误译、漏译、假名残留与生硬表达。
- 只输出改进后的中文译文，不要任何解释。`
)

// PromptBuilder 构建翻译与重译请求的提示词。
// 上下文窗口仅用于风格连贯，明确标注为不需要重新输出
type PromptBuilder struct {
	// TranslatePreface 首轮翻译的系统指令
	TranslatePreface string

	// EnhancePreface 重译/改进的系统指令
	EnhancePreface string

	// Terminology 术语表文本，附加在系统指令之后
	Terminology string
}

// NewPromptBuilder 创建提示词构建器
func NewPromptBuilder(terminology string) *PromptBuilder {
	return &PromptBuilder{
		TranslatePreface: defaultTranslatePreface,
		EnhancePreface:   defaultEnhancePreface,
		Terminology:      terminology,
	}
}

// systemContent 系统消息内容
func (b *PromptBuilder) systemContent(preface string) string {
	if b.Terminology == "" {
		return preface
	}
	return preface + "\n\n术语表（严格遵守）：\n" + b.Terminology
}

// BuildBatchMessages 构建批量翻译请求。
// context 为紧邻本批次之前、已完成翻译的单元，只读；
// lines 为本批次需要翻译的非空白原文行
func (b *PromptBuilder) BuildBatchMessages(context []*bilingual.Unit, lines []bilingual.SourceLine) []Message {
	var user strings.Builder

	if len(context) > 0 {
		user.WriteString("上文（已翻译，仅供风格参考，不要重新输出）：\n")
		for _, u := range context {
			fmt.Fprintf(&user, "原文: %s\n译文: %s\n", u.Source, u.Target)
		}
		user.WriteString("\n")
	}

	fmt.Fprintf(&user, "请逐行翻译以下 %d 行，输出同样行数的译文：\n", len(lines))
	for i, line := range lines {
		fmt.Fprintf(&user, "%d. %s\n", i+1, line.Text)
	}

	return []Message{
		{Role: RoleSystem, Content: b.systemContent(b.TranslatePreface)},
		{Role: RoleUser, Content: user.String()},
	}
}

// BuildRetranslateMessages 构建单行重译请求。
// issues 为规则检测发现的问题描述，可为空
func (b *PromptBuilder) BuildRetranslateMessages(u *bilingual.Unit, context []*bilingual.Unit, issues string) []Message {
	var user strings.Builder

	if len(context) > 0 {
		user.WriteString("上下文（已接受的译文，仅供参考）：\n")
		for _, c := range context {
			fmt.Fprintf(&user, "原文: %s\n译文: %s\n", c.Source, c.Target)
		}
		user.WriteString("\n")
	}

	fmt.Fprintf(&user, "原文: %s\n", u.Source)
	if u.Target != "" {
		fmt.Fprintf(&user, "现译: %s\n", u.Target)
	} else {
		fmt.Fprintf(&user, "现译: %s\n", bilingual.MarkerUntranslated)
	}
	if issues != "" {
		fmt.Fprintf(&user, "已发现的问题:\n%s\n", issues)
	}
	user.WriteString("请只输出改进后的中文译文。")

	return []Message{
		{Role: RoleSystem, Content: b.systemContent(b.EnhancePreface)},
		{Role: RoleUser, Content: user.String()},
	}
}

// EstimateTokens 粗略估算消息的 token 数。
// 按 2 字符/token 的保守比例再加两成余量
func EstimateTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content)
	}
	return total / 2 * 12 / 10
}

// MaxTokensFor 根据剩余上下文预算推导 max_tokens。
// 保留安全余量，下限 500，上限 limit（limit<=0 表示不设上限）
func MaxTokensFor(messages []Message, maxContext, limit int) int {
	const safetyMargin = 1024

	remain := maxContext - EstimateTokens(messages) - safetyMargin
	if remain < 500 {
		remain = 500
	}
	if limit > 0 && remain > limit {
		remain = limit
	}
	return remain
}
