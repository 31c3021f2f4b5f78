package translator

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// WriteReport 输出一次运行的摘要。存在耗尽单元时
// 附带逐行定位表，供人工复核
func WriteReport(w io.Writer, res *RunResult) {
	if res.Skipped {
		fmt.Fprintf(w, "%s: 输出已存在，跳过\n", res.Input)
		return
	}

	fmt.Fprintf(w, "%s → %s\n", res.Input, res.Output)
	fmt.Fprintf(w, "终态: %s  单元: %d  重译: %d  耗时: %s\n",
		res.Status, res.Units, res.Retranslations, res.Duration.Round(time.Millisecond))
	if res.TokensIn > 0 || res.TokensOut > 0 {
		fmt.Fprintf(w, "token: 输入 %d / 输出 %d\n", res.TokensIn, res.TokensOut)
	}
	if res.Err != nil && res.Status == StatusFailed {
		fmt.Fprintf(w, "错误: %v\n", res.Err)
	}

	if len(res.Exhausted) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"行号", "原因", "评分"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})

	for _, u := range res.Exhausted {
		score := "-"
		if u.Score > 0 {
			score = fmt.Sprintf("%.2f", u.Score)
		}
		t.AppendRow(table.Row{u.Index, u.Reason, score})
	}
	t.AppendFooter(table.Row{"", "待复核", len(res.Exhausted)})
	t.Render()
}

// WriteSummary 多文件运行的汇总行
func WriteSummary(w io.Writer, results []*RunResult) {
	var complete, partial, failed, skipped int
	for _, r := range results {
		switch {
		case r.Skipped:
			skipped++
		case r.Status == StatusComplete:
			complete++
		case r.Status == StatusPartial:
			partial++
		default:
			failed++
		}
	}
	fmt.Fprintf(w, "共 %d 个文件: 完成 %d  部分 %d  失败 %d  跳过 %d\n",
		len(results), complete, partial, failed, skipped)
}
