package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/hayasaka-lab/go-bilingual-agent/internal/translator"
)

// newCheckCommand 只质检不重译的命令。
// 等价于强制 --dry-run 的增强模式，便于在重译之前评估文件质量
func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "qc <双语文件或目录>",
		Short: "只质检不重译，输出逐行结论",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.DryRun = true
			// 只质检时总是重新评估，包括已标记通过的行
			cfg.JudgeConfirmGood = true

			log, err := newRunLogger(cfg)
			if err != nil {
				return err
			}

			enhancer, err := translator.NewEnhancer(cfg, newClient(cfg), log, translator.LoggingHooks(log))
			if err != nil {
				return err
			}

			inputs, err := translator.FindBilingualFiles(args[0], cfg.Limit)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			results := translator.RunMany(ctx, inputs, cfg.Concurrency, func(input string) string { return input }, enhancer.Run)
			for _, res := range results {
				translator.WriteReport(os.Stdout, res)
			}
			if len(results) > 1 {
				translator.WriteSummary(os.Stdout, results)
			}
			return exit(results)
		},
	}
}
