package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/hayasaka-lab/go-bilingual-agent/internal/translator"
)

// newEnhanceCommand 增强模式命令
func newEnhanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "enhance <双语文件或目录>",
		Short: "增强模式：质检并重译未通过的行",
		Long: `对已有双语文件逐行质检：规则检测先行，通过后由大模型评分；
未通过的行发起有界重译（--retry-limit 次），仍未通过的行
打上 ` + "[质检未通过]" + ` 标记留给人工复核。

输出写到 {stem}_enhanced.txt，--in-place 时原地改写。
对同一文件重复运行是幂等的：全部通过的文件不会触发任何重译。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

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

			derive := translator.DeriveEnhancedPath
			if cfg.InPlace {
				derive = func(input string) string { return input }
			}

			ctx, cancel := signalContext()
			defer cancel()

			results := translator.RunMany(ctx, inputs, cfg.Concurrency, derive, enhancer.Run)
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
