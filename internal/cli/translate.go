package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hayasaka-lab/go-bilingual-agent/internal/translator"
)

// newTranslateCommand 首轮翻译命令
func newTranslateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "translate <文件或目录>",
		Short: "首轮翻译：原文 → 双语文件",
		Long: `逐行翻译输入文件，输出写到同目录的 {stem}_bilingual.txt。
传入目录时递归处理其中的 .txt 文件，已存在输出的文件默认跳过。

退出码: 0 全部完成；2 存在质检未通过的行；1 失败。`,
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

			pipeline, err := translator.NewPipeline(cfg, newClient(cfg), log, translator.LoggingHooks(log))
			if err != nil {
				return err
			}

			inputs, err := translator.FindInputFiles(args[0], cfg.Limit)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			results := translator.RunMany(ctx, inputs, cfg.Concurrency, translator.DeriveOutputPath, pipeline.Run)
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

// signalContext 在 SIGINT/SIGTERM 时取消处理，已完成的进度保留在盘上
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
