// Package cli 实现 bitrans 命令行入口。
package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/hayasaka-lab/go-bilingual-agent/internal/config"
	"github.com/hayasaka-lab/go-bilingual-agent/internal/logger"
	"github.com/hayasaka-lab/go-bilingual-agent/internal/translator"
	"github.com/hayasaka-lab/go-bilingual-agent/pkg/translation"
)

var (
	// 命令行标志变量
	cfgFile         string
	modelName       string
	baseURL         string
	apiKey          string
	batchSize       int
	contextLines    int
	qcThreshold     float64
	retryLimit      int
	ruleCheckOnly   bool
	judgeConfirm    bool
	overwrite       bool
	inPlace         bool
	limitFiles      int
	terminologyFile string
	concurrency     int
	requestTimeout  int
	streamOutput    bool
	debugMode       bool
	dryRun          bool
)

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bitrans",
		Short: "逐行对照的日中双语文档翻译工具",
		Long: `bitrans 将日文文本逐行翻译为中文，生成原文/译文逐行交错的双语文件。

子命令:
  translate  首轮翻译：原文 → 双语文件（{stem}_bilingual.txt）
  enhance    增强模式：对双语文件逐行质检并重译未通过的行
  qc         只质检不重译，输出逐行结论

质检分两道：本地规则（重复循环、原文照抄、长度比例等）先行，
通过后再由大模型评分，低于阈值的行进入有界重译。`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "配置文件路径（默认查找 .bitrans.yaml）")
	pf.StringVar(&modelName, "model", "", "模型 ID")
	pf.StringVar(&baseURL, "base-url", "", "OpenAI 兼容端点地址")
	pf.StringVar(&apiKey, "api-key", "", "API 密钥")
	pf.IntVar(&batchSize, "batch-size", 0, "每批次的原文行数")
	pf.IntVar(&contextLines, "context-lines", -1, "每批次携带的前置上下文行数")
	pf.Float64Var(&qcThreshold, "qc-threshold", -1, "大模型评分的通过阈值 [0,1]")
	pf.IntVar(&retryLimit, "retry-limit", -1, "每行的最大重译次数")
	pf.BoolVar(&ruleCheckOnly, "rule-check-only", false, "只跑规则检测，跳过大模型评分")
	pf.BoolVar(&judgeConfirm, "judge-confirm-good", false, "已标记通过的行也重新评分")
	pf.BoolVar(&overwrite, "overwrite", false, "输出文件已存在时覆盖而不是跳过")
	pf.BoolVar(&inPlace, "in-place", false, "增强模式原地改写输入文件")
	pf.IntVar(&limitFiles, "limit", 0, "目录模式下最多处理的文件数，0 为不限")
	pf.StringVar(&terminologyFile, "terminology", "", "术语表文件路径")
	pf.IntVar(&concurrency, "concurrency", 0, "并行处理的文件数")
	pf.IntVar(&requestTimeout, "timeout", 0, "单次请求超时（秒）")
	pf.BoolVar(&streamOutput, "stream", false, "首轮翻译走流式接口")
	pf.BoolVar(&debugMode, "debug", false, "输出调试日志")
	pf.BoolVar(&dryRun, "dry-run", false, "预演模式：不发起重译也不写任何文件")

	rootCmd.AddCommand(
		newTranslateCommand(),
		newEnhanceCommand(),
		newCheckCommand(),
	)
	return rootCmd
}

// loadConfig 加载配置并用显式传入的标志覆盖
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Model = modelName
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = baseURL
	}
	if flags.Changed("api-key") {
		cfg.APIKey = apiKey
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize = batchSize
	}
	if flags.Changed("context-lines") {
		cfg.ContextLines = contextLines
	}
	if flags.Changed("qc-threshold") {
		cfg.QCThreshold = qcThreshold
	}
	if flags.Changed("retry-limit") {
		cfg.RetryLimit = retryLimit
	}
	if flags.Changed("rule-check-only") {
		cfg.RuleCheckOnly = ruleCheckOnly
	}
	if flags.Changed("judge-confirm-good") {
		cfg.JudgeConfirmGood = judgeConfirm
	}
	if flags.Changed("overwrite") {
		cfg.Overwrite = overwrite
	}
	if flags.Changed("in-place") {
		cfg.InPlace = inPlace
	}
	if flags.Changed("limit") {
		cfg.Limit = limitFiles
	}
	if flags.Changed("terminology") {
		cfg.TerminologyFile = terminologyFile
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = concurrency
	}
	if flags.Changed("timeout") {
		cfg.RequestTimeout = requestTimeout
	}
	if flags.Changed("stream") {
		cfg.StreamOutput = streamOutput
	}
	if flags.Changed("debug") {
		cfg.Debug = debugMode
	}
	if flags.Changed("dry-run") {
		cfg.DryRun = dryRun
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newRunLogger 创建本次运行的日志记录器。
// 配置了日志目录时同时落一份 JSON 文件日志
func newRunLogger(cfg *config.Config) (logger.Logger, error) {
	if cfg.LogDir == "" {
		return logger.NewZapLogger(cfg.Debug), nil
	}

	logPath := filepath.Join(cfg.LogDir, time.Now().Format("20060102-150405")+".log")
	zl, err := logger.NewFileLogger(cfg.Debug, logPath)
	if err != nil {
		return nil, err
	}
	return logger.WrapZap(zl), nil
}

// newClient 创建补全客户端
func newClient(cfg *config.Config) *translation.OpenAIClient {
	return translation.NewOpenAIClient(translation.OpenAIConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
	})
}

// exit 根据多文件结果返回进程退出码错误
func exit(results []*translator.RunResult) error {
	if code := translator.AggregateExitCode(results); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// ExitError 携带退出码的哨兵错误，由 main 转换为 os.Exit
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}
