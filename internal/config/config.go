package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config 一次运行的全部配置。构造后不再修改，
// 以只读方式传入各组件，不存在任何全局配置状态
type Config struct {
	// 模型与端点
	Model       string  `mapstructure:"model"`
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Temperature float64 `mapstructure:"temperature"`

	// MaxContextTokens 模型上下文窗口（token 数）
	MaxContextTokens int `mapstructure:"max_context_tokens"`

	// MaxTokens 单次生成上限；0 表示按剩余预算动态推导
	MaxTokens int `mapstructure:"max_tokens"`

	// 批次与上下文窗口
	BatchSize    int `mapstructure:"batch_size"`
	ContextLines int `mapstructure:"context_lines"`

	// 质检
	QCThreshold      float64 `mapstructure:"qc_threshold"`
	RetryLimit       int     `mapstructure:"retry_limit"`
	RuleCheckOnly    bool    `mapstructure:"rule_check_only"`
	JudgeConfirmGood bool    `mapstructure:"judge_confirm_good"`

	// 文件处理
	Overwrite       bool   `mapstructure:"overwrite"`
	InPlace         bool   `mapstructure:"in_place"`
	Limit           int    `mapstructure:"limit"`
	TerminologyFile string `mapstructure:"terminology_file"`
	LogDir          string `mapstructure:"log_dir"`

	// StreamOutput 首轮翻译使用流式接口接收响应
	StreamOutput bool `mapstructure:"stream"`

	// 运行
	Concurrency    int      `mapstructure:"concurrency"`
	RequestTimeout int      `mapstructure:"request_timeout"` // 秒
	MaxRetries     int      `mapstructure:"max_retries"`     // 传输层重试
	Stop           []string `mapstructure:"stop"`
	Debug          bool     `mapstructure:"debug"`
	DryRun         bool     `mapstructure:"dry_run"`
}

// setDefaults 写入默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("model", "Qwen/Qwen3-32B")
	v.SetDefault("base_url", "http://localhost:8000/v1")
	v.SetDefault("api_key", "dummy")
	v.SetDefault("temperature", 0.0)
	v.SetDefault("max_context_tokens", 32768)
	v.SetDefault("max_tokens", 0)
	v.SetDefault("batch_size", 10)
	v.SetDefault("context_lines", 3)
	v.SetDefault("qc_threshold", 0.7)
	v.SetDefault("retry_limit", 2)
	v.SetDefault("rule_check_only", false)
	v.SetDefault("judge_confirm_good", false)
	v.SetDefault("overwrite", false)
	v.SetDefault("in_place", false)
	v.SetDefault("limit", 0)
	v.SetDefault("stream", false)
	v.SetDefault("log_dir", "logs")
	v.SetDefault("concurrency", 2)
	v.SetDefault("request_timeout", 300)
	v.SetDefault("max_retries", 3)
	v.SetDefault("stop", []string{"（未完待续）", "[END]"})
}

// Load 加载配置：默认值 → 配置文件 → BITRANS_ 环境变量。
// configPath 为空时在当前目录与家目录查找 .bitrans.yaml
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".bitrans")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("BITRANS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 找不到配置文件时使用默认值；显式指定的路径读不到则报错
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if configPath != "" || !os.IsNotExist(err) {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	return &cfg, nil
}

// Validate 验证配置。返回的错误属于调度类致命错误，
// 必须在任何网络调用之前中止
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size 必须大于 0，当前为 %d", c.BatchSize)
	}
	if c.ContextLines < 0 {
		return fmt.Errorf("context_lines 不能为负数，当前为 %d", c.ContextLines)
	}
	if c.QCThreshold < 0 || c.QCThreshold > 1 {
		return fmt.Errorf("qc_threshold 必须在 [0,1] 之间，当前为 %g", c.QCThreshold)
	}
	if c.RetryLimit < 0 {
		return fmt.Errorf("retry_limit 不能为负数，当前为 %d", c.RetryLimit)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature 必须在 [0,2] 之间，当前为 %g", c.Temperature)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency 必须大于 0，当前为 %d", c.Concurrency)
	}
	return nil
}

// Terminology 读取术语表文件内容；未配置时返回空字符串
func (c *Config) Terminology() (string, error) {
	if c.TerminologyFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.TerminologyFile)
	if err != nil {
		return "", fmt.Errorf("读取术语表失败: %w", err)
	}
	return string(data), nil
}
