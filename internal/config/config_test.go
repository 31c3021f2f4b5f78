package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "Qwen/Qwen3-32B", cfg.Model)
	assert.Equal(t, "http://localhost:8000/v1", cfg.BaseURL)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 3, cfg.ContextLines)
	assert.InDelta(t, 0.7, cfg.QCThreshold, 1e-9)
	assert.Equal(t, 2, cfg.RetryLimit)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, []string{"（未完待续）", "[END]"}, cfg.Stop)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bitrans.yaml")
	content := `model: local-model
batch_size: 20
qc_threshold: 0.8
stop:
  - "[DONE]"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "local-model", cfg.Model)
	assert.Equal(t, 20, cfg.BatchSize)
	assert.InDelta(t, 0.8, cfg.QCThreshold, 1e-9)
	assert.Equal(t, []string{"[DONE]"}, cfg.Stop)
	// 未覆盖的字段保持默认值
	assert.Equal(t, 3, cfg.ContextLines)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"批次大小为零", func(c *Config) { c.BatchSize = 0 }},
		{"批次大小为负", func(c *Config) { c.BatchSize = -5 }},
		{"上下文行数为负", func(c *Config) { c.ContextLines = -1 }},
		{"阈值超出范围", func(c *Config) { c.QCThreshold = 1.5 }},
		{"重译次数为负", func(c *Config) { c.RetryLimit = -1 }},
		{"温度超出范围", func(c *Config) { c.Temperature = 3.0 }},
		{"并发为零", func(c *Config) { c.Concurrency = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestTerminology(t *testing.T) {
	t.Run("未配置返回空", func(t *testing.T) {
		cfg := &Config{}
		text, err := cfg.Terminology()
		require.NoError(t, err)
		assert.Empty(t, text)
	})

	t.Run("读取文件内容", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "terms.txt")
		require.NoError(t, os.WriteFile(path, []byte("魔法使い=魔法使\n"), 0o644))

		cfg := &Config{TerminologyFile: path}
		text, err := cfg.Terminology()
		require.NoError(t, err)
		assert.Contains(t, text, "魔法使い=魔法使")
	})

	t.Run("文件不存在时报错", func(t *testing.T) {
		cfg := &Config{TerminologyFile: "/nonexistent/terms.txt"}
		_, err := cfg.Terminology()
		assert.Error(t, err)
	})
}
