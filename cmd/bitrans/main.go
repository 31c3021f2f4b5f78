package main

import (
	"errors"
	"os"

	"go.uber.org/zap"

	"github.com/hayasaka-lab/go-bilingual-agent/internal/cli"
	"github.com/hayasaka-lab/go-bilingual-agent/internal/logger"
)

// Version information
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	log := logger.NewLogger(false)
	defer func() {
		_ = log.Sync()
	}()

	rootCmd := cli.NewRootCommand(Version, Commit, BuildDate)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		log.Error("执行命令失败", zap.Error(err))
		os.Exit(1)
	}
}
