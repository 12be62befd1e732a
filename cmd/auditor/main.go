// File path: cmd/auditor/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/beefed-up-geek/code-as-auditors/internal/common"
)

func main() {
	logger := common.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		logger.Debug("auditor: .env file not loaded", "error", err)
	} else {
		logger.Info("auditor: environment loaded from .env")
	}

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("auditor: command failed", "error", err)
		os.Exit(1)
	}
}
