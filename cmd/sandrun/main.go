package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ChamsBouzaiene/sandrun/internal/config"
	"github.com/ChamsBouzaiene/sandrun/internal/logging"
	"github.com/ChamsBouzaiene/sandrun/internal/placeholders"
	"github.com/ChamsBouzaiene/sandrun/internal/sandbox"
)

func main() {
	// Deferred cleanup in run must get to stop the container on Ctrl-C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		log.Fatalf("sandrun: %v", err)
	}
}

func run(ctx context.Context) error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer closeLog()

	code, err := loadScript(cfg.ScriptPath)
	if err != nil {
		return err
	}

	sb, err := sandbox.New(cfg.SandboxOptions(), logger)
	if err != nil {
		return err
	}
	defer sb.Close()

	logger.Info("running script in sandbox", "script", cfg.ScriptPath)
	output, err := sb.Run(ctx, code)
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}

// loadScript reads the agent script and resolves its environment markers.
func loadScript(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read script: %w", err)
	}
	return placeholders.ReplaceFromEnv(string(raw))
}
