// Command agentrun executes an agent program inside the sandbox container.
//
//	agentrun -c CODE
//	agentrun FILE
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ChamsBouzaiene/sandrun/internal/config"
	"github.com/ChamsBouzaiene/sandrun/internal/logging"
	"github.com/ChamsBouzaiene/sandrun/internal/script"
)

func main() {
	// Optional; the sandbox passes everything through the container env.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.SetFlags(0)
		log.Fatalf("agentrun: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	name, src, err := readProgram(args, stderr)
	if err != nil {
		return err
	}

	level := config.ParseLevel(getenv("SANDRUN_LOG_LEVEL", "warn"))
	logger, closeLog, err := logging.New(logging.Options{Level: level, Writer: stderr, File: os.Getenv("SANDRUN_LOG_FILE")})
	if err != nil {
		return err
	}
	defer closeLog()

	rt := script.New(script.Options{Stdout: stdout, Logger: logger})
	execErr := rt.Exec(ctx, name, src)

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := rt.Close(flushCtx); err != nil {
		logger.Warn("trace flush failed", "error", err)
	}
	return execErr
}

// readProgram returns the program name and source from -c or a file argument.
func readProgram(args []string, stderr io.Writer) (string, string, error) {
	fs := flag.NewFlagSet("agentrun", flag.ContinueOnError)
	fs.SetOutput(stderr)
	code := fs.String("c", "", "program passed in as a string")
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}

	switch {
	case *code != "" && fs.NArg() > 0:
		return "", "", errors.New("use either -c CODE or FILE, not both")
	case *code != "":
		return "<string>", *code, nil
	case fs.NArg() == 1:
		path := fs.Arg(0)
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", "", fmt.Errorf("failed to read program: %w", err)
		}
		return path, string(raw), nil
	default:
		fs.Usage()
		return "", "", errors.New("no program given")
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
