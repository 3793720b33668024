// Package main starts the sonar consumer binary.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ibs-source/sonar-consumer/internal/cli"
	"github.com/joho/godotenv"
)

func run() int {
	// A missing .env is fine; real environment variables still apply
	_ = godotenv.Load(".env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "sonar-consumer: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	// Keep main minimal to ensure defers in run() execute correctly.
	os.Exit(run())
}
