package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"resilio-dashboard/internal/cli"
	"resilio-dashboard/internal/client"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], func(server string, timeout time.Duration) cli.Dashboard {
		return client.New(server, timeout)
	}, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}
