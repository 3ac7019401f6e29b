package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var (
	Version  = "dev"
	Revision = ""
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}
