package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/ranking/internal/playercheck"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := playercheck.NewApp().RunContext(ctx, os.Args); err != nil {
		os.Stderr.WriteString("player check failed: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}
