package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/cart-backend/internal/app"
	"github.com/yungbote/cart-backend/internal/platform/shutdown"
)

func main() {
	os.Exit(run())
}

func run() int {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		return 1
	}
	defer a.Close()

	ctx, stop := shutdown.NotifyContext(context.Background(), a.Log)
	defer stop()

	if err := a.Start(); err != nil {
		a.Log.Error("background start failed", "error", err)
		return 1
	}
	if err := a.Run(ctx); err != nil {
		a.Log.Error("server exited", "error", err)
		return 1
	}
	return 0
}
