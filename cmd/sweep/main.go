package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/cart-backend/internal/app"
	"github.com/yungbote/cart-backend/internal/jobs/sweep"
	"github.com/yungbote/cart-backend/internal/platform/envutil"
	"github.com/yungbote/cart-backend/internal/platform/logger"
	"github.com/yungbote/cart-backend/internal/platform/shutdown"
)

func main() {
	os.Exit(run())
}

func run() int {
	var nowFlag string
	var dryRun bool
	flag.StringVar(&nowFlag, "now", "", "reference time (RFC3339); defaults to the current time")
	flag.BoolVar(&dryRun, "dry-run", false, "list candidate carts without changing them")
	flag.Parse()

	now := time.Now().UTC()
	if nowFlag != "" {
		t, err := time.Parse(time.RFC3339, nowFlag)
		if err != nil {
			fmt.Printf("invalid -now: %v\n", err)
			return 2
		}
		now = t.UTC()
	}

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		return 1
	}
	cfg := app.LoadConfig(log)
	application, err := app.NewWorker(cfg, log)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		return 1
	}
	defer application.Close()

	ctx, stop := shutdown.NotifyContext(context.Background(), log)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if dryRun {
		carts, err := application.Services.Sweeper.Candidates(ctx, now)
		if err != nil {
			fmt.Printf("list candidates: %v\n", err)
			return 1
		}
		_ = enc.Encode(carts)
		fmt.Printf("%d candidate carts idle since before %s\n", len(carts), now.Add(-cfg.Cart.AbandonAfter).Format(time.RFC3339))
		return 0
	}

	sum, err := application.Services.Sweeper.RunPass(ctx, now, sweep.TriggerCLI)
	_ = enc.Encode(sum)
	if err != nil {
		fmt.Printf("sweep pass incomplete: %v\n", err)
		return 1
	}
	return 0
}
