package command

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/krisalay/storekit/engine"
	"github.com/krisalay/storekit/eviction"
)

func BenchCommandBuilder() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "measure engine throughput under concurrent reads",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "capacity", Usage: "engine capacity", Value: 200000},
			&cli.IntFlag{Name: "keys", Usage: "keys preloaded before the run", Value: 100000},
			&cli.IntFlag{Name: "goroutines", Aliases: []string{"g"}, Usage: "concurrent readers", Value: 200},
			&cli.IntFlag{Name: "ops", Usage: "reads per goroutine", Value: 5000},
			&cli.StringFlag{Name: "policy", Usage: "eviction policy (lru, lfu, fifo)", Value: string(eviction.LRU)},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			for _, name := range []string{"capacity", "keys", "goroutines", "ops"} {
				if cmd.Int(name) <= 0 {
					return fmt.Errorf("--%s must be positive", name)
				}
			}
			return BenchCommandAction(ctx, cmd)
		},
	}
}

func BenchCommandAction(ctx context.Context, cmd *cli.Command) error {
	policy, err := eviction.ParsePolicyType(cmd.String("policy"))
	if err != nil {
		return err
	}

	var (
		capacity   = int(cmd.Int("capacity"))
		preload    = int(cmd.Int("keys"))
		goroutines = int(cmd.Int("goroutines"))
		opsPerG    = int(cmd.Int("ops"))
	)

	e, err := engine.New(
		engine.WithName[string, int]("bench"),
		engine.WithCapacity[string, int](capacity),
		engine.WithPolicy[string, int](policy),
	)
	if err != nil {
		return err
	}

	keys := make([]string, preload)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
		e.Store(keys[i], i, time.Hour)
	}

	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < goroutines; i++ {
		g.Go(func() error {
			for j := 0; j < opsPerG; j++ {
				if j%1024 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				_, _ = e.Read(keys[j%len(keys)])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	duration := time.Since(start)
	totalOps := int64(goroutines) * int64(opsPerG)

	w := writer(cmd)
	fmt.Fprintf(w, "Policy           : %s\n", policy)
	fmt.Fprintf(w, "Capacity         : %s\n", humanize.Comma(int64(capacity)))
	fmt.Fprintf(w, "Held keys        : %s\n", humanize.Comma(int64(e.Len())))
	fmt.Fprintf(w, "Total Operations : %s\n", humanize.Comma(totalOps))
	fmt.Fprintf(w, "Total Time       : %v\n", duration)
	fmt.Fprintf(w, "Throughput       : %s ops/sec\n", humanize.CommafWithDigits(float64(totalOps)/duration.Seconds(), 2))
	return nil
}
