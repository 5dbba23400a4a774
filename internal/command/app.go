package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/krisalay/storekit/internal/config"
	"github.com/krisalay/storekit/persist"
)

// InitApp builds the storekit command tree. Output goes to w.
func InitApp(w io.Writer) *cli.Command {
	app := &cli.Command{
		Name:   "storekit",
		Usage:  "inspect and edit persisted cache regions",
		Writer: w,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file",
				Sources: cli.NewValueSourceChain(cli.EnvVar(config.EnvConfig)),
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "cache root directory",
				Sources: cli.NewValueSourceChain(cli.EnvVar(config.EnvCacheDir)),
			},
			&cli.StringFlag{
				Name:    "region",
				Aliases: []string{"r"},
				Usage:   "region name",
			},
		},
	}

	app.Commands = append(app.Commands,
		GetCommandBuilder(),
		SetCommandBuilder(),
		RmCommandBuilder(),
		LsCommandBuilder(),
		PurgeCommandBuilder(),
		BenchCommandBuilder(),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}

	return app
}

// Run executes the app with args, writing to stdout.
func Run(ctx context.Context, args []string) error {
	return InitApp(os.Stdout).Run(ctx, args)
}

func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

/*
openRegion resolves the region the command works on.

Flags win over the config file, which wins over defaults. The region is
loaded from disk; a missing file is created empty.
*/
func openRegion(cmd *cli.Command) (*persist.Region, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	dir := cmd.String("dir")
	if dir == "" {
		dir = cfg.Cache.Dir
	}
	name := cmd.String("region")
	if name == "" {
		name = cfg.Cache.Region
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	opts := []persist.Option{
		persist.WithCapacity(cfg.Cache.Capacity),
		persist.WithPolicy(policy),
	}
	if dir != "" {
		opts = append(opts, persist.WithRoot(dir))
	}

	r, err := persist.Open(name, opts...)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"region": r.Name(), "path": r.Path()}).Debug("region opened")
	return r, nil
}

func requireArgs(cmd *cli.Command, n int, usage string) error {
	if cmd.Args().Len() != n {
		return fmt.Errorf("usage: storekit %s %s", cmd.Name, usage)
	}
	return nil
}
