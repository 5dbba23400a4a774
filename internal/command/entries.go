package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"
)

// ErrNotFound is returned by get for a missing or expired key.
var ErrNotFound = errors.New("key not found")

// DefaultTTL is the lifetime of a value written by set without --ttl.
const DefaultTTL = 24 * time.Hour

func GetCommandBuilder() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "print the value stored under a key",
		ArgsUsage: "KEY",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 1, "KEY"); err != nil {
				return err
			}
			return GetCommandAction(ctx, cmd)
		},
	}
}

func GetCommandAction(_ context.Context, cmd *cli.Command) error {
	r, err := openRegion(cmd)
	if err != nil {
		return err
	}

	key := cmd.Args().First()
	v, ok := r.Read(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	_, err = fmt.Fprintln(writer(cmd), v)
	return err
}

func SetCommandBuilder() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "store a value; anything that is not JSON is stored as a JSON string",
		ArgsUsage: "KEY VALUE",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "ttl",
				Aliases: []string{"t"},
				Usage:   "lifetime of the value",
				Value:   DefaultTTL,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 2, "KEY VALUE"); err != nil {
				return err
			}
			if cmd.Duration("ttl") <= 0 {
				return errors.New("--ttl must be positive")
			}
			return SetCommandAction(ctx, cmd)
		},
	}
}

func SetCommandAction(_ context.Context, cmd *cli.Command) error {
	r, err := openRegion(cmd)
	if err != nil {
		return err
	}

	key, value := cmd.Args().Get(0), cmd.Args().Get(1)
	r.Store(key, encodeValue(value), cmd.Duration("ttl"))
	return r.Save()
}

// encodeValue keeps valid JSON as is and quotes anything else.
func encodeValue(s string) string {
	if gjson.Valid(s) {
		return s
	}
	return fmt.Sprintf("%q", s)
}

func RmCommandBuilder() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "remove a key",
		ArgsUsage: "KEY",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 1, "KEY"); err != nil {
				return err
			}
			return RmCommandAction(ctx, cmd)
		},
	}
}

func RmCommandAction(_ context.Context, cmd *cli.Command) error {
	r, err := openRegion(cmd)
	if err != nil {
		return err
	}

	r.Remove(cmd.Args().First())
	return r.Save()
}

func PurgeCommandBuilder() *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "remove every key of the region",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 0, ""); err != nil {
				return err
			}
			return PurgeCommandAction(ctx, cmd)
		},
	}
}

func PurgeCommandAction(_ context.Context, cmd *cli.Command) error {
	r, err := openRegion(cmd)
	if err != nil {
		return err
	}

	n := len(r.LiveEntries())
	r.Purge()
	if err := r.Save(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(writer(cmd), "removed %d entries from %s\n", n, r.Name())
	return err
}
