package command

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// maxValueWidth is where ls truncates long values.
const maxValueWidth = 48

func LsCommandBuilder() *cli.Command {
	return &cli.Command{
		Name:  "ls",
		Usage: "list live entries with their expiry",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "full",
				Usage: "do not truncate values",
			},
			&cli.StringFlag{
				Name:    "prefix",
				Aliases: []string{"p"},
				Usage:   "only list keys starting with prefix",
			},
		},
		Action: LsCommandAction,
	}
}

func LsCommandAction(_ context.Context, cmd *cli.Command) error {
	r, err := openRegion(cmd)
	if err != nil {
		return err
	}

	entries := r.LiveEntries()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	w := writer(cmd)
	if fi, err := os.Stat(r.Path()); err == nil {
		fmt.Fprintf(w, "%s: %d entries, %s\n", r.Path(), len(entries), humanize.Bytes(uint64(fi.Size())))
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tEXPIRES\tVALUE")

	prefix := cmd.String("prefix")
	for _, ent := range entries {
		if !strings.HasPrefix(ent.Key, prefix) {
			continue
		}
		v := ent.Value
		if !cmd.Bool("full") && len(v) > maxValueWidth {
			v = v[:maxValueWidth-3] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", ent.Key, humanize.Time(ent.ExpiresAt), v)
	}
	return tw.Flush()
}
