package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/terrierteam/artifact"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <manifest>",
		Short: "Show the contents of a package manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !strings.HasSuffix(path, ".json") {
				path += ".json"
			}
			m, err := artifact.LoadManifest(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sha256:     %s\n", m.ExpectedSHA256)
			fmt.Fprintf(out, "total size: %s\n", humanize.Bytes(uint64(max(m.TotalSize, 0))))
			if len(m.Segments) > 0 {
				fmt.Fprintf(out, "segments:   %d\n", len(m.Segments))
			}
			fmt.Fprintln(out)

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tSIZE\tOFFSET")
			for _, entry := range m.Contents {
				fmt.Fprintf(w, "%s\t%s\t%d\n", entry.Path, humanize.Bytes(uint64(max(entry.Size, 0))), entry.Offset)
			}
			return w.Flush()
		},
	}
	return cmd
}
