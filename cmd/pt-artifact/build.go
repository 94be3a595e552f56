package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/terrierteam/artifact"
)

func newBuildCmd() *cobra.Command {
	var (
		flagOutput      string
		flagSegmentSize string
		flagType        string
		flagFormat      string
		flagHint        string
	)

	cmd := &cobra.Command{
		Use:   "build <dir>",
		Short: "Build a package from an artifact directory",
		Long: `Builds a .tar.lz4 package and a JSON manifest from an artifact directory.

With --max-segment-size, the package is split into numbered segment files
once each segment reaches the given size (e.g. 5GB, 512MiB).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []artifact.BuildOption{
				artifact.BuildWithLogger(newLogger()),
			}
			if flagSegmentSize != "" {
				n, err := humanize.ParseBytes(flagSegmentSize)
				if err != nil {
					return fmt.Errorf("parse --max-segment-size: %w", err)
				}
				opts = append(opts, artifact.BuildWithMaxSegmentSize(int64(n)))
			}
			if flagType != "" || flagFormat != "" || flagHint != "" {
				opts = append(opts, artifact.BuildWithMetadata(artifact.Metadata{
					Type:        flagType,
					Format:      flagFormat,
					PackageHint: flagHint,
				}))
			}

			out, err := artifact.BuildPackage(cmd.Context(), args[0], flagOutput, opts...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "package path (default: <dir>.tar.lz4)")
	cmd.Flags().StringVar(&flagSegmentSize, "max-segment-size", "", "maximum segment size (e.g. 5GB)")
	cmd.Flags().StringVar(&flagType, "type", "", "artifact type for synthesized metadata")
	cmd.Flags().StringVar(&flagFormat, "format", "", "artifact format for synthesized metadata")
	cmd.Flags().StringVar(&flagHint, "package-hint", "", "package hint for synthesized metadata")
	return cmd
}
