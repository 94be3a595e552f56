package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terrierteam/artifact"
	"github.com/terrierteam/artifact/oci"
)

func newFetchCmd() *cobra.Command {
	var (
		flagSHA256   string
		flagCacheDir string
		flagPlain    bool
	)

	cmd := &cobra.Command{
		Use:   "fetch <locator>",
		Short: "Fetch and extract a package into the local cache",
		Long: `Fetches the package at a local path, URL, or alias (hf:owner/repo,
oci:registry/repo:tag), verifies it, and extracts it into the artifact
cache. Prints the extracted directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := artifact.NewRegistry()
			ociOpts := []oci.Option{}
			if flagPlain {
				ociOpts = append(ociOpts, oci.WithPlainHTTP())
			}
			registry.RegisterProtocol("oci", oci.Resolver(ociOpts...))

			opts := []artifact.FetchOption{
				artifact.FetchWithRegistry(registry),
				artifact.FetchWithLogger(newLogger()),
			}
			if flagSHA256 != "" {
				opts = append(opts, artifact.FetchWithExpectedSHA256(flagSHA256))
			}
			if flagCacheDir != "" {
				opts = append(opts, artifact.FetchWithCacheDir(flagCacheDir))
			}

			path, err := artifact.FromURL(cmd.Context(), args[0], opts...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagSHA256, "sha256", "", "expected SHA-256 of the package")
	cmd.Flags().StringVar(&flagCacheDir, "cache-dir", "", "cache home (default: $PT_ARTIFACT_HOME or the user cache dir)")
	cmd.Flags().BoolVar(&flagPlain, "plain-http", false, "use http for oci: registries")
	return cmd
}
