package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/cvmgrid/internal/cache"
	"github.com/sells-group/cvmgrid/internal/model"
	"github.com/sells-group/cvmgrid/internal/store"
)

var (
	cacheListKind   string
	cacheListModel  string
	cacheListLimit  int
	cacheListOffset int
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect cached grid artifacts",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalogued artifacts, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st == nil {
			return fmt.Errorf("cache list: no catalog configured (cache.catalog_path)")
		}
		defer st.Close() //nolint:errcheck

		arts, err := st.ListArtifacts(ctx, store.ArtifactFilter{
			Kind:   cacheListKind,
			Model:  cacheListModel,
			Limit:  cacheListLimit,
			Offset: cacheListOffset,
		})
		if err != nil {
			return fmt.Errorf("list artifacts: %w", err)
		}

		if len(arts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No artifacts found.")
			return nil
		}
		formatArtifactList(cmd.OutOrStdout(), arts)
		return nil
	},
}

var cacheInspectCmd = &cobra.Command{
	Use:   "inspect <base>",
	Short: "Print the metadata of a cached artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		codec := cache.NewCodec(cfg.Cache.Dir)
		meta, err := codec.LoadMeta(args[0])
		if err != nil {
			return fmt.Errorf("inspect %s: %w", args[0], err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	},
}

var cacheRemoveCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove an artifact from the catalog (files are kept)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st == nil {
			return fmt.Errorf("cache rm: no catalog configured (cache.catalog_path)")
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeleteArtifact(ctx, args[0]); err != nil {
			return fmt.Errorf("remove artifact: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
		return nil
	},
}

// formatArtifactList writes a tabular listing of artifacts.
func formatArtifactList(w io.Writer, arts []store.Artifact) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tMODEL\tPROPERTY\tSIZE\tMIN\tMAX\tBASE\tCREATED")
	fmt.Fprintln(tw, "--\t----\t-----\t--------\t----\t---\t---\t----\t-------")

	for _, a := range arts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%dx%d\t%s\t%s\t%s\t%s\n",
			truncateID(a.ID),
			a.Kind,
			a.Model,
			a.Property,
			a.NumX, a.NumY,
			formatOptional(a.Min),
			formatOptional(a.Max),
			a.Base,
			a.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	tw.Flush() //nolint:errcheck
}

func formatOptional(o model.Optional) string {
	if !o.Valid {
		return "-"
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", o.Value), "0"), ".")
}

// truncateID shortens a UUID to its first 8 characters.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	cacheListCmd.Flags().StringVar(&cacheListKind, "kind", "", "filter by kind (slice, cross, profile, diff)")
	cacheListCmd.Flags().StringVar(&cacheListModel, "model", "", "filter by model id")
	cacheListCmd.Flags().IntVar(&cacheListLimit, "limit", 20, "max artifacts to show")
	cacheListCmd.Flags().IntVar(&cacheListOffset, "offset", 0, "skip this many artifacts")

	cacheCmd.AddCommand(cacheListCmd, cacheInspectCmd, cacheRemoveCmd)
	rootCmd.AddCommand(cacheCmd)
}
