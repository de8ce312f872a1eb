package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"visionreport/internal/artifacts"
	"visionreport/internal/reports"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand(os.Stdout, time.Now)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "reportctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer, now func() time.Time) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reportctl",
		Short: "Maintenance tools for the reports document",
		Long: `reportctl repairs a reports.json document offline. Every command is a dry run
unless --apply is given; applying always writes a timestamped backup first.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.AddCommand(
		newDedupeCmd(now),
		newBackfillCmd(now),
	)
	return cmd
}

type applyFlags struct {
	file   string
	dryRun bool
	apply  bool
}

func (f *applyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "file", "", "Path to reports.json")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", true, "Only print what would change")
	cmd.Flags().BoolVar(&f.apply, "apply", false, "Write changes after backing up the file")
	_ = cmd.MarkFlagRequired("file")
}

func (f *applyFlags) shouldApply(cmd *cobra.Command) (bool, error) {
	if f.apply && cmd.Flags().Changed("dry-run") && f.dryRun {
		return false, errors.New("--dry-run and --apply are mutually exclusive")
	}
	return f.apply, nil
}

func newDedupeCmd(now func() time.Time) *cobra.Command {
	var flags applyFlags
	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Keep only the newest report per user and processed image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			apply, err := flags.shouldApply(cmd)
			if err != nil {
				return err
			}
			all, err := reports.LoadDocument(flags.file)
			if err != nil {
				return err
			}

			kept, removed := reports.Dedupe(all)
			out := cmd.OutOrStdout()
			for _, r := range removed {
				fmt.Fprintf(out, "remove %s user=%s image=%s created=%s\n",
					r.ID, r.UserID, reports.NormalizeImagePath(*r.ProcessedImage), r.CreatedAt.Format(time.RFC3339))
			}
			fmt.Fprintf(out, "%d reports, %d duplicates\n", len(all), len(removed))

			if !apply || len(removed) == 0 {
				return nil
			}
			backup, err := reports.RewriteDocument(flags.file, kept, now())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "backup written to %s\n", backup)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newBackfillCmd(now func() time.Time) *cobra.Command {
	var (
		flags     applyFlags
		imagesDir string
	)
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Propose processed images for reports that have none",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			apply, err := flags.shouldApply(cmd)
			if err != nil {
				return err
			}
			info, err := os.Stat(imagesDir)
			if err != nil {
				return fmt.Errorf("images dir: %w", err)
			}
			if !info.IsDir() {
				return fmt.Errorf("images dir %s is not a directory", imagesDir)
			}
			all, err := reports.LoadDocument(flags.file)
			if err != nil {
				return err
			}
			candidates, err := artifacts.ScanDir(imagesDir, artifacts.ImageFilter)
			if err != nil {
				return err
			}

			proposals := reports.Backfill(all, candidates)
			out := cmd.OutOrStdout()
			for _, p := range proposals {
				fmt.Fprintf(out, "propose %s user=%s image=%s\n", p.ReportID, p.UserID, p.ProcessedImage)
			}
			fmt.Fprintf(out, "%d reports, %d proposals\n", len(all), len(proposals))

			if !apply || len(proposals) == 0 {
				return nil
			}
			backup, err := reports.RewriteDocument(flags.file, reports.ApplyProposals(all, proposals), now())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "backup written to %s\n", backup)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&imagesDir, "images-dir", "", "Directory of candidate images")
	_ = cmd.MarkFlagRequired("images-dir")
	return cmd
}
