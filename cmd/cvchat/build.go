package main

import (
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type buildCommander struct {
	flags    *rootFlags
	cvFolder string
}

func newBuildCmd(flags *rootFlags) *cobra.Command {
	cmder := &buildCommander{flags: flags}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the vector index from the CV folder",
		Long: `Parse every PDF in the CV folder, chunk and embed it, and write a fresh
index. Files that cannot be parsed are skipped. The previous index is only
replaced when at least one CV was processed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.cvFolder, "cv-folder", "", "Folder of PDF CVs (overrides config)")
	return cmd
}

func (c *buildCommander) run(cmd *cobra.Command) error {
	cfg, logger, err := c.flags.load()
	if err != nil {
		return err
	}
	if c.cvFolder != "" {
		cfg.CV.Folder = c.cvFolder
	}

	svc, err := newService(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	color.Blue("\nBuilding index from %s\n", cfg.CV.Folder)

	var bar *progressbar.ProgressBar
	report, err := svc.Build(cmd.Context(), func(done, total int, name string) {
		if bar == nil {
			bar = getProgressBar(total, "📄 Processing CVs...")
		}
		_ = bar.Set(done)
		if name != "" {
			bar.Describe(color.BlueString("📄 %s", name))
		}
	})
	if bar != nil {
		_ = bar.Finish()
	}

	for _, skipped := range report.Skipped {
		color.Yellow("\n⚠ Skipped %s: %s", skipped.Name, skipped.Reason)
	}
	if err != nil {
		color.Red("\n✗ Build failed: %v\n", err)
		return err
	}

	color.Green("\n✓ Processed %d/%d CVs into %d chunks\n", report.Processed, report.Total, report.Chunks)
	return nil
}
