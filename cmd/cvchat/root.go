package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/xhad/cvchat/pkg/config"
)

const rootLongDesc = `cvchat answers recruiter questions about a folder of PDF CVs.

PDFs are transcribed to markdown, split into chunks, embedded and stored in a
local vector index. Questions retrieve the closest chunks and a generative
model answers from them.

  cvchat build      Index every PDF in the CV folder
  cvchat chat       Ask questions interactively
  cvchat serve      Run the HTTP and WebSocket API`

type rootFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:          "cvchat",
		Short:        "Chat with a collection of CVs",
		Long:         rootLongDesc,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to config file")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newBuildCmd(flags),
		newChatCmd(flags),
		newTestCmd(flags),
		newServeCmd(flags),
		newSummaryCmd(flags),
	)

	return cmd
}

// load reads and validates the config and builds the logger it describes.
func (f *rootFlags) load() (*config.Config, *log.Logger, error) {
	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return nil, nil, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, nil, fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newLogger(cfg config.LogConfig) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	formatter := log.TextFormatter
	if cfg.Format == "json" {
		formatter = log.JSONFormatter
	}

	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		Prefix:          "cvchat",
	}), nil
}
