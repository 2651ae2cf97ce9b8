package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/cvchat/pkg/chatbot"
)

type chatCommander struct {
	flags *rootFlags
	topK  int
}

func newChatCmd(flags *rootFlags) *cobra.Command {
	cmder := &chatCommander{flags: flags}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask questions about the indexed CVs",
		Long: `Start an interactive session. Type "info" for the CV summary and "exit"
or "quit" to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().IntVarP(&cmder.topK, "top-k", "k", 0, "Chunks to retrieve per question (defaults to config)")
	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command) error {
	cfg, logger, err := c.flags.load()
	if err != nil {
		return err
	}

	svc, err := newService(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	printSummary(svc.Summary())
	color.Cyan("\nChat with your CVs (type 'exit' to quit, 'info' for the summary)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(query) {
		case "exit", "quit":
			return nil
		case "info":
			printSummary(svc.Summary())
			continue
		}

		ask(cmd.Context(), svc, query, c.topK)
	}

	return scanner.Err()
}

// ask streams one answer to stdout and lists its sources.
func ask(ctx context.Context, svc *chatbot.Service, query string, topK int) {
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	spinner := getSpinner("🔍 Searching CVs...")
	started := false
	resp, err := svc.ChatStream(ctx, query, topK, func(chunk string) {
		if !started {
			_ = spinner.Finish()
			fmt.Print("\r")
			assistantPrompt("Assistant: ")
			started = true
		}
		fmt.Print(chunk)
	})
	if !started {
		_ = spinner.Finish()
		fmt.Print("\r")
	}
	if err != nil {
		color.Red("Error: %v\n", err)
		return
	}

	if !started {
		assistantPrompt("Assistant: %s", resp.Answer)
	}
	fmt.Println()
	printSources(resp.Sources)
}
