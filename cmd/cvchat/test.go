package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// sampleQuestions exercise the usual recruiter queries end to end.
var sampleQuestions = []string{
	"Does any candidate have Python experience?",
	"Find candidates with project management skills",
	"Who has an information technology education?",
	"Does any candidate know machine learning?",
}

type testCommander struct {
	flags *rootFlags
}

func newTestCmd(flags *rootFlags) *cobra.Command {
	cmder := &testCommander{flags: flags}

	return &cobra.Command{
		Use:   "test",
		Short: "Run sample questions against the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}
}

func (c *testCommander) run(cmd *cobra.Command) error {
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

	for i, q := range sampleQuestions {
		color.Green("\n[%d/%d] %s", i+1, len(sampleQuestions), q)
		resp, err := svc.Chat(cmd.Context(), q, 3)
		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}
		fmt.Printf("%s\n", preview(resp.Answer, 200))
	}
	return nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
