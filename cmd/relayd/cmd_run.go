package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/a2alab/relay/internal/domain"
)

var (
	runInitiator string
	runHopLimit  int
)

func init() {
	runCmd.Flags().StringVar(&runInitiator, "initiator", "", "label of the endpoint that receives the prompt")
	runCmd.Flags().IntVar(&runHopLimit, "hop-limit", 0, "override the configured hop limit")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run <prompt>",
	Short: "Run one relay session to completion and print the transcript",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runOnce,
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, closeArchive, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeArchive()

	sess, err := svc.RunRelay(ctx, domain.RelayRequest{
		Prompt:    strings.Join(args, " "),
		Initiator: runInitiator,
		HopLimit:  runHopLimit,
	})
	if err != nil {
		return err
	}

	entries, err := svc.GetEntries(ctx, sess.SessionID, nil)
	if err != nil {
		return err
	}
	for _, e := range entries {
		marker := " "
		if e.Relayed {
			marker = "*"
		}
		fmt.Printf("%s %s [%s] %-8s %s\n", marker, e.Ts.Format("15:04:05"), e.Origin, e.Kind, e.Text)
	}
	fmt.Printf("\nsession %s: %s after %d hops (reason=%s)\n", sess.SessionID, sess.Status, sess.Hops, sess.Reason)
	return nil
}
