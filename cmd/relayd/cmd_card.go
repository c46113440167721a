package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/a2alab/relay/internal/adapter/agentclient"
	"github.com/a2alab/relay/internal/domain"
)

func init() {
	rootCmd.AddCommand(cardCmd)
}

var cardCmd = &cobra.Command{
	Use:   "card <base-url>",
	Short: "Fetch and print an agent's capability card",
	Args:  cobra.ExactArgs(1),
	RunE:  runCard,
}

func runCard(cmd *cobra.Command, args []string) error {
	client := agentclient.NewClient(30 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	card, err := client.FetchCard(ctx, domain.AgentEndpoint{BaseURL: args[0]})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(card, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
