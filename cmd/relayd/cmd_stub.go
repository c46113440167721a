package main

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/a2alab/relay/internal/stubagent"
)

var (
	stubPersona string
	stubPort    int
	stubPeer    string
)

func init() {
	stubCmd.Flags().StringVar(&stubPersona, "persona", "claims", "stub persona: claims or records")
	stubCmd.Flags().IntVar(&stubPort, "port", 8001, "listen port")
	stubCmd.Flags().StringVar(&stubPeer, "peer", "", "label of the peer endpoint named in handoffs")
	rootCmd.AddCommand(stubCmd)
}

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Serve a scripted test agent",
	Long:  "stub serves a small scripted agent for local development:\na claims persona answering claim questions, or a records persona\nsummarizing medical records. The two hand questions to each other.",
	RunE:  runStub,
}

func runStub(cmd *cobra.Command, args []string) error {
	var agent *stubagent.Agent
	switch stubPersona {
	case "claims":
		peer := stubPeer
		if peer == "" {
			peer = "B"
		}
		agent = stubagent.NewClaimsAgent(peer)
	case "records":
		peer := stubPeer
		if peer == "" {
			peer = "A"
		}
		agent = stubagent.NewRecordsAgent(peer)
	default:
		return fmt.Errorf("unknown persona %q (want claims or records)", stubPersona)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	agent.RegisterRoutes(e)

	return e.Start(fmt.Sprintf(":%d", stubPort))
}
