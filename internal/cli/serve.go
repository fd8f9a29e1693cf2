package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mavplan/internal/logger"
	"mavplan/internal/planner"
	"mavplan/internal/server"
)

var (
	serveAddr     string
	serveRate     float64
	serveBurst    int
	serveSessions int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the planning API over HTTP",
	Long: `Serve /api/status, /api/plan and /api/validate. Missions are exchanged
as MAVLink mission items so a ground station can post its current mission
and load the result.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// The server still answers /api/status and /api/validate without a
		// model backend.
		var gen planner.Generator
		if p, err := newProvider(cfg); err != nil {
			logger.Log.Printf("[CLI] %v", err)
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v; /api/plan is disabled\n", err)
		} else {
			gen = p
		}

		srv, err := server.New(cfg, gen, server.Options{
			Verbose:     verbose,
			PlanRate:    serveRate,
			PlanBurst:   serveBurst,
			MaxSessions: serveSessions,
		})
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", serveAddr)
		return srv.ListenAndServe(ctx, serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "127.0.0.1:5000", "listen address")
	serveCmd.Flags().Float64Var(&serveRate, "rate", 2, "sustained /api/plan requests per second (0 disables the limit)")
	serveCmd.Flags().IntVar(&serveBurst, "burst", 4, "/api/plan burst size")
	serveCmd.Flags().IntVar(&serveSessions, "max-sessions", 64, "planning sessions kept in memory")
}
