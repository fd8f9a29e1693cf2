package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mavplan/internal/display"
	"mavplan/internal/session"
	"mavplan/internal/store"
)

var (
	sessionsLimit  int
	sessionsFormat string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions, most recent first",
	Args:  cobra.NoArgs,
	RunE: withStore(func(ctx context.Context, cmd *cobra.Command, st *store.Store, args []string) error {
		list, err := st.List(ctx, sessionsLimit)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), display.FormatSessions(list))
		return nil
	}),
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a saved session's mission and validation",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(ctx context.Context, cmd *cobra.Command, st *store.Store, args []string) error {
		snap, err := st.Load(ctx, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Session %s (%s mode, %d turn(s))\n", snap.ID, snap.Mode, len(snap.History))
		fmt.Fprint(out, display.FormatMission(snap.Mission))
		if snap.Mission == nil {
			fmt.Fprintln(out)
			return nil
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		v, s := session.Check(snap.Mission, snap.Mode, cfg.Agent, snap.Home)
		fmt.Fprint(out, display.FormatValidation(v))
		fmt.Fprint(out, display.FormatSummary(s))
		return nil
	}),
}

var sessionsExportCmd = &cobra.Command{
	Use:   "export ID",
	Short: "Print a saved session's mission as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(ctx context.Context, cmd *cobra.Command, st *store.Store, args []string) error {
		snap, err := st.Load(ctx, args[0])
		if err != nil {
			return err
		}
		if snap.Mission == nil {
			return fmt.Errorf("session %s has no mission", snap.ID)
		}
		out, err := encodeMission(snap.Mission, sessionsFormat)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), out)
	}),
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete ID...",
	Short: "Delete saved sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: withStore(func(ctx context.Context, cmd *cobra.Command, st *store.Store, args []string) error {
		for _, id := range args {
			if err := st.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", id)
		}
		return nil
	}),
}

// withStore opens the session database for the duration of one command.
func withStore(fn func(ctx context.Context, cmd *cobra.Command, st *store.Store, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
		return fn(cmd.Context(), cmd, st, args)
	}
}

func init() {
	sessionsListCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "maximum sessions to list (0 for all)")
	sessionsExportCmd.Flags().StringVarP(&sessionsFormat, "format", "f", formatMAVLink, "mavlink or internal")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsExportCmd, sessionsDeleteCmd)
}
