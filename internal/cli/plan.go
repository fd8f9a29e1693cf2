package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mavplan/internal/display"
	"mavplan/internal/executor"
	"mavplan/internal/logger"
	"mavplan/internal/mavlink"
	"mavplan/internal/mission"
	"mavplan/internal/planner"
	"mavplan/internal/session"
	"mavplan/internal/tools"
)

var (
	planMode    string
	planMission string
	planHome    string
	planFormat  string
)

var planCmd = &cobra.Command{
	Use:   "plan REQUEST",
	Short: "Plan one request and print the resulting mission as JSON",
	Long: `Run a single planning request against an optional starting mission and
print the response: the new mission plus the items added, modified and
deleted relative to the starting mission. Either --mission or --home is
required so the planner has an origin.`,
	Example: `  mavplan plan --home 37.7749,-122.4194 "take off to 30 m and fly 500 m north"
  mavplan plan --mission current.json --format mavlink "add a loiter at the last waypoint"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		mode, err := parseMode(planMode)
		if err != nil {
			return err
		}
		home, err := parseHome(planHome)
		if err != nil {
			return err
		}
		req := session.PlanRequest{
			UserInput: strings.Join(args, " "),
			Mode:      mode,
			Home:      home,
		}
		if planMission != "" {
			if req.MissionState, _, err = readMissionFile(planMission); err != nil {
				return err
			}
		}
		if req.MissionState == nil && req.Home == nil {
			return fmt.Errorf("either --mission or --home is required")
		}

		provider, err := newProvider(cfg)
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		resp, err := session.New(cfg, provider, mode).Plan(ctx, req)
		if resp == nil {
			return err
		}
		out, encErr := encodePlanResponse(resp, planFormat)
		if encErr != nil {
			return encErr
		}
		if werr := writeJSON(cmd.OutOrStdout(), out); werr != nil {
			return werr
		}
		if verbose {
			fmt.Fprintln(cmd.ErrOrStderr(), display.FormatRequestMetrics(resp.Metrics))
		}
		return err
	},
}

// encodePlanResponse swaps the mission fields for MAVLink items when asked.
func encodePlanResponse(resp *session.PlanResponse, format string) (any, error) {
	f, err := normalizeFormat(format)
	if err != nil {
		return nil, err
	}
	if f != formatMAVLink {
		return resp, nil
	}
	type mavlinkResponse struct {
		Success    bool               `json:"success"`
		Mode       mission.Mode       `json:"mode"`
		Output     string             `json:"output"`
		Error      string             `json:"error,omitempty"`
		Items      []mavlink.Item     `json:"mission_items"`
		Added      []mavlink.Item     `json:"added_items"`
		Modified   []mavlink.Item     `json:"modified_items"`
		Deleted    []mavlink.Item     `json:"deleted_items"`
		Validation session.Validation `json:"validation"`
		Summary    session.Summary    `json:"summary"`
	}
	return mavlinkResponse{
		Success:    resp.Success,
		Mode:       resp.Mode,
		Output:     resp.Output,
		Error:      resp.Error,
		Items:      mavlink.Encode(resp.Mission),
		Added:      encodeItemList(resp.Added),
		Modified:   encodeItemList(resp.Modified),
		Deleted:    encodeItemList(resp.Deleted),
		Validation: resp.Validation,
		Summary:    resp.Summary,
	}, nil
}

func encodeItemList(items []mission.Item) []mavlink.Item {
	out := make([]mavlink.Item, len(items))
	for i, it := range items {
		out[i] = mavlink.EncodeItem(it)
	}
	return out
}

var (
	applyNames   []string
	applyMission string
	applyMode    string
	applyList    bool
	applyYes     bool
	applyOut     string
)

var applyCmd = &cobra.Command{
	Use:   "apply PLANFILE",
	Short: "Run scripted tool plans without an LLM",
	Long: `Load tool plans from a JSON file and apply them in order to a mission.
A file may hold {"plans":[...]}, a list of plans, a single {"calls":[...]}
plan, or a bare list of calls. Plans that delete or reorder items ask for
confirmation unless --yes is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	planCmd.Flags().StringVarP(&planMode, "mode", "m", string(mission.ModeMission), "mission or command")
	planCmd.Flags().StringVar(&planMission, "mission", "", "starting mission file (internal or MAVLink JSON)")
	planCmd.Flags().StringVar(&planHome, "home", "", "home position as lat,lon")
	planCmd.Flags().StringVarP(&planFormat, "format", "f", formatInternal, "mission output format: internal or mavlink")

	applyCmd.Flags().StringSliceVarP(&applyNames, "names", "n", nil, "only run the named plans, in this order")
	applyCmd.Flags().StringVar(&applyMission, "mission", "", "starting mission file (internal or MAVLink JSON)")
	applyCmd.Flags().StringVarP(&applyMode, "mode", "m", string(mission.ModeMission), "mission or command")
	applyCmd.Flags().BoolVarP(&applyList, "list", "l", false, "list the plans in the file and exit")
	applyCmd.Flags().BoolVarP(&applyYes, "yes", "y", false, "do not ask before risky plans")
	applyCmd.Flags().StringVarP(&applyOut, "output", "o", "", "write the final mission to this file")
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mode, err := parseMode(applyMode)
	if err != nil {
		return err
	}
	plans, err := planner.LoadToolPlansFromFile(args[0])
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		return fmt.Errorf("no plans found in %s", args[0])
	}
	if len(applyNames) > 0 {
		selected, missing := planner.SelectPlansByNames(plans, applyNames)
		if len(missing) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "Missing plans: %v\n", missing)
		}
		plans = selected
	}
	if applyList {
		fmt.Fprint(cmd.OutOrStdout(), display.FormatPlansCatalog(args[0], plans))
		return nil
	}

	mgr := mission.NewManager(cfg.Agent, mode)
	if applyMission != "" {
		m, _, err := readMissionFile(applyMission)
		if err != nil {
			return err
		}
		mgr.SetMission(m)
	} else {
		mgr.CreateMission()
	}
	tb := tools.New(mgr)

	confirm := executor.ConfirmFunc(func(plan *planner.ToolPlan) bool {
		fmt.Fprintln(cmd.OutOrStdout(), display.FormatPlan(plan))
		return promptYesNo(cmd, "This plan removes or reorders mission items. Continue?")
	})
	if applyYes {
		confirm = nil
	}

	ctx, stop := signalContext()
	defer stop()

	out := cmd.OutOrStdout()
	for i, p := range plans {
		if err := planner.ValidatePlan(p.Plan, mode); err != nil {
			fmt.Fprintf(out, "[Plan %s] invalid: %v\n", p.Name, err)
			continue
		}
		logger.Log.Printf("[CLI] applying plan %s (FULL):\n%s", p.Name, display.FormatPlanFull(p.Plan))
		rm, obs, err := executor.ExecutePlan(ctx, tb, p.Plan, i+1, confirm)
		for _, o := range obs {
			fmt.Fprintln(out, display.FormatObservation(o))
		}
		if err != nil {
			fmt.Fprintf(out, "[Plan %s] stopped: %v\n", p.Name, err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		fmt.Fprintf(out, "[Plan %s] %d call(s), %d rejected\n", p.Name, len(rm.Calls), rm.Failed())
	}

	final := mgr.Mission().Clone()
	v, _ := session.Check(final, mode, cfg.Agent, mgr.Home())
	fmt.Fprint(out, display.FormatMission(final))
	fmt.Fprint(out, display.FormatValidation(v))

	if applyOut != "" {
		f, err := os.Create(applyOut)
		if err != nil {
			return fmt.Errorf("failed to write mission: %w", err)
		}
		defer f.Close()
		return writeJSON(f, final)
	}
	return nil
}

// promptYesNo reads one answer from the command's input. Anything but y/yes
// is a no.
func promptYesNo(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/n] ", question)
	var ans string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &ans); err != nil {
		return false
	}
	ans = strings.ToLower(strings.TrimSpace(ans))
	return ans == "y" || ans == "yes"
}
