package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mavplan/internal/display"
	"mavplan/internal/listener"
	"mavplan/internal/logger"
	"mavplan/internal/mavlink"
	"mavplan/internal/mission"
	"mavplan/internal/planner"
	"mavplan/internal/session"
	"mavplan/internal/store"
)

const turnTimeout = 2 * time.Minute

var (
	chatMode    string
	chatSession string
	chatHome    string
	chatNoSave  bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Build a mission interactively",
	Long: `Start an interactive session. In mission mode the mission and the
conversation carry over between requests and are saved to the session
database; in command mode every request starts from an empty mission.

Type 'help' inside the session for the built-in commands.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMode, "mode", "m", string(mission.ModeMission), "mission or command")
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "resume a saved session by ID")
	chatCmd.Flags().StringVar(&chatHome, "home", "", "home position as lat,lon")
	chatCmd.Flags().BoolVar(&chatNoSave, "no-save", false, "do not save the session")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mode, err := parseMode(chatMode)
	if err != nil {
		return err
	}
	home, err := parseHome(chatHome)
	if err != nil {
		return err
	}
	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	var st *store.Store
	if !chatNoSave || chatSession != "" {
		st, err = store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	ctx, stop := signalContext()
	defer stop()

	sess := session.New(cfg, provider, mode)
	if chatSession != "" {
		snap, err := st.Load(ctx, chatSession)
		if err != nil {
			return err
		}
		sess.Load(snap)
	}
	if home != nil {
		sess.SetHome(home)
	}
	sess.Confirm = confirmPlan

	if err := listener.Init(listener.PromptFor(string(sess.Mode())), historyFile()); err != nil {
		return fmt.Errorf("failed to init terminal input: %w", err)
	}
	defer listener.Close()

	r := &repl{sess: sess, store: st, save: !chatNoSave}
	listener.PrintAbove(fmt.Sprintf("Session %s (%s mode). Type 'help' for commands, 'exit' to quit.", sess.ID, sess.Mode()))
	if m := sess.Mission(); m != nil && m.Len() > 0 {
		listener.PrintAbove(display.FormatMission(m))
	}
	return r.loop(ctx)
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".mavplan")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}

// confirmPlan shows a plan that deletes or reorders items and asks before
// it runs.
func confirmPlan(plan *planner.ToolPlan) bool {
	logger.Log.Printf("[CLI] risky plan (FULL):\n%s", display.FormatPlanFull(plan))
	listener.PrintAbove(display.FormatPlan(plan))
	return listener.AskYesNo("This plan removes or reorders mission items. Continue?")
}

type repl struct {
	sess  *session.Session
	store *store.Store
	save  bool
}

func (r *repl) loop(ctx context.Context) error {
	for {
		line, err := listener.ReadLine()
		if errors.Is(err, listener.ErrQuit) {
			fmt.Println("Goodbye!")
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		if quit := r.handle(ctx, line); quit {
			fmt.Println("Goodbye!")
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// handle runs one line of input and reports whether the user asked to quit.
func (r *repl) handle(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "exit", "quit":
		return true
	case "help":
		listener.PrintAbove(replHelp)
		return false
	case "mode":
		r.switchMode(fields[1:])
		return false
	case "show":
		listener.PrintAbove(display.FormatMission(r.sess.Mission()))
		listener.PrintAbove(display.FormatSummary(r.sess.MissionSummary()))
		return false
	case "mavlink":
		listener.PrintAbove(display.FormatMAVLink(mavlink.Encode(r.sess.Mission())))
		return false
	case "reset":
		r.sess.Reset()
		r.persist(ctx)
		listener.PrintAbove("Mission cleared.")
		return false
	}

	turnCtx, cancel := context.WithTimeout(ctx, turnTimeout)
	defer cancel()
	res, err := r.sess.Turn(turnCtx, line)
	if err != nil {
		logger.Log.Printf("[CLI] turn failed: %v", err)
	}
	listener.PrintAbove(display.FormatTurnResult(res, verbose))
	if err == nil {
		r.persist(ctx)
	}
	return false
}

func (r *repl) switchMode(args []string) {
	if len(args) == 0 {
		listener.PrintAbove(fmt.Sprintf("Current mode: %s", r.sess.Mode()))
		return
	}
	mode, err := parseMode(args[0])
	if err != nil {
		listener.PrintAbove(err.Error())
		return
	}
	if mode == r.sess.Mode() {
		listener.PrintAbove(fmt.Sprintf("Already in %s mode.", mode))
		return
	}
	r.sess.SetMode(mode)
	listener.SetPrompt(listener.PromptFor(string(mode)))
	listener.PrintAbove(fmt.Sprintf("Switched to %s mode. The mission was cleared.", mode))
}

// persist saves mission-mode sessions after each change.
func (r *repl) persist(ctx context.Context) {
	if !r.save || r.store == nil || r.sess.Mode() != mission.ModeMission {
		return
	}
	if err := r.store.Save(ctx, r.sess.Snapshot()); err != nil {
		listener.PrintAbove(fmt.Sprintf("[Session] save failed: %v", err))
	}
}

const replHelp = `Commands:
  show                   print the mission and its summary
  mavlink                print the mission as MAVLink items
  mode [mission|command] show or switch the planning mode
  reset                  clear the mission and the conversation
  exit                   quit
Anything else is sent to the planner.`
