// Package session runs the agent loop for one conversation: the model
// proposes tool calls, the toolbox applies them, and the results go back to
// the model until it stops calling tools.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mavplan/internal/config"
	"mavplan/internal/executor"
	"mavplan/internal/logger"
	"mavplan/internal/metrics"
	"mavplan/internal/mission"
	"mavplan/internal/planner"
	"mavplan/internal/tools"
	"mavplan/internal/units"
)

const defaultMaxRounds = 4

var ErrEmptyInput = errors.New("user input is required")

type Session struct {
	ID string

	// MaxRounds bounds model round trips per request.
	MaxRounds int
	// Confirm, when set, is asked before plans that delete or reorder items.
	Confirm executor.ConfirmFunc

	mu      sync.Mutex
	cfg     config.Config
	gen     planner.Generator
	mgr     *mission.Manager
	tb      *tools.Toolbox
	history []planner.ConversationTurn
	tracer  trace.Tracer
}

func New(cfg config.Config, gen planner.Generator, mode mission.Mode) *Session {
	mgr := mission.NewManager(cfg.Agent, mode)
	return &Session{
		ID:        uuid.New().String()[:8],
		MaxRounds: defaultMaxRounds,
		cfg:       cfg,
		gen:       gen,
		mgr:       mgr,
		tb:        tools.New(mgr),
		tracer:    otel.Tracer("mavplan/session"),
	}
}

func (s *Session) Mode() mission.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mgr.Mode()
}

// SetMode switches modes. Leaving mission mode drops the conversation.
func (s *Session) SetMode(mode mission.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode == s.mgr.Mode() {
		return
	}
	s.mgr.SetMode(mode)
	s.mgr.ClearMission()
	s.history = nil
}

// Mission returns a copy of the live mission, or nil.
func (s *Session) Mission() *mission.Mission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mgr.Mission().Clone()
}

func (s *Session) History() []planner.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]planner.ConversationTurn(nil), s.history...)
}

// Reset clears the mission and the conversation.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mgr.ClearMission()
	s.history = nil
}

// Turn handles one user request. Mission mode keeps the mission and the
// conversation between turns; command mode starts from an empty mission and
// clears it when the turn ends.
func (s *Session) Turn(ctx context.Context, input string) (*TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mode := s.mgr.Mode()
	ctx, span := s.tracer.Start(ctx, "Session.Turn", trace.WithAttributes(
		attribute.String("session.id", s.ID),
		attribute.String("session.mode", string(mode)),
	))
	defer span.End()

	if mode == mission.ModeCommand {
		s.mgr.CreateMission()
		defer s.mgr.ClearMission()
	}

	res, err := s.runTurn(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	span.SetAttributes(attribute.Int("mission.items", res.Mission.Len()))
	return res, nil
}

// runTurn is the agent loop. The caller holds s.mu.
func (s *Session) runTurn(ctx context.Context, input string) (*TurnResult, error) {
	mode := s.mgr.Mode()
	res := &TurnResult{RequestID: uuid.New().String()[:8], Mode: mode, Input: input}
	rm := &metrics.RequestMetrics{RequestID: res.RequestID, Mode: string(mode), Start: time.Now()}
	res.Metrics = rm
	defer func() {
		rm.End = time.Now()
		rm.Finalize()
	}()

	input = strings.TrimSpace(input)
	if input == "" {
		return s.fail(res, ErrEmptyInput)
	}
	if !s.mgr.HasMission() {
		s.mgr.CreateMission()
	}

	var history []planner.ConversationTurn
	if mode == mission.ModeMission {
		history = s.history
	}

	reply := ""
	for round := 1; round <= s.maxRounds(); round++ {
		prompt := planner.BuildTurnPrompt(planner.TurnInput{
			Mode:         mode,
			Rules:        s.cfg.Agent,
			History:      history,
			UserInput:    input,
			State:        s.mgr.StateSummary(),
			Observations: res.Observations,
		})

		llmStart := time.Now()
		raw, err := s.gen.GenerateJSON(ctx, prompt, s.cfg.Model.Name, planner.PlanSchema(mode))
		llmMs := time.Since(llmStart).Milliseconds()
		if err != nil {
			return s.fail(res, fmt.Errorf("failed to generate plan from LLM: %w", err))
		}

		plan, err := planner.ParsePlan(raw, mode)
		if err != nil {
			// The model sees its own mistake next round.
			logger.Log.Printf("[Session] %s round %d: %v", s.ID, round, err)
			res.Observations = append(res.Observations, planner.Observation{
				CallID: fmt.Sprintf("round-%d", round),
				Tool:   "plan",
				Result: "Error: " + err.Error(),
				Failed: true,
			})
			rm.Rounds = append(rm.Rounds, metrics.RoundMetrics{Round: round, LLMMs: llmMs})
			continue
		}
		if plan.Reply != "" {
			reply = plan.Reply
		}

		roundMetrics, obs, err := executor.ExecutePlan(ctx, s.tb, plan, round, s.Confirm)
		roundMetrics.LLMMs = llmMs
		rm.Rounds = append(rm.Rounds, *roundMetrics)
		res.Observations = append(res.Observations, obs...)
		if errors.Is(err, executor.ErrDeclined) {
			reply = "Cancelled. The mission was not changed."
			break
		}
		if err != nil {
			return s.fail(res, err)
		}
		if len(plan.Calls) == 0 {
			break
		}
	}

	if reply == "" {
		reply = summarizeObservations(res.Observations)
	}
	res.Output = reply
	res.Success = true
	rm.Succeeded = true
	res.Mission = s.mgr.Mission().Clone()
	res.Validation = s.finalCheck()

	if mode == mission.ModeMission {
		s.history = append(s.history, planner.ConversationTurn{
			UserInput:    input,
			Reply:        reply,
			Observations: res.Observations,
		})
	}
	logger.Log.Printf("[Session] %s %s request %s: %d rounds, %d calls", s.ID, mode, res.RequestID, len(rm.Rounds), rm.CallCount())
	return res, nil
}

func (s *Session) fail(res *TurnResult, err error) (*TurnResult, error) {
	res.Success = false
	res.Error = err.Error()
	if res.Mode == mission.ModeCommand {
		res.Output = fmt.Sprintf("Command execution failed: %s", err)
	} else {
		res.Output = fmt.Sprintf("Mission creation failed: %s", err)
	}
	res.Mission = s.mgr.Mission().Clone()
	logger.Log.Printf("[Session] %s request %s failed: %v", s.ID, res.RequestID, err)
	return res, err
}

// finalCheck validates a copy of the mission, so auto-fixes are reported
// without being applied.
func (s *Session) finalCheck() Validation {
	m := s.mgr.Mission().Clone()
	return toValidation(mission.Validate(m, s.mgr.Mode(), s.cfg.Agent, mission.ValidateOptions{
		Home:  s.mgr.Home(),
		Final: true,
	}))
}

func (s *Session) maxRounds() int {
	if s.MaxRounds <= 0 {
		return defaultMaxRounds
	}
	return s.MaxRounds
}

func summarizeObservations(obs []planner.Observation) string {
	if len(obs) == 0 {
		return "No changes made."
	}
	lines := make([]string, 0, len(obs))
	for _, o := range obs {
		lines = append(lines, firstLine(o.Result))
	}
	return strings.Join(lines, "\n")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// MissionSummary describes the live mission.
func (s *Session) MissionSummary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return summarize(s.mgr.Mission(), s.mgr.Mode(), s.cfg.Agent, s.mgr.Home())
}

func summarize(m *mission.Mission, mode mission.Mode, rules config.Agent, home *units.LatLon) Summary {
	if m == nil {
		return Summary{Errors: []string{"No active mission"}, CommandCounts: map[string]int{}}
	}
	res := mission.Validate(m.Clone(), mode, rules, mission.ValidateOptions{Home: home, Final: true})
	out := Summary{
		TotalItems:    m.Len(),
		Valid:         res.Valid,
		Errors:        append([]string{}, res.Errors...),
		CommandCounts: map[string]int{},
	}
	for kind, n := range mission.Summarize(m).ByType {
		out.CommandCounts[titleCase(kind)] = n
	}
	created, modified := m.CreatedAt, m.ModifiedAt
	out.CreatedAt, out.ModifiedAt = &created, &modified
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Check runs the final validation on a copy of m and summarizes it.
func Check(m *mission.Mission, mode mission.Mode, rules config.Agent, home *units.LatLon) (Validation, Summary) {
	res := mission.Validate(m.Clone(), mode, rules, mission.ValidateOptions{Home: home, Final: true})
	return toValidation(res), summarize(m, mode, rules, home)
}
