package session

import (
	"context"
	"fmt"
	"reflect"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mavplan/internal/mission"
	"mavplan/internal/planner"
	"mavplan/internal/units"
)

// Plan runs one request against the mission carried by req and leaves the
// session exactly as it found it, whether the request succeeds, fails or
// panics. The final validation runs with auto-add before the result mission
// and its deltas are taken.
func (s *Session) Plan(ctx context.Context, req PlanRequest) (resp *PlanResponse, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mode := req.Mode
	if mode == "" {
		mode = mission.ModeMission
	}
	if _, ok := mission.ParseMode(string(mode)); !ok {
		return &PlanResponse{Mode: mode, Error: "invalid mode"}, fmt.Errorf("invalid mode: %s", mode)
	}
	ctx, span := s.tracer.Start(ctx, "Session.Plan", trace.WithAttributes(
		attribute.String("session.id", s.ID),
		attribute.String("session.mode", string(mode)),
	))
	defer span.End()

	saved := s.mgr.State()
	savedHistory := s.history
	defer func() {
		s.mgr.Restore(saved)
		s.history = savedHistory
	}()

	s.mgr.SetMode(mode)
	s.mgr.SetHome(req.Home)
	if req.MissionState != nil {
		s.mgr.SetMission(req.MissionState.Clone())
	} else {
		s.mgr.CreateMission()
	}
	s.history = nil
	before := s.mgr.Mission().Clone()

	resp = &PlanResponse{Mode: mode}
	res, err := s.runTurn(ctx, req.UserInput)
	if res != nil {
		resp.Metrics = res.Metrics
		resp.Output = res.Output
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		resp.Error = err.Error()
		return resp, fmt.Errorf("planning request failed: %w", err)
	}

	final := s.mgr.ValidateMission(req.Home)
	after := s.mgr.Mission().Clone()

	resp.Success = true
	resp.Mission = after
	resp.Validation = toValidation(final)
	resp.Summary = summarize(after, mode, s.cfg.Agent, req.Home)
	resp.Added, resp.Modified, resp.Deleted = diffBySeq(before, after)
	span.SetAttributes(
		attribute.Int("mission.items", after.Len()),
		attribute.Int("plan.added", len(resp.Added)),
		attribute.Int("plan.modified", len(resp.Modified)),
		attribute.Int("plan.deleted", len(resp.Deleted)),
	)
	return resp, nil
}

// diffBySeq compares two missions position by position: an item past the
// old length is added, one past the new length is deleted, and any other
// difference at the same seq is a modification.
func diffBySeq(before, after *mission.Mission) (added, modified, deleted []mission.Item) {
	added, modified, deleted = []mission.Item{}, []mission.Item{}, []mission.Item{}
	var old, cur []mission.Item
	if before != nil {
		old = before.Items
	}
	if after != nil {
		cur = after.Items
	}
	for i, it := range cur {
		switch {
		case i >= len(old):
			added = append(added, it)
		case !reflect.DeepEqual(old[i], it):
			modified = append(modified, it)
		}
	}
	for i := len(cur); i < len(old); i++ {
		deleted = append(deleted, old[i])
	}
	return added, modified, deleted
}

// Snapshot is the persistent part of a session.
type Snapshot struct {
	ID      string
	Mode    mission.Mode
	Mission *mission.Mission
	History []planner.ConversationTurn
	Home    *units.LatLon
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:      s.ID,
		Mode:    s.mgr.Mode(),
		Mission: s.mgr.Mission().Clone(),
		History: append([]planner.ConversationTurn(nil), s.history...),
		Home:    s.mgr.Home(),
	}
}

// Load replaces the session's state with a stored snapshot.
func (s *Session) Load(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.ID != "" {
		s.ID = snap.ID
	}
	mode := snap.Mode
	if mode == "" {
		mode = mission.ModeMission
	}
	s.mgr.SetMode(mode)
	s.mgr.SetHome(snap.Home)
	s.mgr.SetMission(snap.Mission.Clone())
	s.history = append([]planner.ConversationTurn(nil), snap.History...)
}

// SetHome sets the ground station position used as a fallback origin.
func (s *Session) SetHome(home *units.LatLon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mgr.SetHome(home)
}
