// Package tools applies named mission editing calls to a mission.Manager.
// Every call runs inside a transaction and answers with text for the agent.
package tools

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mavplan/internal/logger"
	"mavplan/internal/mission"
)

const (
	errorPrefix         = "Error: "
	planningErrorPrefix = "Planning Error: "
	noChangesPrefix     = "No position changes specified"
)

// Toolbox binds the tool registry to one Manager.
type Toolbox struct {
	mgr    *mission.Manager
	tracer trace.Tracer
}

func New(mgr *mission.Manager) *Toolbox {
	return &Toolbox{mgr: mgr, tracer: otel.Tracer("mavplan/tools")}
}

func (tb *Toolbox) Manager() *mission.Manager { return tb.mgr }

// Tools lists the tools offered in the manager's current mode.
func (tb *Toolbox) Tools() []Tool { return ForMode(tb.mgr.Mode()) }

// Apply runs one tool call. It always returns text: a confirmation with the
// updated mission summary, or a message starting with "Error:" or
// "Planning Error:".
func (tb *Toolbox) Apply(name string, params map[string]any) string {
	return tb.ApplyContext(context.Background(), name, params)
}

// ApplyContext is Apply with a parent context for tracing.
func (tb *Toolbox) ApplyContext(ctx context.Context, name string, params map[string]any) (out string) {
	_, span := tb.tracer.Start(ctx, "Toolbox.Apply",
		trace.WithAttributes(attribute.String("tool.name", name)))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			out = fmt.Sprintf("%sinternal failure in %s: %v", errorPrefix, name, rec)
		}
		span.SetAttributes(attribute.Bool("tool.success", !IsFailure(out)))
		logger.Log.Printf("[Tools] %s %v -> %s", name, params, firstLine(out))
	}()

	if params == nil {
		params = map[string]any{}
	}
	if err := ValidateCall(tb.mgr.Mode(), name, params); err != nil {
		return errorPrefix + err.Error()
	}
	t, _ := Lookup(name)
	return t.run(tb, params)
}

// IsFailure reports whether a tool result describes a rejected call.
func IsFailure(result string) bool {
	return strings.HasPrefix(result, errorPrefix) ||
		strings.HasPrefix(result, planningErrorPrefix) ||
		strings.HasPrefix(result, noChangesPrefix)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func errorf(format string, args ...any) string {
	return errorPrefix + fmt.Sprintf(format, args...)
}

// commit validates the edit. On failure the mission is already rolled back
// and the returned text is the full tool result. On success it returns the
// auto-fix notes to append to the confirmation.
func (tb *Toolbox) commit(txn *mission.Txn) (string, bool) {
	res, ok := txn.Commit()
	if !ok {
		return planningErrorPrefix + res.FirstMessage() + tb.mgr.StateSummary(), false
	}
	if len(res.Fixes) == 0 {
		return "", true
	}
	return ". " + strings.Join(res.Fixes, ". "), true
}

// checkSeq converts a 1-based item number to a seq.
func (tb *Toolbox) checkSeq(params map[string]any, key string) (int, string) {
	n, err := getInt(params, key)
	if err != nil {
		return 0, errorPrefix + err.Error()
	}
	if !tb.mgr.HasMission() {
		return 0, errorPrefix + "No active mission"
	}
	count := tb.mgr.Mission().Len()
	if n < 1 || n > count {
		return 0, errorf("Invalid sequence number %d. Mission has %d items (1 to %d)", n, count, count)
	}
	return n - 1, ""
}

// itemNumber finds where an added item ended up after auto-fixes.
func (tb *Toolbox) itemNumber(added mission.Item) int {
	items := tb.mgr.Mission().Items
	for i := len(items) - 1; i >= 0; i-- {
		a, b := items[i], added
		a.Seq, b.Seq = 0, 0
		if reflect.DeepEqual(a, b) {
			return i + 1
		}
	}
	return added.Seq + 1
}
