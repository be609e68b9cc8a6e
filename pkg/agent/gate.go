package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/app-vitals/simple-agent/pkg/store"
	"github.com/app-vitals/simple-agent/pkg/tools"
)

// Decision is the user's answer to a confirmation request.
type Decision int

const (
	// Approve runs the tool call.
	Approve Decision = iota
	// Deny skips the call and records a denial result.
	Deny
	// Abort denies this call and every remaining call in the batch, ending
	// the turn early.
	Abort
)

// Confirmer asks the user to approve a tool call. Implementations block
// until the user answers or the context is cancelled.
type Confirmer interface {
	Confirm(ctx context.Context, call store.ToolCall) (Decision, error)
}

// Outcome classifies how a tool call was resolved.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeFailed
	OutcomeDenied
	OutcomeAborted
)

// Gate resolves a requested tool call into a tool-result message: it pauses
// for confirmation when the descriptor demands it, executes the callable, and
// normalizes success, failure, and denial into messages fed back to the
// model. Only transport failures escape the gate; tool failures do not.
type Gate struct {
	registry  *tools.Registry
	confirmer Confirmer
	timeout   time.Duration
}

func NewGate(registry *tools.Registry, confirmer Confirmer, timeout time.Duration) *Gate {
	return &Gate{
		registry:  registry,
		confirmer: confirmer,
		timeout:   timeout,
	}
}

// Resolve drives one call through the gate. The returned message is always
// appendable: denials and execution failures come back as tool results, never
// as errors.
func (g *Gate) Resolve(ctx context.Context, call store.ToolCall) (store.Message, Outcome) {
	if g.registry.NeedsConfirmation(call.Name, call.Arguments) {
		decision, err := g.confirmer.Confirm(ctx, call)
		if err != nil {
			slog.Warn("Confirmation failed, treating as abort", "tool", call.Name, "error", err)
			return store.NewToolDenial(call), OutcomeAborted
		}
		switch decision {
		case Deny:
			slog.Info("Tool call denied", "tool", call.Name)
			return store.NewToolDenial(call), OutcomeDenied
		case Abort:
			slog.Info("Turn aborted at confirmation", "tool", call.Name)
			return store.NewToolDenial(call), OutcomeAborted
		}
	}

	desc, err := g.registry.Get(call.Name)
	if err != nil {
		if errors.Is(err, tools.ErrUnknownTool) {
			return store.NewToolError(call, fmt.Sprintf("Error: Tool '%s' not found", call.Name)), OutcomeFailed
		}
		return store.NewToolError(call, err.Error()), OutcomeFailed
	}

	execCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	slog.Info("Executing tool", "tool", call.Name)
	result, err := desc.Execute(execCtx, call.Arguments)
	if err != nil {
		slog.Warn("Tool execution failed", "tool", call.Name, "error", err)
		return store.NewToolError(call, fmt.Sprintf("Error executing tool '%s': %s", call.Name, err)), OutcomeFailed
	}

	return store.NewToolResult(call, result), OutcomeSucceeded
}

// AutoApprove is a Confirmer that approves everything. Used when running
// without an interactive surface.
type AutoApprove struct{}

func (AutoApprove) Confirm(ctx context.Context, call store.ToolCall) (Decision, error) {
	return Approve, nil
}
