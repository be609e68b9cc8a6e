package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	appctx "github.com/app-vitals/simple-agent/pkg/context"
	"github.com/app-vitals/simple-agent/pkg/models"
	"github.com/app-vitals/simple-agent/pkg/store"
	"github.com/app-vitals/simple-agent/pkg/tools"
)

var (
	// ErrTurnLimit means the model kept requesting tools past the
	// configured iteration cap.
	ErrTurnLimit = errors.New("turn limit exceeded")

	// ErrTurnCancelled means the user aborted the turn at a confirmation
	// point. History up to the abort is preserved.
	ErrTurnCancelled = errors.New("turn cancelled")
)

// Options configures an Agent.
type Options struct {
	Messages store.Log
	Registry *tools.Registry
	Provider models.ModelProvider
	Gate     *Gate

	// Model is the provider model name.
	Model string

	// ContextDir is the directory holding context files, re-read from disk
	// on every prompt build.
	ContextDir string

	// MaxTurns caps model round-trips within a single turn.
	MaxTurns int

	// RequestTimeout bounds each model round-trip.
	RequestTimeout time.Duration
}

// Agent drives the conversation: it appends user input, sends the bounded
// history to the model, resolves requested tool calls through the gate, and
// loops until the model produces a final answer.
type Agent struct {
	messages store.Log
	registry *tools.Registry
	provider models.ModelProvider
	gate     *Gate

	model          string
	contextDir     string
	maxTurns       int
	requestTimeout time.Duration

	// usage is written by the turn goroutine and read by the UI goroutine,
	// so access goes through usageMu.
	usageMu sync.Mutex
	usage   models.Usage
}

func New(opts Options) *Agent {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = 25
	}
	return &Agent{
		messages:       opts.Messages,
		registry:       opts.Registry,
		provider:       opts.Provider,
		gate:           opts.Gate,
		model:          opts.Model,
		contextDir:     opts.ContextDir,
		maxTurns:       opts.MaxTurns,
		requestTimeout: opts.RequestTimeout,
	}
}

// Usage returns the accumulated token counts for the session. Safe to call
// while a turn is running.
func (a *Agent) Usage() models.Usage {
	a.usageMu.Lock()
	defer a.usageMu.Unlock()
	return a.usage
}

func (a *Agent) addUsage(u models.Usage) {
	a.usageMu.Lock()
	a.usage.PromptTokens += u.PromptTokens
	a.usage.ResponseTokens += u.ResponseTokens
	a.usageMu.Unlock()
}

// Messages exposes the underlying conversation log.
func (a *Agent) Messages() store.Log { return a.messages }

// RunTurn processes one user input and returns the model's final answer.
// Transport failures abort the turn but leave the persisted history intact
// so the user can retry.
func (a *Agent) RunTurn(ctx context.Context, input string) (string, error) {
	if err := a.messages.Append(store.NewUserMessage(input)); err != nil {
		return "", fmt.Errorf("failed to persist user message: %w", err)
	}

	return a.loop(ctx, a.systemPrompt)
}

// systemPrompt builds the prompt for a normal turn. The context directory is
// re-read on every call so mid-session edits are visible immediately.
func (a *Agent) systemPrompt() string {
	bundle, err := appctx.Load(a.contextDir)
	if err != nil {
		slog.Warn("Failed to load context", "dir", a.contextDir, "error", err)
	}
	return appctx.SystemPrompt(time.Now(), bundle)
}

// loop is the shared turn loop. Each round rebuilds the system prompt, sends
// the full history plus tool declarations, and either returns the final
// answer or resolves the requested tool calls and goes again.
func (a *Agent) loop(ctx context.Context, systemFn func() string) (string, error) {
	for i := 0; i < a.maxTurns; i++ {
		resp, err := a.request(ctx, systemFn())
		if err != nil {
			return "", err
		}

		a.addUsage(resp.Usage)

		if err := a.messages.Append(resp.Message); err != nil {
			return "", fmt.Errorf("failed to persist assistant message: %w", err)
		}

		if !resp.Message.HasToolCalls() {
			return resp.Message.Content, nil
		}

		calls := resp.Message.ToolCalls
		for j, call := range calls {
			result, outcome := a.gate.Resolve(ctx, call)
			if err := a.messages.Append(result); err != nil {
				return "", fmt.Errorf("failed to persist tool result: %w", err)
			}
			if outcome == OutcomeAborted {
				// Deny the rest of the batch so every request has a
				// matching result, then end the turn.
				for _, rest := range calls[j+1:] {
					if err := a.messages.Append(store.NewToolDenial(rest)); err != nil {
						return "", fmt.Errorf("failed to persist tool result: %w", err)
					}
				}
				return "", ErrTurnCancelled
			}
		}
	}

	return "", ErrTurnLimit
}

// request performs one model round-trip and aggregates the streamed reply.
func (a *Agent) request(ctx context.Context, system string) (models.Response, error) {
	reqCtx := ctx
	if a.requestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, a.requestTimeout)
		defer cancel()
	}

	history := a.messages.Messages()
	msgs := make([]store.Message, 0, len(history)+1)
	msgs = append(msgs, store.NewSystemMessage(system))
	msgs = append(msgs, history...)

	stream, err := a.provider.Stream(reqCtx, a.model, msgs, a.registry.Declarations())
	if err != nil {
		return models.Response{}, fmt.Errorf("model request failed: %w", err)
	}
	defer stream.Close()

	resp, err := stream.FullMessage()
	if err != nil {
		return models.Response{}, fmt.Errorf("model response failed: %w", err)
	}
	return resp, nil
}
