package models

import (
	"context"

	"github.com/app-vitals/simple-agent/pkg/store"
	"github.com/app-vitals/simple-agent/pkg/tools"
)

// Usage is the token accounting from one model round-trip.
type Usage struct {
	PromptTokens   int
	ResponseTokens int
}

// Response is the fully aggregated reply to one request.
type Response struct {
	Message store.Message
	Usage   Usage
}

// ModelProvider represents a service that provides LLMs (e.g. Gemini).
type ModelProvider interface {
	// List returns the names of available models.
	List(ctx context.Context) ([]string, error)

	// Stream sends the conversation to the model and returns a stream. The
	// first message is treated as the system prompt when its role is system.
	Stream(ctx context.Context, modelName string, messages []store.Message, decls []tools.Declaration) (ModelStream, error)
}

// ModelStream abstracts the stream of responses from the model.
type ModelStream interface {
	// FullMessage blocks until the full message is available.
	FullMessage() (Response, error)
	Close() error
}
