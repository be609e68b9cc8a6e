package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/app-vitals/simple-agent/pkg/models"
	"github.com/app-vitals/simple-agent/pkg/store"
	"github.com/app-vitals/simple-agent/pkg/tools"
)

const (
	// LevelTrace is a custom log level for detailed HTTP traffic.
	LevelTrace = slog.Level(-8)
)

// GeminiModel implements models.ModelProvider using the Google Gemini API.
type GeminiModel struct {
	client *genai.Client
}

// New creates a new GeminiModel.
func New(ctx context.Context, apiKey string) (*GeminiModel, error) {
	httpClient := &http.Client{
		Transport: &loggingTransport{
			base:   http.DefaultTransport,
			apiKey: apiKey,
		},
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey), option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiModel{client: client}, nil
}

type loggingTransport struct {
	base   http.RoundTripper
	apiKey string
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// A custom http.Client bypasses the library's automatic API key
	// injection, so add it here if missing.
	if t.apiKey != "" && req.Header.Get("x-goog-api-key") == "" && req.URL.Query().Get("key") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("x-goog-api-key", t.apiKey)
	}

	if !slog.Default().Enabled(req.Context(), LevelTrace) {
		return t.base.RoundTrip(req)
	}

	reqDump, err := httputil.DumpRequestOut(req, true)
	if err != nil {
		slog.Debug("Failed to dump Gemini request", "error", err)
	} else {
		slog.Debug("Gemini REST Request", "url", req.URL.String(), "dump", string(reqDump))
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	// For streaming, don't dump the body to avoid consuming it.
	isStream := strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") ||
		strings.Contains(req.URL.Query().Get("alt"), "sse")

	respDump, err := httputil.DumpResponse(resp, !isStream)
	if err != nil {
		slog.Debug("Failed to dump Gemini response", "error", err)
	} else {
		slog.Debug("Gemini REST Response", "isStream", isStream, "dump", string(respDump))
	}

	return resp, nil
}

// Close releases resources.
func (m *GeminiModel) Close() {
	m.client.Close()
}

// List returns available models.
func (m *GeminiModel) List(ctx context.Context) ([]string, error) {
	iter := m.client.ListModels(ctx)
	var names []string
	for {
		model, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		slog.Debug("Found Gemini model", "name", model.Name)
		names = append(names, model.Name)
	}
	return names, nil
}

// Stream sends the conversation to the model and returns a stream. A leading
// system message becomes the system instruction; the rest is chat history.
func (m *GeminiModel) Stream(ctx context.Context, modelName string, messages []store.Message, decls []tools.Declaration) (models.ModelStream, error) {
	slog.Debug("Gemini.Stream: Request Parameters", "model", modelName, "messageCount", len(messages), "toolCount", len(decls))
	gm := m.client.GenerativeModel(modelName)

	if len(decls) > 0 {
		fds := make([]*genai.FunctionDeclaration, 0, len(decls))
		for _, d := range decls {
			fds = append(fds, &genai.FunctionDeclaration{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  toGenaiSchema(d.Schema),
			})
		}
		gm.Tools = []*genai.Tool{{FunctionDeclarations: fds}}
	}

	var history []store.Message
	for _, msg := range messages {
		if msg.Role == store.RoleSystem {
			gm.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(msg.Content)},
			}
			continue
		}
		history = append(history, msg)
	}

	if len(history) == 0 {
		return nil, fmt.Errorf("no conversation messages to send")
	}

	var genaiHistory []*genai.Content
	for _, msg := range history {
		c := toGenaiContent(msg)
		if len(c.Parts) > 0 {
			genaiHistory = append(genaiHistory, c)
		}
	}

	if len(genaiHistory) == 0 {
		return nil, fmt.Errorf("no conversation messages to send")
	}

	cs := gm.StartChat()
	if len(genaiHistory) > 1 {
		cs.History = genaiHistory[:len(genaiHistory)-1]
	}

	last := genaiHistory[len(genaiHistory)-1]
	iter := cs.SendMessageStream(ctx, last.Parts...)
	return &geminiStream{iter: iter}, nil
}

func toGenaiContent(msg store.Message) *genai.Content {
	var parts []genai.Part
	role := "user"

	switch msg.Role {
	case store.RoleAssistant:
		role = "model"
		if msg.Content != "" {
			parts = append(parts, genai.Text(msg.Content))
		}
		for _, tc := range msg.ToolCalls {
			parts = append(parts, genai.FunctionCall{
				Name: tc.Name,
				Args: tc.Arguments,
			})
		}
	case store.RoleTool:
		// Gemini expects function responses on the user side.
		parts = append(parts, genai.FunctionResponse{
			Name: msg.ToolName,
			Response: map[string]any{
				"result": msg.Content,
			},
		})
	default:
		if msg.Content != "" {
			parts = append(parts, genai.Text(msg.Content))
		}
	}

	return &genai.Content{Role: role, Parts: parts}
}

// toGenaiSchema converts a JSON-schema style map to the genai schema type.
// Unrecognized fields are dropped.
func toGenaiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}

	out := &genai.Schema{}
	if t, ok := schema["type"].(string); ok {
		out.Type = genaiType(t)
	}
	if d, ok := schema["description"].(string); ok {
		out.Description = d
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]any); ok {
				out.Properties[name] = toGenaiSchema(sub)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = toGenaiSchema(items)
	}
	switch req := schema["required"].(type) {
	case []string:
		out.Required = req
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}
	return out
}

func genaiType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeUnspecified
	}
}

// geminiStream wrapper
type geminiStream struct {
	iter *genai.GenerateContentResponseIterator
}

func (s *geminiStream) FullMessage() (models.Response, error) {
	var fullText strings.Builder
	var toolCalls []store.ToolCall
	var usage models.Usage

	slog.Debug("Aggregating Gemini response stream")

	for {
		resp, err := s.iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return models.Response{}, err
		}

		if resp.UsageMetadata != nil {
			usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
			usage.ResponseTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		}

		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				switch p := part.(type) {
				case genai.Text:
					fullText.WriteString(string(p))
				case genai.FunctionCall:
					toolCalls = append(toolCalls, store.ToolCall{
						ID:        "call-" + uuid.New().String(),
						Name:      p.Name,
						Arguments: p.Args,
					})
				}
			}
		}
	}

	return models.Response{
		Message: store.NewAssistantMessage(fullText.String(), toolCalls),
		Usage:   usage,
	}, nil
}

func (s *geminiStream) Close() error {
	return nil
}
