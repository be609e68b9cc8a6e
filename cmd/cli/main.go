// Command cli is the interactive terminal front end for simple-agent.
//
// Usage:
//
//	export GEMINI_API_KEY="your-api-key"
//	go run cmd/cli/main.go
//
// Commands:
//
//	/help - Show available commands
//	/compact [instructions] - Compress the conversation into context files
//	/clear - Redraw the conversation view
//	/clear-history - Delete the persisted conversation
//	/exit - Exit the program
//	<message> - Send a message to the agent
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/app-vitals/simple-agent/pkg/agent"
	"github.com/app-vitals/simple-agent/pkg/config"
	appctx "github.com/app-vitals/simple-agent/pkg/context"
	"github.com/app-vitals/simple-agent/pkg/models/gemini"
	"github.com/app-vitals/simple-agent/pkg/sandbox"
	"github.com/app-vitals/simple-agent/pkg/sandbox/docker"
	"github.com/app-vitals/simple-agent/pkg/store"
	"github.com/app-vitals/simple-agent/pkg/store/jsonl"
	"github.com/app-vitals/simple-agent/pkg/tools"
	"github.com/app-vitals/simple-agent/pkg/tools/mcp"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)

	senderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")).
			Bold(true)

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	confirmStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("3")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true).Padding(0, 1) // Red
)

type state int

const (
	stateChatting state = iota
	stateConfirming
	stateConfirmExit
)

type errMsg struct{ err error }
type storeUpdateMsg string

type turnDoneMsg struct {
	answer string
	err    error
}

type compressDoneMsg struct {
	result agent.CompressResult
	err    error
}

type confirmMsg struct {
	req confirmRequest
}

// confirmRequest carries a pending tool call from the agent goroutine to the
// TUI. The gate blocks until a decision lands on reply.
type confirmRequest struct {
	call  store.ToolCall
	reply chan agent.Decision
}

// chanConfirmer bridges the gate's blocking Confirm to the event-driven TUI.
type chanConfirmer struct {
	requests chan confirmRequest
}

func newChanConfirmer() *chanConfirmer {
	return &chanConfirmer{requests: make(chan confirmRequest)}
}

func (c *chanConfirmer) Confirm(ctx context.Context, call store.ToolCall) (agent.Decision, error) {
	req := confirmRequest{call: call, reply: make(chan agent.Decision, 1)}
	select {
	case c.requests <- req:
	case <-ctx.Done():
		return agent.Abort, ctx.Err()
	}
	select {
	case decision := <-req.reply:
		return decision, nil
	case <-ctx.Done():
		return agent.Abort, ctx.Err()
	}
}

type model struct {
	ctx       context.Context
	agent     *agent.Agent
	registry  *tools.Registry
	confirmer *chanConfirmer
	updates   <-chan string

	state   state
	busy    bool
	pending *confirmRequest
	width   int
	height  int
	err     error
	status  string

	viewport viewport.Model
	textarea textarea.Model
	renderer *glamour.TermRenderer
}

func initialModel(ctx context.Context, ag *agent.Agent, registry *tools.Registry, confirmer *chanConfirmer, updates <-chan string) model {
	ta := textarea.New()
	ta.Placeholder = "Send a message..."
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 0

	ta.SetWidth(80)
	ta.SetHeight(3)

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false

	vp := viewport.New(80, 20)
	vp.SetContent("Welcome! Type a message, or /help for commands.")

	// Use "light" style to avoid terminal queries that leak into input
	r, _ := glamour.NewTermRenderer(
		glamour.WithStandardStyle("light"),
		glamour.WithWordWrap(80),
	)

	return model{
		ctx:       ctx,
		agent:     ag,
		registry:  registry,
		confirmer: confirmer,
		updates:   updates,
		state:     stateChatting,
		viewport:  vp,
		textarea:  ta,
		renderer:  r,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.reloadMessages(),
		waitForUpdate(m.updates),
		waitForConfirm(m.confirmer.requests),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	var tiCmd, vpCmd tea.Cmd
	// Keys only reach the textarea while chatting, so y/n answers during
	// confirmation do not leak into the next message.
	switch msg.(type) {
	case tea.KeyMsg:
		if m.state == stateChatting && !m.busy {
			m.textarea, tiCmd = m.textarea.Update(msg)
			cmds = append(cmds, tiCmd)
		}
	default:
		m.textarea, tiCmd = m.textarea.Update(msg)
		cmds = append(cmds, tiCmd)
	}

	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, vpCmd)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.textarea.SetWidth(msg.Width)
		m.viewport.Height = msg.Height - m.textarea.Height() - 4 // Header + status + margin
		if m.viewport.Height < 0 {
			m.viewport.Height = 0
		}
		m.viewport.YPosition = 2

		// Recreate renderer with new width
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithStandardStyle("light"),
			glamour.WithWordWrap(m.width-4),
		)
		cmds = append(cmds, m.reloadMessages())

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.state == stateConfirming && m.pending != nil {
				m.pending.reply <- agent.Abort
				m.pending = nil
				m.state = stateChatting
				return m, tea.Batch(append(cmds, waitForConfirm(m.confirmer.requests))...)
			}
			m.state = stateConfirmExit
			return m, nil
		case tea.KeyEsc:
			if m.state == stateConfirming && m.pending != nil {
				m.pending.reply <- agent.Abort
				m.pending = nil
				m.state = stateChatting
				return m, tea.Batch(append(cmds, waitForConfirm(m.confirmer.requests))...)
			}
			if m.state == stateConfirmExit {
				m.state = stateChatting
				return m, nil
			}
			m.state = stateConfirmExit
			return m, nil
		case tea.KeyEnter:
			if m.state == stateChatting && !m.busy {
				m.err = nil
				return m.sendMessage(cmds)
			}
		default:
			if m.state == stateConfirming && m.pending != nil {
				switch msg.String() {
				case "y", "Y":
					m.pending.reply <- agent.Approve
				case "n", "N":
					m.pending.reply <- agent.Deny
				default:
					return m, tea.Batch(cmds...)
				}
				m.pending = nil
				m.state = stateChatting
				return m, tea.Batch(append(cmds, waitForConfirm(m.confirmer.requests))...)
			}
			if m.state == stateConfirmExit {
				switch msg.String() {
				case "y", "Y":
					return m, tea.Quit
				case "n", "N":
					m.state = stateChatting
					return m, nil
				}
			}
		}

	case storeUpdateMsg:
		slog.Debug("TUI received store update", "log", string(msg))
		cmds = append(cmds, m.reloadMessages(), waitForUpdate(m.updates))

	case confirmMsg:
		m.pending = &msg.req
		m.state = stateConfirming

	case turnDoneMsg:
		m.busy = false
		m.status = ""
		if msg.err != nil {
			m.err = msg.err
		}
		cmds = append(cmds, m.reloadMessages())

	case compressDoneMsg:
		m.busy = false
		m.status = ""
		if msg.err != nil {
			m.err = msg.err
		} else if msg.result.ArchivePath != "" {
			m.status = "Conversation compressed. Archive: " + msg.result.ArchivePath
		} else {
			m.status = "Conversation compressed."
		}
		cmds = append(cmds, m.reloadMessages())

	case updateViewMsg:
		m.viewport.SetContent(msg.content)
		m.viewport.GotoBottom()

	case errMsg:
		m.err = msg.err
	}

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	var errorView string
	if m.err != nil {
		errorView = errorStyle.Width(m.width).Render(fmt.Sprintf("\nError: %v", m.err))
	}

	if m.state == stateConfirmExit {
		return lipgloss.JoinVertical(
			lipgloss.Left,
			titleStyle.Render("Confirm Exit"),
			"",
			"Exit? (y/n)",
			errorView,
		)
	}

	if m.state == stateConfirming && m.pending != nil {
		call := m.pending.call
		prompt := fmt.Sprintf("Run %s(%s)?", call.Name, tools.FormatArgs(call.Arguments))
		return lipgloss.JoinVertical(
			lipgloss.Left,
			titleStyle.Render("Tool Confirmation"),
			"",
			m.viewport.View(),
			"",
			confirmStyle.Render(prompt),
			"y = run, n = skip, esc = cancel turn",
			errorView,
		)
	}

	status := m.statusLine()

	return lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Render("simple-agent"),
		"",
		m.viewport.View(),
		"",
		status,
		errorView,
		m.textarea.View(),
	)
}

func (m model) statusLine() string {
	usage := m.agent.Usage()
	line := fmt.Sprintf("tokens: %d in / %d out", usage.PromptTokens, usage.ResponseTokens)
	if m.busy {
		line = "Thinking... | " + line
	}
	if m.status != "" {
		line = m.status + " | " + line
	}
	return statusStyle.Render(line)
}

// Actions

func (m model) sendMessage(cmds []tea.Cmd) (model, tea.Cmd) {
	v := strings.TrimSpace(m.textarea.Value())
	if v == "" {
		return m, tea.Batch(cmds...)
	}
	m.textarea.Reset()
	m.status = ""

	switch {
	case v == "/exit":
		m.state = stateConfirmExit
		return m, tea.Batch(cmds...)

	case v == "/help":
		m.status = "/help /compact [instructions] /clear /clear-history /exit"
		return m, tea.Batch(cmds...)

	case v == "/clear":
		return m, tea.Batch(append(cmds, m.reloadMessages())...)

	case v == "/clear-history":
		return m, tea.Batch(append(cmds, func() tea.Msg {
			if err := m.agent.Messages().Clear(); err != nil {
				return errMsg{err}
			}
			return storeUpdateMsg("")
		})...)

	case v == "/compact" || strings.HasPrefix(v, "/compact "):
		instructions := strings.TrimSpace(strings.TrimPrefix(v, "/compact"))
		m.busy = true
		m.status = "Compressing conversation..."
		return m, tea.Batch(append(cmds, func() tea.Msg {
			result, err := m.agent.Compress(m.ctx, instructions)
			return compressDoneMsg{result: result, err: err}
		})...)

	case strings.HasPrefix(v, "/"):
		m.err = fmt.Errorf("unknown command %q", strings.Fields(v)[0])
		return m, tea.Batch(cmds...)
	}

	m.busy = true
	return m, tea.Batch(append(cmds, func() tea.Msg {
		answer, err := m.agent.RunTurn(m.ctx, v)
		return turnDoneMsg{answer: answer, err: err}
	})...)
}

type updateViewMsg struct {
	content string
}

func (m model) reloadMessages() tea.Cmd {
	return func() tea.Msg {
		var sb strings.Builder
		for _, msg := range m.agent.Messages().Messages() {
			switch msg.Role {
			case store.RoleUser:
				sb.WriteString(userStyle.Render("User:"))
				sb.WriteString("\n")
				sb.WriteString(msg.Content)
				sb.WriteString("\n\n")

			case store.RoleAssistant:
				if msg.Content != "" {
					sb.WriteString(senderStyle.Render("AI:"))
					sb.WriteString("\n")
					sb.WriteString(m.renderMarkdown(msg.Content))
					sb.WriteString("\n")
				}
				for _, call := range msg.ToolCalls {
					sb.WriteString(toolStyle.Render(fmt.Sprintf("→ %s(%s)", call.Name, tools.FormatArgs(call.Arguments))))
					sb.WriteString("\n")
				}
				if len(msg.ToolCalls) > 0 {
					sb.WriteString("\n")
				}

			case store.RoleTool:
				sb.WriteString(toolStyle.Render(m.renderToolResult(msg)))
				sb.WriteString("\n\n")
			}
		}

		return updateViewMsg{content: sb.String()}
	}
}

func (m model) renderMarkdown(raw string) string {
	if m.renderer == nil {
		return raw
	}
	rendered, err := m.renderer.Render(raw)
	if err != nil {
		return raw
	}
	return rendered
}

func (m model) renderToolResult(msg store.Message) string {
	if msg.Denied {
		return fmt.Sprintf("✗ %s denied", msg.ToolName)
	}
	if msg.IsError {
		return fmt.Sprintf("✗ %s", msg.Content)
	}
	display := msg.Content
	if d, err := m.registry.Get(msg.ToolName); err == nil && d.FormatResult != nil {
		display = d.FormatResult(msg.Content)
	}
	if len(display) > 500 {
		display = display[:500] + "..."
	}
	return fmt.Sprintf("✓ %s\n%s", msg.ToolName, display)
}

func waitForConfirm(ch <-chan confirmRequest) tea.Cmd {
	return func() tea.Msg {
		req, ok := <-ch
		if !ok {
			return nil
		}
		return confirmMsg{req: req}
	}
}

func waitForUpdate(sub <-chan string) tea.Cmd {
	return func() tea.Msg {
		id, ok := <-sub
		if !ok {
			return nil
		}
		return storeUpdateMsg(id)
	}
}

// --- Main ---

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stateDir, err := config.Dir()
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	cfg, err := config.Load(filepath.Join(stateDir, "config.yaml"))
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	// 1. Setup Logging
	logPath := cfg.Logging.File
	if logPath == "" {
		logPath = filepath.Join(stateDir, "agent.log")
	}
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
	defer f.Close()

	logLevel := slog.LevelInfo
	switch strings.ToUpper(cfg.Logging.Level) {
	case "TRACE":
		logLevel = gemini.LevelTrace
	case "DEBUG":
		logLevel = slog.LevelDebug
	case "INFO":
		logLevel = slog.LevelInfo
	case "WARN":
		logLevel = slog.LevelWarn
	case "ERROR":
		logLevel = slog.LevelError
	}
	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
	slog.Info("Logging initialized", "level", logLevel)

	// 2. Initialize Model
	if cfg.LLM.APIKey == "" {
		fmt.Println("Error: GEMINI_API_KEY environment variable not set.")
		os.Exit(1)
	}
	geminiModel, err := gemini.New(ctx, cfg.LLM.APIKey)
	if err != nil {
		slog.Error("Failed to initialize Gemini model", "error", err)
		os.Exit(1)
	}
	defer geminiModel.Close()

	// 3. Open the conversation log for this working directory
	workdir, err := os.Getwd()
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
	manager := jsonl.NewManager(filepath.Join(stateDir, "history"), cfg.MaxMessages)
	messages, err := manager.Open(workdir)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
	defer messages.Close()

	// 4. Build the tool registry
	registry := tools.NewRegistry()
	tools.RegisterFileTools(registry)

	var runner sandbox.Runner
	if cfg.Sandbox.Mode == "docker" {
		runner, err = docker.New(cfg.Sandbox.Image, workdir)
		if err != nil {
			slog.Error("Failed to initialize docker sandbox", "error", err)
			os.Exit(1)
		}
	} else {
		runner = &sandbox.Local{Workdir: workdir}
	}
	defer runner.Close()
	tools.RegisterExecTool(registry, runner)

	if !cfg.MCP.Disabled {
		mcpManager := mcp.Discover(ctx, registry, cfg.MCP.Servers, stateDir)
		defer mcpManager.Close()
	}

	// 5. Wire the agent
	confirmer := newChanConfirmer()
	gate := agent.NewGate(registry, confirmer, cfg.RequestTimeout())
	ag := agent.New(agent.Options{
		Messages:       messages,
		Registry:       registry,
		Provider:       geminiModel,
		Gate:           gate,
		Model:          cfg.LLM.Model,
		ContextDir:     filepath.Join(workdir, appctx.DefaultDirName),
		MaxTurns:       cfg.MaxTurns,
		RequestTimeout: cfg.RequestTimeout(),
	})

	// 6. Start Program
	p := tea.NewProgram(initialModel(ctx, ag, registry, confirmer, manager.Subscribe()))
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
