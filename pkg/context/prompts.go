package context

import (
	"fmt"
	"strings"
	"time"

	"github.com/app-vitals/simple-agent/pkg/store"
)

const turnInstructions = `You are a helpful assistant with access to tools for reading and
modifying files, searching, and executing shell commands. Use tools when they
help you answer accurately. When a task needs several steps, call the tools in
order and use each result before deciding the next step. Answer the user
directly once you have what you need.`

// SystemPrompt builds the prompt for a normal turn: current date, tool-use
// instructions, and the context bundle. Called fresh on every model request.
func SystemPrompt(now time.Time, bundle Bundle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Today's date: %s\n\n", now.Format("2006-01-02"))
	b.WriteString(turnInstructions)
	if !bundle.Empty() {
		b.WriteString("\n\n")
		b.WriteString(bundle.Render())
	}
	return b.String()
}

const compressionInstructions = `You are compressing a conversation session into structured markdown context files.

## CRITICAL: Compression = Distillation, Not Elaboration

Your goal is to make context MORE CONCISE:
- One clear sentence over three paragraphs of explanation
- Essential facts only: remove redundancy and over-explanation
- Clean up existing verbose content and distill over-detailed sections
- Remove outdated or superseded information
- Context should SHRINK or stay the same size

Before adding information, check whether it already exists in another file and
cross-reference instead of duplicating.

## Context Files

Use these standard files:
- context/business.md - Clients, team, revenue, operations
- context/strategy.md - Positioning, market, strategic decisions
- context/goals.md - Hierarchical goals with temporal tracking
- context/decisions.md - Key decisions with context and reasoning

Create additional files only if needed for specific domains.

## Writing Style

- Be concise; prefer brevity over completeness
- Capture "why" not just "what"
- Include specific details (dates, numbers, names) without over-explaining
- Use checkboxes for trackable items
- Preserve uncertainty and open questions

## Process

1. Read existing context files using the read_files tool
2. Plan your updates across ALL files first
3. Update sections using the patch_file tool (the user confirms each change).
   Copy old_content EXACTLY from the file: whitespace, line breaks, and
   punctuation must match perfectly
4. Archive the session to context-archive/YYYY-MM-DD-topic.md using write_file
5. Tell the user compression is complete

Review the ENTIRE conversation, not just recent messages. One pass per file.

## User Instructions

%s`

// CompressionPrompt builds the system prompt for a compression turn.
func CompressionPrompt(now time.Time, instructions string) string {
	if instructions == "" {
		instructions = "No specific instructions provided."
	}
	return fmt.Sprintf("Today's date: %s\n\n", now.Format("2006-01-02")) +
		fmt.Sprintf(compressionInstructions, instructions)
}

// CompressionRequest builds the user message that kicks off a compression
// turn, embedding a readable rendering of the history to compress.
func CompressionRequest(history []store.Message) string {
	return fmt.Sprintf(`Please compress this conversation session into the context files.

Review the full conversation below and update the appropriate context files:

%s

Steps:
1. Read existing context files to understand current state
2. Update relevant sections using patch_file (I'll confirm each change)
3. Create new context files if needed
4. Archive this session to context-archive/ with a descriptive filename
5. Let me know when compression is complete

Start by reading the existing context files.`, formatConversation(history))
}

func formatConversation(msgs []store.Message) string {
	lines := []string{"# Conversation History", ""}

	for _, m := range msgs {
		switch m.Role {
		case store.RoleUser:
			lines = append(lines, "**User:** "+m.Content, "")
		case store.RoleAssistant:
			if m.HasToolCalls() {
				for _, tc := range m.ToolCalls {
					lines = append(lines, fmt.Sprintf("**Assistant:** [Called tool: %s]", tc.Name))
				}
				lines = append(lines, "")
			} else if m.Content != "" {
				lines = append(lines, "**Assistant:** "+m.Content, "")
			}
		case store.RoleTool:
			content := m.Content
			if len(content) > 200 {
				content = content[:200] + "..."
			}
			lines = append(lines, fmt.Sprintf("**Tool Result (%s):** %s", m.ToolName, content), "")
		}
	}

	return strings.Join(lines, "\n")
}
