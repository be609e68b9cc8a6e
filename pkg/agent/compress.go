package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	appctx "github.com/app-vitals/simple-agent/pkg/context"
	"github.com/app-vitals/simple-agent/pkg/store"
)

// CompressResult reports a completed compression turn.
type CompressResult struct {
	// Answer is the model's closing message.
	Answer string
	// ArchivePath is the session archive written during compression, if the
	// model wrote one.
	ArchivePath string
}

// Compress runs a compression turn: the model is instructed to distill the
// whole conversation into the context files and archive the session, driven
// through the same loop and gate as a normal turn. The store is truncated
// only after the turn succeeds; a failed or cancelled compression leaves the
// conversation untouched.
func (a *Agent) Compress(ctx context.Context, instructions string) (CompressResult, error) {
	history := a.messages.Messages()
	if len(history) == 0 {
		return CompressResult{}, fmt.Errorf("nothing to compress")
	}

	request := appctx.CompressionRequest(history)
	if err := a.messages.Append(store.NewUserMessage(request)); err != nil {
		return CompressResult{}, fmt.Errorf("failed to persist compression request: %w", err)
	}

	systemFn := func() string {
		return appctx.CompressionPrompt(time.Now(), instructions)
	}

	answer, err := a.loop(ctx, systemFn)
	if err != nil {
		return CompressResult{}, err
	}

	archive := findArchivePath(a.messages.Messages())

	if err := a.messages.Clear(); err != nil {
		return CompressResult{}, fmt.Errorf("failed to truncate history: %w", err)
	}

	return CompressResult{Answer: answer, ArchivePath: archive}, nil
}

// findArchivePath returns the target of the last successful write_file into
// the archive directory.
func findArchivePath(msgs []store.Message) string {
	callPaths := make(map[string]string)
	for _, m := range msgs {
		for _, tc := range m.ToolCalls {
			if tc.Name != "write_file" {
				continue
			}
			path, _ := tc.Arguments["file_path"].(string)
			if strings.Contains(path, appctx.ArchiveDirName) {
				callPaths[tc.ID] = path
			}
		}
	}

	var archive string
	for _, m := range msgs {
		if m.Role != store.RoleTool || m.IsError || m.Denied {
			continue
		}
		if path, ok := callPaths[m.ToolCallID]; ok {
			archive = path
		}
	}
	return archive
}
