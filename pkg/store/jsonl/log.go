package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/app-vitals/simple-agent/pkg/store"
)

// Log implements the store.Log interface using a JSONL file. Every append is
// written through to disk before it becomes visible in memory, so the on-disk
// file always matches the in-memory window.
type Log struct {
	mu         sync.RWMutex
	filePath   string
	fileHandle *os.File
	msgs       []store.Message
	max        int
	notify     func(string)
}

func (l *Log) Path() string { return l.filePath }

// Append persists a message and enforces the cap. When the cap is exceeded
// the oldest messages are dropped, then any tool-result messages left at the
// head without their originating assistant message are dropped too.
func (l *Log) Append(msg store.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := append(append([]store.Message{}, l.msgs...), msg)
	trimmed := trim(next, l.max)

	if len(trimmed) != len(next) {
		if err := l.rewrite(trimmed); err != nil {
			return err
		}
	} else {
		if err := l.writeLine(msg); err != nil {
			return err
		}
	}

	l.msgs = trimmed

	if l.notify != nil {
		l.notify(l.filePath)
	}
	return nil
}

// Messages returns a copy of the current window, oldest first.
func (l *Log) Messages() []store.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]store.Message, len(l.msgs))
	copy(out, l.msgs)
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.msgs)
}

// Clear removes all messages from memory and truncates the file.
func (l *Log) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.fileHandle.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate history: %w", err)
	}
	if _, err := l.fileHandle.Seek(0, 0); err != nil {
		return err
	}

	l.msgs = nil

	if l.notify != nil {
		l.notify(l.filePath)
	}
	return nil
}

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fileHandle != nil {
		return l.fileHandle.Close()
	}
	return nil
}

func (l *Log) load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.fileHandle.Seek(0, 0); err != nil {
		return err
	}

	var msgs []store.Message
	scanner := bufio.NewScanner(l.fileHandle)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var m store.Message
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			continue // skip bad lines
		}
		msgs = append(msgs, m)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	trimmed := trim(msgs, l.max)
	if len(trimmed) != len(msgs) {
		if err := l.rewrite(trimmed); err != nil {
			return err
		}
	}
	l.msgs = trimmed
	return nil
}

func (l *Log) writeLine(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := l.fileHandle.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

func (l *Log) rewrite(msgs []store.Message) error {
	if err := l.fileHandle.Truncate(0); err != nil {
		return err
	}
	if _, err := l.fileHandle.Seek(0, 0); err != nil {
		return err
	}
	for _, m := range msgs {
		if err := l.writeLine(m); err != nil {
			return err
		}
	}
	return nil
}

// trim keeps the newest max messages, then drops tool results left at the
// head so the window never starts mid tool exchange.
func trim(msgs []store.Message, max int) []store.Message {
	if max <= 0 || len(msgs) <= max {
		return msgs
	}
	msgs = msgs[len(msgs)-max:]
	for len(msgs) > 0 && msgs[0].Role == store.RoleTool {
		msgs = msgs[1:]
	}
	return msgs
}
