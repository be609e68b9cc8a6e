package jsonl

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Manager creates and opens conversation logs backed by JSONL files under a
// single root directory. One log per working directory.
type Manager struct {
	rootDir   string
	maxMsgs   int
	eventChan chan string
	mu        sync.RWMutex
	subs      []chan string
}

func NewManager(rootDir string, maxMessages int) *Manager {
	m := &Manager{
		rootDir:   rootDir,
		maxMsgs:   maxMessages,
		eventChan: make(chan string, 100),
	}
	// Best effort creation; Open reports the real error if this failed.
	os.MkdirAll(rootDir, 0755)

	go m.broadcastLoop()
	return m
}

func (m *Manager) broadcastLoop() {
	for path := range m.eventChan {
		m.mu.RLock()
		for _, sub := range m.subs {
			// Non-blocking send
			select {
			case sub <- path:
			default:
			}
		}
		m.mu.RUnlock()
	}
}

// Subscribe returns a channel that receives the log path after every mutation.
// Slow subscribers drop notifications rather than block writers.
func (m *Manager) Subscribe() <-chan string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan string, 10)
	m.subs = append(m.subs, ch)
	return ch
}

func (m *Manager) publish(path string) {
	select {
	case m.eventChan <- path:
	default:
	}
}

// Open loads the log for the given working directory, creating it if it does
// not exist yet. Logs are keyed by a sanitized form of the directory path so
// each project keeps its own history.
func (m *Manager) Open(workdir string) (*Log, error) {
	if err := os.MkdirAll(m.rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	path := filepath.Join(m.rootDir, logName(workdir))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}

	l := &Log{
		filePath:   path,
		fileHandle: f,
		max:        m.maxMsgs,
		notify:     m.publish,
	}

	if err := l.load(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	return l, nil
}

func logName(workdir string) string {
	s := strings.Trim(workdir, string(os.PathSeparator))
	s = strings.ReplaceAll(s, string(os.PathSeparator), "-")
	if s == "" {
		s = "root"
	}
	return s + ".jsonl"
}
