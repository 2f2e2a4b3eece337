// Package convlog records chat turns as newline-delimited JSON, one file per
// user session plus an optional global stream.
package convlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Event is one logged conversation turn.
type Event struct {
	Timestamp      string         `json:"timestamp"`
	UserID         string         `json:"user_id"`
	SessionID      string         `json:"session_id"`
	ConversationID string         `json:"conversation_id,omitempty"`
	AgentType      string         `json:"agent_type,omitempty"`
	Channel        string         `json:"channel"`
	Direction      string         `json:"direction"`
	EventType      string         `json:"event_type"`
	ContentRaw     string         `json:"content_raw"`
	Content        string         `json:"content"`
	Meta           map[string]any `json:"meta,omitempty"`
}

// Config controls where and whether events are written.
type Config struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Logger accepts events without blocking the request path.
type Logger interface {
	Log(Event)
	Close() error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Log(Event)    {}
func (Noop) Close() error { return nil }

type fileLogger struct {
	cfg    Config
	logger *slog.Logger
	queue  chan Event
	done   chan struct{}
	once   sync.Once

	global *os.File
	files  map[string]*os.File
}

// New starts a background writer. A disabled config returns Noop.
func New(cfg Config, logger *slog.Logger) (Logger, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}

	l := &fileLogger{
		cfg:    cfg,
		logger: logger,
		queue:  make(chan Event, cfg.QueueSize),
		done:   make(chan struct{}),
		files:  make(map[string]*os.File),
	}
	if cfg.GlobalEnabled {
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0o750); err != nil {
			return nil, fmt.Errorf("create global conversation log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.GlobalPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, fmt.Errorf("open global conversation log: %w", err)
		}
		l.global = f
	}

	go l.run()
	return l, nil
}

// Log enqueues e. Events are dropped when the queue is full.
func (l *fileLogger) Log(e Event) {
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if e.Content == "" {
		e.Content = Clean(e.ContentRaw)
	}
	select {
	case l.queue <- e:
	default:
		l.logger.Warn("conversation log queue full, dropping event",
			"user_id", e.UserID,
			"event_type", e.EventType,
		)
	}
}

// Close drains the queue and closes open files.
func (l *fileLogger) Close() error {
	l.once.Do(func() { close(l.queue) })
	<-l.done
	return nil
}

func (l *fileLogger) run() {
	defer close(l.done)
	for e := range l.queue {
		line, err := json.Marshal(e)
		if err != nil {
			l.logger.Error("marshal conversation event", "error", err)
			continue
		}
		line = append(line, '\n')

		if err := l.writeSession(e, line); err != nil {
			l.logger.Error("write conversation log", "error", err, "user_id", e.UserID)
		}
		if l.global != nil {
			if _, err := l.global.Write(line); err != nil {
				l.logger.Error("write global conversation log", "error", err)
			}
		}
	}
	for _, f := range l.files {
		_ = f.Close()
	}
	if l.global != nil {
		_ = l.global.Close()
	}
}

func (l *fileLogger) writeSession(e Event, line []byte) error {
	user := safeName(e.UserID, "anonymous")
	session := safeName(e.SessionID, "default")
	key := user + "/" + session

	f, ok := l.files[key]
	if !ok {
		dir := filepath.Join(l.cfg.Dir, user)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
		var err error
		f, err = os.OpenFile(filepath.Join(dir, session+".ndjson"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return err
		}
		l.files[key] = f
	}
	_, err := f.Write(line)
	return err
}

var (
	unsafeName  = regexp.MustCompile(`[^A-Za-z0-9._-]`)
	ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07]*(\x07|\x1b\\)`)
	spaceRun    = regexp.MustCompile(`[ \t]+`)
)

func safeName(s, fallback string) string {
	s = unsafeName.ReplaceAllString(s, "_")
	if s == "" || strings.Trim(s, ".") == "" {
		return fallback
	}
	return s
}

// Clean strips terminal escapes and control characters and collapses runs
// of blanks so logged text reads as plain prose.
func Clean(s string) string {
	s = ansiPattern.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
