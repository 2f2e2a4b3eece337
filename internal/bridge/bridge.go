// Package bridge queries the out-of-process notebook knowledge helper.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/ashureev/rommaana-agents/internal/metrics"
)

// DefaultTimeout bounds a single helper invocation.
const DefaultTimeout = 15 * time.Second

// DefaultInterpreters are tried in order until one can be started.
var DefaultInterpreters = []string{"python", "python3"}

// Errors returned by Subprocess.Run.
var (
	ErrUnavailable = errors.New("bridge: no interpreter could be started")
	ErrTimeout     = errors.New("bridge: helper timed out")
	ErrBadOutput   = errors.New("bridge: helper output is not a JSON object")
)

// Bridge returns notebook-grounded insight text for a query.
// It never fails: ok is false when no insight is available.
type Bridge interface {
	Query(ctx context.Context, notebookID, text string) (insight string, ok bool)
}

// Result is the JSON object the helper prints on stdout.
type Result struct {
	Status  string   `json:"status"`
	Answer  string   `json:"answer,omitempty"`
	Sources []string `json:"sources,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Noop is a Bridge that never has insight.
type Noop struct{}

// Query implements Bridge.
func (Noop) Query(context.Context, string, string) (string, bool) { return "", false }

// Config configures a Subprocess bridge.
type Config struct {
	Script       string
	Interpreters []string
	Timeout      time.Duration
}

// Subprocess runs `<interpreter> <script> <notebookId> <query>` and reads
// a single JSON object from stdout.
type Subprocess struct {
	script       string
	interpreters []string
	timeout      time.Duration
	logger       *slog.Logger
}

// NewSubprocess returns a Subprocess bridge. Zero fields take defaults.
func NewSubprocess(cfg Config, logger *slog.Logger) *Subprocess {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Interpreters) == 0 {
		cfg.Interpreters = DefaultInterpreters
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Subprocess{
		script:       cfg.Script,
		interpreters: cfg.Interpreters,
		timeout:      cfg.Timeout,
		logger:       logger,
	}
}

// Query implements Bridge.
func (s *Subprocess) Query(ctx context.Context, notebookID, text string) (string, bool) {
	res, err := s.Run(ctx, notebookID, text)
	if err != nil {
		s.logger.Warn("Knowledge bridge unavailable, continuing without insights",
			"notebook_id", notebookID, "error", err)
		return "", false
	}
	if res.Status != "success" {
		metrics.BridgeTotal.WithLabelValues("failed").Inc()
		s.logger.Warn("Knowledge bridge returned error",
			"notebook_id", notebookID, "status", res.Status, "error", res.Error)
		return "", false
	}
	if strings.TrimSpace(res.Answer) == "" {
		metrics.BridgeTotal.WithLabelValues("empty").Inc()
		return "", false
	}
	metrics.BridgeTotal.WithLabelValues("answered").Inc()
	return res.Answer, true
}

// Run invokes the helper and decodes its result. The next interpreter is
// tried only when the previous one could not be started.
func (s *Subprocess) Run(ctx context.Context, notebookID, text string) (*Result, error) {
	var startErrs []error
	for _, interp := range s.interpreters {
		res, err := s.runOnce(ctx, interp, notebookID, text)
		var se *startError
		if errors.As(err, &se) {
			s.logger.Info("Bridge interpreter failed to start", "interpreter", interp, "error", se.err)
			startErrs = append(startErrs, se)
			continue
		}
		return res, err
	}
	metrics.BridgeTotal.WithLabelValues("unavailable").Inc()
	return nil, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(startErrs...))
}

type startError struct {
	interpreter string
	err         error
}

func (e *startError) Error() string {
	return fmt.Sprintf("start %s: %v", e.interpreter, e.err)
}

func (e *startError) Unwrap() error { return e.err }

func (s *Subprocess) runOnce(ctx context.Context, interpreter, notebookID, text string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, interpreter, s.script, notebookID, text)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &startError{interpreter: interpreter, err: err}
	}
	err := cmd.Wait()

	if stderr.Len() > 0 {
		s.logger.Debug("Bridge stderr", "interpreter", interpreter, "stderr", strings.TrimSpace(stderr.String()))
	}
	if ctx.Err() == context.DeadlineExceeded {
		metrics.BridgeTotal.WithLabelValues("timeout").Inc()
		return nil, fmt.Errorf("%w after %s", ErrTimeout, s.timeout)
	}
	if err != nil {
		metrics.BridgeTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("bridge: %s exited: %w", interpreter, err)
	}

	var res Result
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &res); err != nil {
		metrics.BridgeTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrBadOutput, err)
	}
	s.logger.Debug("Bridge answered", "interpreter", interpreter, "status", res.Status, "duration", time.Since(started))
	return &res, nil
}
