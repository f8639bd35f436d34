// Package core supervises the proxy core child process.
package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned by Start while the core is running.
var ErrAlreadyRunning = errors.New("core is already running")

// ErrNotRunning is returned by Stop when there is no process.
var ErrNotRunning = errors.New("core is not running")

// Status of the core process
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusFailed   Status = "failed"
	StatusCrashed  Status = "crashed"
)

// ExitInfo contains information about process exit
type ExitInfo struct {
	Code      int
	Signal    string
	Timestamp time.Time
	Error     error
}

// Config describes the core to run.
type Config struct {
	// Binary is the core executable (see ResolveBinary).
	Binary string
	// DataDir is passed as the core's home directory (-d).
	DataDir string
	// RuntimeConfig is the generated config file the core loads (-f).
	RuntimeConfig string
	StopTimeout   time.Duration
}

type commandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Manager runs one core process at a time.
type Manager struct {
	config   Config
	logger   *zap.SugaredLogger
	command  commandFunc
	onStatus func(Status)

	mu        sync.RWMutex
	cmd       *exec.Cmd
	done      chan struct{}
	status    Status
	pid       int
	exitInfo  *ExitInfo
	startTime time.Time
	stopping  bool

	outputMu sync.Mutex
	output   *tail
}

// NewManager creates a core manager
func NewManager(cfg Config, logger *zap.SugaredLogger) *Manager {
	if cfg.StopTimeout == 0 {
		cfg.StopTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Manager{
		config:  cfg,
		logger:  logger,
		command: exec.CommandContext,
		status:  StatusStopped,
		output:  newTail(outputLines),
	}
}

// OnStatus registers a callback invoked on every status change. The callback runs
// under the manager lock and must not call back into the Manager.
func (m *Manager) OnStatus(fn func(Status)) {
	m.mu.Lock()
	m.onStatus = fn
	m.mu.Unlock()
}

// Init validates the runtime config and starts the core.
func (m *Manager) Init(ctx context.Context) error {
	if err := m.CheckConfig(ctx); err != nil {
		return err
	}
	return m.Start()
}

// CheckConfig runs the core in test mode against the runtime config.
func (m *Manager) CheckConfig(ctx context.Context) error {
	args := []string{"-t", "-d", m.config.DataDir, "-f", m.config.RuntimeConfig}
	cmd := m.command(ctx, m.config.Binary, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		m.logger.Errorw("Core config check failed", "binary", m.config.Binary, "output", lastLine(out), "error", err)
		return fmt.Errorf("core config check failed: %w", err)
	}
	m.logger.Debugw("Core config check passed", "binary", m.config.Binary)
	return nil
}

// Start launches the core process.
func (m *Manager) Start() error {
	m.mu.Lock()

	if m.status == StatusRunning || m.status == StatusStarting {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}

	args := []string{"-d", m.config.DataDir, "-f", m.config.RuntimeConfig}
	m.logger.Infow("Starting core", "binary", m.config.Binary, "args", args)

	// Not bound to a context: the core outlives Setup and is stopped explicitly.
	cmd := m.command(context.Background(), m.config.Binary, args...)
	cmd.Dir = m.config.DataDir
	cmd.SysProcAttr = sysProcAttr()

	reader, writer, err := os.Pipe()
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to create output pipe: %w", err)
	}
	cmd.Stdout = writer
	cmd.Stderr = writer

	m.setStatusLocked(StatusStarting)
	m.startTime = time.Now()
	m.stopping = false
	m.outputMu.Lock()
	m.output.reset()
	m.outputMu.Unlock()

	err = cmd.Start()
	writer.Close()
	if err != nil {
		reader.Close()
		m.setStatusLocked(StatusFailed)
		m.mu.Unlock()
		m.logger.Errorw("Failed to start core", "error", err)
		return fmt.Errorf("failed to start core: %w", err)
	}

	m.cmd = cmd
	m.pid = cmd.Process.Pid
	m.done = make(chan struct{})
	m.exitInfo = nil
	m.setStatusLocked(StatusRunning)
	done := m.done
	m.mu.Unlock()

	m.logger.Infow("Core started", "pid", cmd.Process.Pid, "startup_time", time.Since(m.startTime))

	go m.capture(reader)
	go m.monitor(cmd, done)
	return nil
}

// Stop terminates the core process group, killing it after StopTimeout.
func (m *Manager) Stop() error {
	m.mu.Lock()
	cmd := m.cmd
	done := m.done
	pid := m.pid
	if cmd == nil || cmd.Process == nil || done == nil {
		m.mu.Unlock()
		return ErrNotRunning
	}
	select {
	case <-done:
		m.mu.Unlock()
		return ErrNotRunning
	default:
	}
	m.stopping = true
	m.mu.Unlock()

	m.logger.Infow("Stopping core", "pid", pid)
	if err := terminate(cmd.Process); err != nil {
		m.logger.Warnw("Failed to terminate core", "pid", pid, "error", err)
	}

	select {
	case <-done:
		m.logger.Infow("Core stopped", "pid", pid)
		return nil
	case <-time.After(m.config.StopTimeout):
		m.logger.Warnw("Core did not stop gracefully, killing", "pid", pid)
		if err := kill(cmd.Process); err != nil {
			m.logger.Errorw("Failed to kill core", "pid", pid, "error", err)
		}
		<-done
		return fmt.Errorf("core force killed")
	}
}

// Restart stops a running core and starts it again after a config check.
func (m *Manager) Restart(ctx context.Context) error {
	if err := m.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	return m.Init(ctx)
}

// Status returns the current process status
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// PID returns the process id of the running core, or 0.
func (m *Manager) PID() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.status != StatusRunning {
		return 0
	}
	return m.pid
}

// ExitInfo returns information about the last exit
func (m *Manager) ExitInfo() *ExitInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.exitInfo
}

// Output returns the last captured lines of core output.
func (m *Manager) Output() string {
	m.outputMu.Lock()
	defer m.outputMu.Unlock()
	return m.output.String()
}

func (m *Manager) monitor(cmd *exec.Cmd, done chan struct{}) {
	err := cmd.Wait()

	m.mu.Lock()
	info := &ExitInfo{Timestamp: time.Now(), Error: err}
	status := StatusStopped
	if err != nil && !m.stopping {
		status = StatusFailed
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			info.Code = exitErr.ExitCode()
			if sig := exitSignal(exitErr); sig != "" {
				info.Signal = sig
				status = StatusCrashed
			}
		}
	}
	m.exitInfo = info
	m.setStatusLocked(status)
	runtimeDur := time.Since(m.startTime)
	m.mu.Unlock()

	if status == StatusStopped {
		m.logger.Infow("Core exited", "pid", cmd.Process.Pid, "runtime", runtimeDur)
	} else {
		m.logger.Errorw("Core exited with error",
			"pid", cmd.Process.Pid,
			"error", err,
			"exit_code", info.Code,
			"signal", info.Signal,
			"runtime", runtimeDur)
	}
	close(done)
}

func (m *Manager) capture(pipe io.ReadCloser) {
	defer pipe.Close()

	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		line := scanner.Text()

		m.outputMu.Lock()
		m.output.add(line)
		m.outputMu.Unlock()

		lower := strings.ToLower(line)
		if strings.Contains(lower, "error") || strings.Contains(lower, "fatal") {
			m.logger.Warnw("Core error output", "line", line)
		} else {
			m.logger.Debugw("Core output", "line", line)
		}
	}
}

// setStatusLocked must be called with m.mu held.
func (m *Manager) setStatusLocked(s Status) {
	m.status = s
	if m.onStatus != nil {
		m.onStatus(s)
	}
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return lines[len(lines)-1]
}

// ResolveBinary finds the core executable: next to the running executable first
// (sidecar layout), then on PATH.
func ResolveBinary(name string) (string, error) {
	if runtime.GOOS == "windows" && !strings.HasSuffix(name, ".exe") {
		name += ".exe"
	}

	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("core binary %s not found: %w", name, err)
	}
	return path, nil
}
