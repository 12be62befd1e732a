// File path: internal/modelserver/modelserver.go

// Package modelserver launches and supervises a local vLLM inference server
// so pipeline commands can target a self-hosted model without managing the
// process by hand. The server is started before the first LLM call and torn
// down when the command finishes.
package modelserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/beefed-up-geek/code-as-auditors/internal/common"
	"github.com/beefed-up-geek/code-as-auditors/internal/llm/providers"
)

// Config describes the inference server to launch.
type Config struct {
	// Model is the model id vLLM serves. Empty selects the default local
	// model the chat mux routes to.
	Model string
	Host  string
	Port  int
	// ExtraArgs are appended to the serve invocation, after model and
	// address flags.
	ExtraArgs []string
	// Env entries are appended to the inherited environment.
	Env []string

	ReadyTimeout  time.Duration
	ReadyInterval time.Duration
	StopTimeout   time.Duration

	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Model) == "" {
		c.Model = providers.DefaultLocalModel
	}
	if strings.TrimSpace(c.Host) == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port <= 0 {
		c.Port = 8000
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = 5 * time.Minute
	}
	if c.ReadyInterval <= 0 {
		c.ReadyInterval = time.Second
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = common.Logger()
	}
}

// Server tracks the lifecycle of a launched inference process.
type Server struct {
	cfg Config
	cmd *exec.Cmd

	done    chan struct{}
	waitErr error
	mu      sync.RWMutex
}

// Addr is the host:port the chat mux should dial.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Binary resolves the vllm executable, honoring the VLLM_BIN override.
func Binary() (string, error) {
	candidate := strings.TrimSpace(os.Getenv("VLLM_BIN"))
	if candidate == "" {
		candidate = "vllm"
	}
	path, err := exec.LookPath(candidate)
	if err != nil {
		return "", fmt.Errorf("modelserver: locate %s: %w", candidate, err)
	}
	return path, nil
}

// Start launches vllm serve and blocks until its health endpoint answers.
// The model can take minutes to load; ReadyTimeout bounds the wait.
func Start(ctx context.Context, cfg Config) (*Server, error) {
	cfg.applyDefaults()
	if ctx == nil {
		ctx = context.Background()
	}
	binary, err := Binary()
	if err != nil {
		return nil, err
	}

	args := []string{"serve", cfg.Model, "--host", cfg.Host, "--port", strconv.Itoa(cfg.Port)}
	args = append(args, cfg.ExtraArgs...)
	cfg.Logger.Info("modelserver: launching", "model", cfg.Model, "host", cfg.Host, "port", cfg.Port)

	cmd := exec.CommandContext(ctx, binary, args...)
	if len(cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("modelserver: stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		stdoutPipe.Close()
		return nil, fmt.Errorf("modelserver: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		stdoutPipe.Close()
		stderrPipe.Close()
		return nil, fmt.Errorf("modelserver: start vllm: %w", err)
	}

	srv := &Server{cfg: cfg, cmd: cmd, done: make(chan struct{})}

	var streams sync.WaitGroup
	forward := func(pipe io.ReadCloser, stream string, level slog.Level) {
		streams.Add(1)
		go func() {
			defer streams.Done()
			scanner := bufio.NewScanner(pipe)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for scanner.Scan() {
				cfg.Logger.Log(context.Background(), level, scanner.Text(),
					"service", "vllm", "stream", stream)
			}
			if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
				cfg.Logger.Warn("modelserver: log stream error", "stream", stream, "error", err)
			}
		}()
	}
	forward(stdoutPipe, "stdout", slog.LevelDebug)
	forward(stderrPipe, "stderr", slog.LevelDebug)

	go func() {
		streams.Wait()
		err := cmd.Wait()
		srv.mu.Lock()
		srv.waitErr = err
		srv.mu.Unlock()
		close(srv.done)
	}()

	if err := srv.waitReady(ctx); err != nil {
		srv.Stop(context.Background())
		return nil, err
	}
	cfg.Logger.Info("modelserver: ready", "addr", srv.Addr())
	return srv, nil
}

func (s *Server) waitReady(ctx context.Context) error {
	healthURL := fmt.Sprintf("http://%s/health", s.Addr())
	client := &http.Client{Timeout: 2 * time.Second}
	readyCtx, cancel := context.WithTimeout(ctx, s.cfg.ReadyTimeout)
	defer cancel()

	ticker := time.NewTicker(s.cfg.ReadyInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		select {
		case <-readyCtx.Done():
			if lastErr != nil {
				return fmt.Errorf("modelserver: not ready after %s: last error: %w", s.cfg.ReadyTimeout, lastErr)
			}
			return fmt.Errorf("modelserver: not ready after %s: %w", s.cfg.ReadyTimeout, readyCtx.Err())
		case <-s.done:
			return fmt.Errorf("modelserver: vllm exited before reporting ready: %w", s.waitError())
		case <-ticker.C:
			req, err := http.NewRequestWithContext(readyCtx, http.MethodGet, healthURL, nil)
			if err != nil {
				return fmt.Errorf("modelserver: build health request: %w", err)
			}
			resp, err := client.Do(req)
			if err != nil {
				lastErr = err
				continue
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
			lastErr = fmt.Errorf("unexpected health status %d", resp.StatusCode)
		}
	}
}

// Stop interrupts the server and escalates to a kill when it does not exit
// within the stop timeout.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.cfg.Logger.Info("modelserver: stopping", "addr", s.Addr())
	if s.cmd != nil && s.cmd.Process != nil {
		if err := s.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.cfg.Logger.Warn("modelserver: interrupt failed", "error", err)
		}
	}
	timer := time.NewTimer(s.cfg.StopTimeout)
	defer timer.Stop()

	select {
	case <-s.done:
		return s.normalizeWaitErr()
	case <-timer.C:
		s.cfg.Logger.Warn("modelserver: forcing kill")
		if s.cmd != nil && s.cmd.Process != nil {
			if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				return fmt.Errorf("modelserver: kill vllm: %w", err)
			}
		}
		<-s.done
		return s.normalizeWaitErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) waitError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.waitErr
}

// normalizeWaitErr treats an interrupt-driven exit with a code as a clean
// shutdown; anything else surfaces.
func (s *Server) normalizeWaitErr() error {
	err := s.waitError()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.Exited() {
		return nil
	}
	return err
}
