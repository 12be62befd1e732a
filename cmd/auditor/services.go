// File path: cmd/auditor/services.go
package main

import (
	"context"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/beefed-up-geek/code-as-auditors/internal/common"
	"github.com/beefed-up-geek/code-as-auditors/internal/modelserver"
)

// maybeStartModelServer launches the local vLLM server when the command asked
// for it and points the chat mux at the managed address. The returned stop
// function is safe to call unconditionally.
func maybeStartModelServer(ctx context.Context) (func(), error) {
	if !serveLocalModel {
		return func() {}, nil
	}
	logger := common.Logger()
	host, port := hostPortFromAddr(os.Getenv("AUDITOR_LOCAL_LLM_ADDR"))
	srv, err := modelserver.Start(ctx, modelserver.Config{
		Model:  strings.TrimSpace(os.Getenv("AUDITOR_LOCAL_LLM_MODEL")),
		Host:   host,
		Port:   port,
		Logger: logger.With("component", "launcher", "service", "vllm"),
	})
	if err != nil {
		return func() {}, err
	}
	if err := os.Setenv("AUDITOR_LOCAL_LLM_ADDR", srv.Addr()); err != nil {
		srv.Stop(context.Background())
		return func() {}, err
	}
	return func() {
		if err := srv.Stop(context.Background()); err != nil {
			logger.Warn("auditor: model server shutdown returned error", "error", err)
		}
	}, nil
}

// hostPortFromAddr splits an optional host:port override, defaulting to the
// loopback vLLM port.
func hostPortFromAddr(addr string) (string, int) {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		return "127.0.0.1", 8000
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		trimmed = strings.SplitN(trimmed, "://", 2)[1]
	}
	host, portText, err := net.SplitHostPort(trimmed)
	if err != nil {
		return trimmed, 8000
	}
	if strings.TrimSpace(host) == "" {
		host = "127.0.0.1"
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port <= 0 {
		port = 8000
	}
	return host, port
}
