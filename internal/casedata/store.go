// File path: internal/casedata/store.go
package casedata

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultCasesFile is the JSONL file ingest appends to.
const DefaultCasesFile = "cases.jsonl"

// Store reads and appends the adjudicated-case corpus kept as JSONL files in
// a single directory. Every *.jsonl file in the directory belongs to the
// corpus and files are read in name order.
type Store struct {
	dir string
	mu  sync.RWMutex
}

func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("case store dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create case store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	if s == nil {
		return ""
	}
	return s.dir
}

// Load parses every case record in the store. Blank lines are skipped; a
// malformed line fails the load with its file and line number.
func (s *Store) Load(ctx context.Context) ([]Case, error) {
	if s == nil {
		return nil, errors.New("case store not initialized")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read case dir: %w", err)
	}
	var cases []Case
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		fileCases, err := s.readFile(ctx, filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		cases = append(cases, fileCases...)
	}
	return cases, nil
}

func (s *Store) readFile(ctx context.Context, path string) ([]Case, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cases: %w", err)
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64<<10), 8<<20)
	var cases []Case
	line := 0
	for scanner.Scan() {
		line++
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var c Case
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode case on line %d of %s: %w", line, filepath.Base(path), err)
		}
		cases = append(cases, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan cases: %w", err)
	}
	return cases, nil
}

// Append adds cases to the named JSONL file, creating it when missing. An
// empty name targets the default cases file.
func (s *Store) Append(ctx context.Context, name string, cases []Case) error {
	if s == nil {
		return errors.New("case store not initialized")
	}
	if len(cases) == 0 {
		return nil
	}
	if strings.TrimSpace(name) == "" {
		name = DefaultCasesFile
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := os.OpenFile(filepath.Join(s.dir, name), os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open cases: %w", err)
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	enc.SetEscapeHTML(false)
	for _, c := range cases {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("encode case: %w", err)
		}
	}
	return nil
}
