// Package session persists per-run artifacts on disk: one directory per run
// holding session info, an append-only record stream and per-iteration
// before/after captures.
package session

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
)

var (
	_ output.SessionFactory = (*Factory)(nil)
	_ output.SessionPort    = (*Store)(nil)
)

type Factory struct {
	baseDir string
}

func NewFactory(baseDir string) *Factory {
	return &Factory{baseDir: baseDir}
}

// Open creates sessions/session_<timestamp>/ and the record stream inside it.
func (f *Factory) Open() (output.SessionPort, error) {
	dir := filepath.Join(f.baseDir, "session_"+time.Now().Format("20060102_150405"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	records, err := os.OpenFile(filepath.Join(dir, "records.jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open record stream: %w", err)
	}
	return &Store{dir: dir, records: records}, nil
}

type Store struct {
	dir string

	mu      sync.Mutex
	records *os.File
}

func (s *Store) LogSessionInfo(info map[string]any) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session info: %w", err)
	}
	return os.WriteFile(filepath.Join(s.dir, "session.json"), data, 0644)
}

// LogIteration writes iter_NNN/ with the captures and the record, and appends
// the record to the session-wide stream. Nil images are skipped; a proposer
// failure has no after frame to save.
func (s *Store) LogIteration(rec entity.IterationRecord, before, after image.Image) error {
	iterDir := filepath.Join(s.dir, fmt.Sprintf("iter_%03d", rec.Iteration))
	if err := os.MkdirAll(iterDir, 0755); err != nil {
		return fmt.Errorf("create iteration dir: %w", err)
	}

	if before != nil {
		if err := imaging.Save(before, filepath.Join(iterDir, "before.png")); err != nil {
			return fmt.Errorf("save before capture: %w", err)
		}
	}
	if after != nil {
		if err := imaging.Save(after, filepath.Join(iterDir, "after.png")); err != nil {
			return fmt.Errorf("save after capture: %w", err)
		}
	}

	pretty, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := os.WriteFile(filepath.Join(iterDir, "record.json"), pretty, 0644); err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record line: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.records.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		return nil
	}
	err := s.records.Close()
	s.records = nil
	return err
}
