// Package report stores screenshot attachments produced by the check
// flows and an index describing them, so a CI run can publish the
// directory as build artifacts.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Outcome tags an attachment with how its flow ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeManual  Outcome = "manual_check"
)

// Attachment is one stored screenshot.
type Attachment struct {
	Name      string  `json:"name"`
	File      string  `json:"file"`
	Outcome   Outcome `json:"outcome"`
	Timestamp string  `json:"timestamp"`
}

// Store writes attachments into a directory and maintains index.json
// alongside them.
type Store struct {
	dir   string
	index []Attachment
	now   func() time.Time
}

// NewStore returns a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create attachments directory: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Dir returns the attachments directory.
func (s *Store) Dir() string {
	return s.dir
}

// AttachPNG stores png bytes under "<name>_<outcome>" with a uuid file
// name and records it in the index.
func (s *Store) AttachPNG(name string, outcome Outcome, png []byte) (Attachment, error) {
	file := fmt.Sprintf("%s.png", uuid.NewString())
	path := filepath.Join(s.dir, file)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return Attachment{}, fmt.Errorf("failed to write attachment %s: %w", name, err)
	}

	att := Attachment{
		Name:      fmt.Sprintf("%s_%s", name, outcome),
		File:      file,
		Outcome:   outcome,
		Timestamp: s.now().Format(time.RFC3339),
	}
	s.index = append(s.index, att)

	if err := s.saveIndex(); err != nil {
		return att, err
	}
	return att, nil
}

// Attachments returns the index entries in attach order.
func (s *Store) Attachments() []Attachment {
	out := make([]Attachment, len(s.index))
	copy(out, s.index)
	return out
}

func (s *Store) saveIndex() error {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal attachment index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, "index.json"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write attachment index: %w", err)
	}
	return nil
}
