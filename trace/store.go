// Package trace persists finished research runs as JSON files so they can be
// inspected or replayed later.
package trace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	research "github.com/armatrix/deep-research-go"
	"github.com/armatrix/deep-research-go/internal/budget"
)

// ErrNotFound is returned when no trace exists for a run ID.
var ErrNotFound = errors.New("trace: not found")

// Record is one persisted run.
type Record struct {
	Query  string           `json:"query"`
	Result *research.Result `json:"result"`

	// Usage is the budget snapshot at the end of the run, if tracked.
	Usage *budget.Snapshot `json:"usage,omitempty"`

	SavedAt time.Time `json:"saved_at"`
}

// RunID returns the ID of the recorded run.
func (r *Record) RunID() string {
	if r.Result == nil {
		return ""
	}
	return r.Result.RunID
}

// FileStore persists records as {run_id}.json in a directory.
type FileStore struct {
	dir string
	now func() time.Time
}

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

// Dir returns the store directory.
func (f *FileStore) Dir() string { return f.dir }

// Save writes rec, replacing any earlier trace of the same run. The file is
// written to a temp name first so readers never see a partial trace.
func (f *FileStore) Save(_ context.Context, rec *Record) error {
	if rec == nil || rec.Result == nil {
		return errors.New("trace: record has no result")
	}
	id := rec.RunID()
	if err := validID(id); err != nil {
		return err
	}
	if rec.SavedAt.IsZero() {
		rec.SavedAt = f.now().UTC()
	}

	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, id+".*.tmp")
	if err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write trace: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write trace: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(id)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write trace: %w", err)
	}
	return nil
}

// Load reads the trace of run id.
func (f *FileStore) Load(_ context.Context, id string) (*Record, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(f.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read trace: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal trace %s: %w", id, err)
	}
	return &rec, nil
}

// Delete removes the trace of run id.
func (f *FileStore) Delete(_ context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	if err := os.Remove(f.path(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("remove trace: %w", err)
	}
	return nil
}

// List returns every stored trace, newest first. Unreadable files are skipped.
func (f *FileStore) List(ctx context.Context) ([]*Record, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("read trace dir: %w", err)
	}

	var recs []*Record
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		rec, err := f.Load(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].SavedAt.After(recs[j].SavedAt)
	})
	return recs, nil
}

func (f *FileStore) path(id string) string {
	return filepath.Join(f.dir, id+".json")
}

func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("trace: invalid run id %q", id)
	}
	return nil
}
