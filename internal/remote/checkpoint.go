package remote

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/competitorlens/lens-cli/internal/model"
)

// Checkpoint tracks per-file push progress so an interrupted sync resumes
// instead of re-uploading. It is rewritten whole on every update: the file
// is small and a partial write must never corrupt it.
type Checkpoint struct {
	mu   sync.Mutex
	path string
	data checkpointData
}

type checkpointData struct {
	Completed map[string]model.PushOutcome `json:"completed"`
	Failed    map[string]string            `json:"failed"`
	UpdatedAt time.Time                    `json:"updated_at"`
}

// LoadCheckpoint reads the progress file, or starts empty when it does not
// exist yet.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	cp := &Checkpoint{
		path: path,
		data: checkpointData{
			Completed: map[string]model.PushOutcome{},
			Failed:    map[string]string{},
		},
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cp, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "checkpoint: read %s", path)
	}
	if err := json.Unmarshal(raw, &cp.data); err != nil {
		return nil, eris.Wrapf(err, "checkpoint: parse %s", path)
	}
	if cp.data.Completed == nil {
		cp.data.Completed = map[string]model.PushOutcome{}
	}
	if cp.data.Failed == nil {
		cp.data.Failed = map[string]string{}
	}
	return cp, nil
}

// IsCompleted reports whether a file already reached a terminal success
// state in a previous run.
func (cp *Checkpoint) IsCompleted(key string) bool {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	_, ok := cp.data.Completed[key]
	return ok
}

// IsFailed reports whether the last attempt for a file failed.
func (cp *Checkpoint) IsFailed(key string) bool {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	_, ok := cp.data.Failed[key]
	return ok
}

// FailedKeys returns the files whose last attempt failed.
func (cp *Checkpoint) FailedKeys() []string {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	keys := make([]string, 0, len(cp.data.Failed))
	for k := range cp.data.Failed {
		keys = append(keys, k)
	}
	return keys
}

// Summary returns the completed and failed counts and when the file was last
// written.
func (cp *Checkpoint) Summary() (completed, failed int, updatedAt time.Time) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return len(cp.data.Completed), len(cp.data.Failed), cp.data.UpdatedAt
}

// MarkCompleted records a terminal success and persists immediately.
func (cp *Checkpoint) MarkCompleted(key string, outcome model.PushOutcome) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.data.Completed[key] = outcome
	delete(cp.data.Failed, key)
	return cp.save()
}

// MarkFailed records a failure and persists immediately.
func (cp *Checkpoint) MarkFailed(key, reason string) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.data.Failed[key] = reason
	return cp.save()
}

// save writes the whole file via a temp file and rename, so a crash mid-write
// leaves the previous version intact. Caller holds the lock.
func (cp *Checkpoint) save() error {
	cp.data.UpdatedAt = time.Now().UTC()
	raw, err := json.MarshalIndent(cp.data, "", "  ")
	if err != nil {
		return eris.Wrap(err, "checkpoint: marshal")
	}

	dir := filepath.Dir(cp.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "checkpoint: mkdir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".checkpoint-*")
	if err != nil {
		return eris.Wrap(err, "checkpoint: create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return eris.Wrap(err, "checkpoint: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "checkpoint: close temp file")
	}
	return eris.Wrapf(os.Rename(tmp.Name(), cp.path), "checkpoint: rename into %s", cp.path)
}
