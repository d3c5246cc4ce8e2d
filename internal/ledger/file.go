// SPDX-License-Identifier: MPL-2.0

package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFileName is the ledger file name used when only a root directory is known.
const DefaultFileName = ".commodities.toml"

type (
	// FileLedger stores records in a TOML document:
	//
	//	[applications.my-app.db2_community]
	//	provisioned = true
	//	updated_at = 2024-05-01T10:00:00Z
	//
	// The file is re-read on every Get so edits made between runs are honoured,
	// and rewritten through a temp file and rename on every Set.
	FileLedger struct {
		path string
		mu   sync.Mutex
		now  func() time.Time
	}

	fileDocument struct {
		Applications map[string]map[string]fileEntry `toml:"applications"`
	}

	fileEntry struct {
		Provisioned bool      `toml:"provisioned"`
		UpdatedAt   time.Time `toml:"updated_at"`
	}
)

// NewFileLedger returns a FileLedger backed by path. The file is created on
// the first Set; its parent directory must exist.
func NewFileLedger(path string) *FileLedger {
	return &FileLedger{path: path, now: time.Now}
}

// Path returns the ledger file path.
func (f *FileLedger) Path() string { return f.path }

// Get returns the recorded outcome for key.
func (f *FileLedger) Get(_ context.Context, key Key) (bool, bool, error) {
	if err := key.Validate(); err != nil {
		return false, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return false, false, err
	}
	entry, ok := doc.Applications[key.App][key.Commodity]
	return entry.Provisioned, ok, nil
}

// Set records the outcome for key.
func (f *FileLedger) Set(_ context.Context, key Key, provisioned bool) error {
	if err := key.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}
	if doc.Applications[key.App] == nil {
		doc.Applications[key.App] = make(map[string]fileEntry)
	}
	doc.Applications[key.App][key.Commodity] = fileEntry{
		Provisioned: provisioned,
		UpdatedAt:   f.now().UTC().Truncate(time.Second),
	}
	return f.save(doc)
}

// List returns all records ordered by application and commodity.
func (f *FileLedger) List(_ context.Context) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	var out []Record
	for app, commodities := range doc.Applications {
		for commodity, entry := range commodities {
			out = append(out, Record{
				Key:         NewKey(app, commodity),
				Provisioned: entry.Provisioned,
				UpdatedAt:   entry.UpdatedAt,
			})
		}
	}
	sortRecords(out)
	return out, nil
}

// Delete removes the record for key. Deleting a missing record is not an error.
func (f *FileLedger) Delete(_ context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}
	commodities, ok := doc.Applications[key.App]
	if !ok {
		return nil
	}
	if _, ok := commodities[key.Commodity]; !ok {
		return nil
	}
	delete(commodities, key.Commodity)
	if len(commodities) == 0 {
		delete(doc.Applications, key.App)
	}
	return f.save(doc)
}

// Close is a no-op; the file is not held open between calls.
func (f *FileLedger) Close() error { return nil }

// load reads the document. A missing file is an empty ledger.
// Must be called with mu held.
func (f *FileLedger) load() (*fileDocument, error) {
	doc := &fileDocument{Applications: make(map[string]map[string]fileEntry)}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger file: %w", err)
	}
	if err := toml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse ledger file %s: %w", f.path, err)
	}
	if doc.Applications == nil {
		doc.Applications = make(map[string]map[string]fileEntry)
	}
	return doc, nil
}

// save writes the document through a temp file in the same directory.
// Must be called with mu held.
func (f *FileLedger) save(doc *fileDocument) error {
	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".commodities-*.tmp")
	if err != nil {
		return fmt.Errorf("create ledger temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()        // Best-effort close on error path
		_ = os.Remove(tmpPath) // Best-effort cleanup on error path
		return fmt.Errorf("write ledger temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup on error path
		return fmt.Errorf("close ledger temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup on error path
		return fmt.Errorf("replace ledger file: %w", err)
	}
	return nil
}
