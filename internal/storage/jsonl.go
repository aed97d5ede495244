// Package storage handles library persistence in JSONL and SQLite formats.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/matsen/bibhub/internal/reference"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// Import actions.
const (
	ActionNew    = "new"
	ActionUpdate = "update"
)

// EntryWithAction pairs an entry with an import action.
type EntryWithAction struct {
	Entry       reference.Entry
	Action      string // new, update
	ExistingIdx int    // Index in existing entries (for updates)
}

// ReadAll reads all entries from a JSONL file.
// A missing file yields no entries and no error.
func ReadAll(path string) ([]reference.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening entries file: %w", err)
	}
	defer f.Close()

	var entries []reference.Entry
	scanner := bufio.NewScanner(f)

	// Increase buffer size for long lines
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var e reference.Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		entries = append(entries, e)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading entries file: %w", err)
	}

	return entries, nil
}

// Append adds an entry to the end of a JSONL file.
func Append(path string, e reference.Entry) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening entries file for append: %w", err)
	}
	defer f.Close()

	if err := writeLine(f, e); err != nil {
		return fmt.Errorf("writing entry %s: %w", e.ID, err)
	}
	return nil
}

// WriteAll writes all entries to a JSONL file, replacing existing content.
func WriteAll(path string, entries []reference.Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating entries file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i, e := range entries {
		if err := writeLine(w, e); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	return w.Flush()
}

type lineWriter interface {
	Write(p []byte) (int, error)
	WriteString(s string) (int, error)
}

func writeLine(w lineWriter, e reference.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = w.WriteString("\n")
	return err
}

// FindByDOI searches for an entry by DOI, ignoring case and resolver prefixes.
func FindByDOI(entries []reference.Entry, doi string) (int, bool) {
	want := reference.NormalizeDOI(doi)
	if want == "" {
		return -1, false
	}
	for i, e := range entries {
		if reference.NormalizeDOI(e.Get(reference.FieldDOI)) == want {
			return i, true
		}
	}
	return -1, false
}

// FindByID searches for an entry by ID.
func FindByID(entries []reference.Entry, id string) (int, bool) {
	for i, e := range entries {
		if e.ID == id {
			return i, true
		}
	}
	return -1, false
}

// GenerateUniqueID returns an ID that doesn't conflict with existing entries.
// If the base ID exists, appends -2, -3, etc.
func GenerateUniqueID(entries []reference.Entry, baseID string) string {
	if _, found := FindByID(entries, baseID); !found {
		return baseID
	}

	// Start at 2: baseID is taken, so first duplicate becomes baseID-2
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", baseID, i)
		if _, found := FindByID(entries, candidate); !found {
			return candidate
		}
	}
}

// PlanImport decides, per incoming entry, whether it updates an existing
// entry (same DOI) or is new. New entries get IDs unique across the library
// and the batch.
func PlanImport(existing, incoming []reference.Entry) []EntryWithAction {
	taken := make([]reference.Entry, len(existing), len(existing)+len(incoming))
	copy(taken, existing)

	plan := make([]EntryWithAction, 0, len(incoming))
	for _, e := range incoming {
		if idx, found := FindByDOI(existing, e.Get(reference.FieldDOI)); found {
			e.ID = existing[idx].ID
			plan = append(plan, EntryWithAction{Entry: e, Action: ActionUpdate, ExistingIdx: idx})
			continue
		}
		e.ID = GenerateUniqueID(taken, e.ID)
		taken = append(taken, e)
		plan = append(plan, EntryWithAction{Entry: e, Action: ActionNew, ExistingIdx: -1})
	}
	return plan
}

// ApplyImport returns existing with the plan applied: updates replace in
// place, new entries are appended.
func ApplyImport(existing []reference.Entry, plan []EntryWithAction) []reference.Entry {
	out := make([]reference.Entry, len(existing), len(existing)+len(plan))
	copy(out, existing)
	for _, p := range plan {
		switch p.Action {
		case ActionUpdate:
			out[p.ExistingIdx] = p.Entry
		case ActionNew:
			out = append(out, p.Entry)
		}
	}
	return out
}

// SaveImport writes the plan to the JSONL file at path. A plan with only new
// entries is appended; any update rewrites the file.
func SaveImport(path string, existing []reference.Entry, plan []EntryWithAction) error {
	for _, p := range plan {
		if p.Action == ActionUpdate {
			return WriteAll(path, ApplyImport(existing, plan))
		}
	}
	for _, p := range plan {
		if err := Append(path, p.Entry); err != nil {
			return err
		}
	}
	return nil
}
