// Package carddirectory maps card last-four digits to the representative who
// holds the card, and decides which records belong to the system account that
// must never reach the output.
package carddirectory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one card in the directory.
type Entry struct {
	Last4          string `yaml:"last4"`
	Representative string `yaml:"representative"`
	Excluded       bool   `yaml:"excluded,omitempty"`
}

// File is the on-disk YAML layout of a directory override.
type File struct {
	Cards                []Entry  `yaml:"cards"`
	ExcludedDescriptions []string `yaml:"excluded_descriptions"`
}

// Directory is an immutable lookup table.
type Directory struct {
	entries              []Entry
	byLast4              map[string]Entry
	excludedDescriptions []string
}

// New builds a directory. Later entries with the same last4 win.
func New(entries []Entry, excludedDescriptions []string) *Directory {
	d := &Directory{byLast4: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		e.Last4 = strings.TrimSpace(e.Last4)
		e.Representative = strings.TrimSpace(e.Representative)
		if _, seen := d.byLast4[e.Last4]; !seen {
			d.entries = append(d.entries, e)
		} else {
			for i := range d.entries {
				if d.entries[i].Last4 == e.Last4 {
					d.entries[i] = e
				}
			}
		}
		d.byLast4[e.Last4] = e
	}
	for _, desc := range excludedDescriptions {
		if desc = strings.ToLower(strings.TrimSpace(desc)); desc != "" {
			d.excludedDescriptions = append(d.excludedDescriptions, desc)
		}
	}
	return d
}

// Resolve returns the representative for a card. Excluded cards resolve too,
// so the system account still has a name in logs.
func (d *Directory) Resolve(last4 string) (string, bool) {
	e, ok := d.byLast4[strings.TrimSpace(last4)]
	if !ok {
		return "", false
	}
	return e.Representative, true
}

// IsExcludedAccount is true only when the card is flagged as the system
// account AND the merchant text matches one of the excluded descriptions.
// Either condition alone keeps the record.
func (d *Directory) IsExcludedAccount(last4, merchant string) bool {
	e, ok := d.byLast4[strings.TrimSpace(last4)]
	if !ok || !e.Excluded {
		return false
	}
	m := strings.ToLower(merchant)
	for _, desc := range d.excludedDescriptions {
		if strings.Contains(m, desc) {
			return true
		}
	}
	return false
}

// Entries returns the cards sorted by representative, then last4.
func (d *Directory) Entries() []Entry {
	out := append([]Entry(nil), d.entries...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Representative != out[j].Representative {
			return out[i].Representative < out[j].Representative
		}
		return out[i].Last4 < out[j].Last4
	})
	return out
}

// ExcludedDescriptions returns the lower-cased description markers.
func (d *Directory) ExcludedDescriptions() []string {
	return append([]string(nil), d.excludedDescriptions...)
}

// Load reads a YAML directory file. The path is resolved with FindFile.
func Load(filename string) (*Directory, error) {
	path, err := FindFile(filename)
	if err != nil {
		return nil, fmt.Errorf("card directory %s: %w", filename, err)
	}
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to read card directory %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse card directory %s: %w", path, err)
	}
	if len(f.Cards) == 0 {
		return nil, fmt.Errorf("card directory %s lists no cards", path)
	}
	for i, c := range f.Cards {
		if len(strings.TrimSpace(c.Last4)) != 4 {
			return nil, fmt.Errorf("card directory %s: entry %d has invalid last4 %q", path, i, c.Last4)
		}
	}
	descs := f.ExcludedDescriptions
	if len(descs) == 0 {
		descs = DefaultExcludedDescriptions
	}
	return New(f.Cards, descs), nil
}

// FindFile looks for filename as given, then under ./config, then under
// ~/.config/card-expenses.
func FindFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err == nil {
			return filename, nil
		}
		return "", os.ErrNotExist
	}

	for _, candidate := range []string{filename, filepath.Join("config", filename)} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		candidate := filepath.Join(home, ".config", "card-expenses", filename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", os.ErrNotExist
}
