// Package roster imports the household roster from a YAML file.
package roster

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dukerupert/fairshare/internal/model"
)

// Entry is one partner as written in the roster file.
type Entry struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Color      string   `yaml:"color"`
	Accent     string   `yaml:"accent"`
	InviteCode string   `yaml:"invite_code"`
	Favorites  []string `yaml:"favorites"`
	Condition  string   `yaml:"condition"`
}

// Upserter saves a partner. *store.PartnerStore implements it.
type Upserter interface {
	Upsert(p model.Partner) (*model.Partner, error)
}

// Parse reads a YAML list of partners. Unknown fields are rejected, ids must
// be unique and every entry needs an id and a name.
func Parse(r io.Reader) ([]model.Partner, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	var entries []Entry
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode roster: %w", err)
	}

	seen := make(map[string]bool, len(entries))
	partners := make([]model.Partner, 0, len(entries))
	for i, e := range entries {
		e.ID = strings.TrimSpace(e.ID)
		e.Name = strings.TrimSpace(e.Name)
		if e.ID == "" || e.Name == "" {
			return nil, fmt.Errorf("roster entry %d: id and name are required", i+1)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("roster entry %d: duplicate id %q", i+1, e.ID)
		}
		seen[e.ID] = true
		partners = append(partners, model.Partner{
			ID:         e.ID,
			Name:       e.Name,
			Color:      e.Color,
			Accent:     e.Accent,
			InviteCode: e.InviteCode,
			Favorites:  e.Favorites,
			Condition:  strings.TrimSpace(e.Condition),
			SortOrder:  i,
		})
	}
	return partners, nil
}

// Import upserts every partner in r, in file order.
func Import(r io.Reader, dst Upserter, logger *slog.Logger) (int, error) {
	partners, err := Parse(r)
	if err != nil {
		return 0, err
	}
	for _, p := range partners {
		if _, err := dst.Upsert(p); err != nil {
			return 0, fmt.Errorf("import partner %s: %w", p.ID, err)
		}
	}
	logger.Info("roster imported", "partners", len(partners))
	return len(partners), nil
}

// ImportFile is Import for a path on disk.
func ImportFile(path string, dst Upserter, logger *slog.Logger) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	return Import(f, dst, logger)
}
