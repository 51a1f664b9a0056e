// Package catalog holds the club's static reference data (team and featured
// projects), versioned and embedded into the binary.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"club-site/internal/domain"
)

// SupportedVersion is the only catalog document version this build reads.
const SupportedVersion = 1

//go:embed catalog.yaml
var embedded []byte

// Catalog is the reference data served read-only to the site.
type Catalog struct {
	Version  int                 `yaml:"version"`
	Team     []domain.TeamMember `yaml:"team"`
	Projects []domain.Project    `yaml:"projects"`
}

// Default parses the embedded catalog.
func Default() (Catalog, error) {
	return Parse(embedded)
}

// Parse decodes and validates a catalog document.
func Parse(raw []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Catalog{}, fmt.Errorf("catalog: decode: %w", err)
	}
	if c.Version != SupportedVersion {
		return Catalog{}, fmt.Errorf("catalog: unsupported version %d", c.Version)
	}
	if err := validate(c); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

func validate(c Catalog) error {
	if len(c.Team) == 0 {
		return errors.New("catalog: team must not be empty")
	}
	if len(c.Projects) == 0 {
		return errors.New("catalog: projects must not be empty")
	}
	seen := make(map[string]bool)
	for _, m := range c.Team {
		if m.ID == "" || m.Name == "" {
			return errors.New("catalog: team member id and name are required")
		}
		if seen["team/"+m.ID] {
			return fmt.Errorf("catalog: duplicate team member %q", m.ID)
		}
		seen["team/"+m.ID] = true
	}
	for _, p := range c.Projects {
		if p.ID == "" || p.Title == "" {
			return errors.New("catalog: project id and title are required")
		}
		if seen["project/"+p.ID] {
			return fmt.Errorf("catalog: duplicate project %q", p.ID)
		}
		seen["project/"+p.ID] = true
	}
	return nil
}
