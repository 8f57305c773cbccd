// Package profile loads optional company profiles from YAML files. A
// missing profile is not an error; research falls back to subject-name-only
// queries.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mikeboe/company-researcher/pkg/research"
)

// Load reads a single profile file. Returns (nil, nil) when the file does
// not exist.
func Load(path string) (*research.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	var p research.Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return &p, nil
}

// LoadDir reads every *.yaml/*.yml file in dir into a map keyed by the
// profile name (falling back to the file name without extension).
func LoadDir(dir string) (map[string]*research.Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*research.Profile{}, nil
		}
		return nil, fmt.Errorf("failed to read profile dir %s: %w", dir, err)
	}

	profiles := make(map[string]*research.Profile)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		p, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		name := p.Name
		if name == "" {
			name = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		}
		profiles[strings.ToLower(name)] = p
	}
	return profiles, nil
}

// ForSubject finds a profile by subject name, case-insensitively.
func ForSubject(profiles map[string]*research.Profile, subject string) *research.Profile {
	return profiles[strings.ToLower(subject)]
}
