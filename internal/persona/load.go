package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a single persona definition from a YAML file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if def.PersonaID == "" {
		// Persona-identified validation errors need an id even when the
		// file forgot one; fall back to the filename.
		def.PersonaID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if err := Validate(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadDir loads every .yaml/.yml file in dir, sorted by filename. Any invalid
// definition fails the whole load; a batch never starts with a partial
// population.
func LoadDir(dir string) ([]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read persona dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no persona files in %s", dir)
	}

	defs := make([]*Definition, 0, len(paths))
	seen := make(map[string]string)
	for _, p := range paths {
		def, err := Load(p)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[def.PersonaID]; dup {
			return nil, fmt.Errorf("duplicate personaId %q in %s and %s", def.PersonaID, prev, p)
		}
		seen[def.PersonaID] = p
		defs = append(defs, def)
	}
	return defs, nil
}
