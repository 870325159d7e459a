// Package schema loads YAML console definitions, validates them, and provides
// a fast-lookup registry with atomic pointer swap.
package schema

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pitabwire/curator/model"
	"gopkg.in/yaml.v3"
)

// Loader scans directories for YAML console definition files, parses them, and
// computes SHA-256 checksums.
type Loader struct{}

// NewLoader creates a new console definition Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadAll recursively scans directories for *.yaml and *.yml files and parses
// each into a ConsoleDefinition.
func (l *Loader) LoadAll(directories []string) ([]model.ConsoleDefinition, error) {
	var defs []model.ConsoleDefinition

	for _, dir := range directories {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if ext != ".yaml" && ext != ".yml" {
				return nil
			}

			def, err := l.LoadFile(path)
			if err != nil {
				return fmt.Errorf("loading %s: %w", path, err)
			}
			defs = append(defs, def)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning directory %s: %w", dir, err)
		}
	}

	return defs, nil
}

// LoadFile loads and parses a single YAML console definition file. It computes
// the SHA-256 checksum and records the source file path.
func (l *Loader) LoadFile(path string) (model.ConsoleDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ConsoleDefinition{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var def model.ConsoleDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return model.ConsoleDefinition{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	checksum := fmt.Sprintf("%x", sha256.Sum256(data))
	def.Checksum = checksum
	def.SourceFile = path

	return def, nil
}
