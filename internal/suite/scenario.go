package suite

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is one parsed scenario file.
type Document struct {
	// Name identifies the scenario in reports.
	Name string `yaml:"name"`

	// Description explains what the scenario checks.
	Description string `yaml:"description,omitempty"`

	// Tags are exposed to actions through the scenario context.
	Tags []string `yaml:"tags,omitempty"`

	// Dialect overrides the run's dialect for this file (BCP 47 code).
	Dialect string `yaml:"dialect,omitempty"`

	// Steps run in order.
	Steps []StepSpec `yaml:"steps"`

	// Path is the file the document was loaded from ("" if parsed from memory).
	Path string `yaml:"-"`
}

// StepSpec describes one step.
type StepSpec struct {
	// Text is the human-readable step, starting with a dialect keyword.
	Text string `yaml:"text"`

	// Run is a shell command executed with sh -c.
	Run string `yaml:"run,omitempty"`

	// Pending marks the step as intentionally not implemented yet.
	Pending bool `yaml:"pending,omitempty"`
}

// Dir returns the directory shell steps run in.
func (d *Document) Dir() string {
	if d.Path == "" {
		return ""
	}
	return filepath.Dir(d.Path)
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	doc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// ParseScenario parses a scenario document.
func ParseScenario(data []byte) (*Document, error) {
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse YAML: empty document")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateDocument(&doc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &doc, nil
}

// validateDocument checks that required fields are present and valid.
// Dialect keywords are checked later, when the dialect is known.
func validateDocument(d *Document) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("name is required")
	}

	for i, step := range d.Steps {
		if strings.TrimSpace(step.Text) == "" {
			return fmt.Errorf("steps[%d]: text is required", i)
		}
		if step.Run != "" && step.Pending {
			return fmt.Errorf("steps[%d]: run and pending are mutually exclusive", i)
		}
	}
	return nil
}

// FindScenarioFiles finds all YAML scenario files under dir, sorted.
// A non-empty filter is a filepath.Match pattern applied to the base name
// without extension.
func FindScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			// golden/ holds fixtures, not scenarios
			if path != dir && entry.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// LoadDir loads every scenario file under dir matching filter.
// All load errors are reported together.
func LoadDir(dir, filter string) ([]*Document, error) {
	files, err := FindScenarioFiles(dir, filter)
	if err != nil {
		return nil, err
	}

	var docs []*Document
	var errs []error
	for _, f := range files {
		doc, err := LoadScenario(f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, errors.Join(errs...)
}
