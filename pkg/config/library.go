// Package config loads the shared workflow library definition from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidLibrary indicates a library file that cannot be seeded.
var ErrInvalidLibrary = errors.New("invalid library file")

// LibraryFile represents the structure of the library.yaml file.
type LibraryFile struct {
	Workflows []LibraryWorkflow `yaml:"workflows"`
}

// LibraryWorkflow is one library workflow. Edges wire actions by their ref.
type LibraryWorkflow struct {
	Title       string          `yaml:"title"`
	Description string          `yaml:"description"`
	IconURL     string          `yaml:"icon_url"`
	Actions     []LibraryAction `yaml:"actions"`
	Edges       []LibraryEdge   `yaml:"edges"`
}

// LibraryAction is an action of a library workflow. Ref names it within the file only.
type LibraryAction struct {
	Ref         string         `yaml:"ref"`
	Type        string         `yaml:"type"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Inputs      map[string]any `yaml:"inputs"`
}

// LibraryEdge connects the output of action Source to action Target.
type LibraryEdge struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// LoadLibrary reads and checks a library file.
func LoadLibrary(filepath string) (*LibraryFile, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read library file %s: %w", filepath, err)
	}

	return ParseLibrary(data)
}

// ParseLibrary decodes a library file and checks that titles are set, refs are unique
// and every edge names known refs.
func ParseLibrary(data []byte) (*LibraryFile, error) {
	var library LibraryFile
	if err := yaml.Unmarshal(data, &library); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %w", ErrInvalidLibrary, err)
	}

	for i, workflow := range library.Workflows {
		if workflow.Title == "" {
			return nil, fmt.Errorf("%w: workflow %d has no title", ErrInvalidLibrary, i)
		}

		refs := make(map[string]struct{}, len(workflow.Actions))

		for _, action := range workflow.Actions {
			if action.Ref == "" || action.Title == "" {
				return nil, fmt.Errorf("%w: workflow %q has an action without ref or title", ErrInvalidLibrary, workflow.Title)
			}

			if _, dup := refs[action.Ref]; dup {
				return nil, fmt.Errorf("%w: workflow %q repeats action ref %q", ErrInvalidLibrary, workflow.Title, action.Ref)
			}

			refs[action.Ref] = struct{}{}
		}

		for _, edge := range workflow.Edges {
			for _, ref := range []string{edge.Source, edge.Target} {
				if _, ok := refs[ref]; !ok {
					return nil, fmt.Errorf("%w: workflow %q edge names unknown action %q", ErrInvalidLibrary, workflow.Title, ref)
				}
			}
		}
	}

	return &library, nil
}
