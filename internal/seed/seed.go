// Package seed loads the activity catalogue the roster starts from.
package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"example.com/signup/internal/domain"
)

//go:embed activities.yaml
var defaultCatalogue []byte

type document struct {
	Activities []entry `yaml:"activities"`
}

type entry struct {
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	Schedule        string   `yaml:"schedule"`
	MaxParticipants int      `yaml:"max_participants"`
	Participants    []string `yaml:"participants"`
}

// Default returns the embedded Mergington High School catalogue.
func Default() ([]domain.Activity, error) {
	return Parse(defaultCatalogue)
}

// Load reads a catalogue from path, or the embedded one when path is empty.
func Load(path string) ([]domain.Activity, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	activities, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	return activities, nil
}

// Parse decodes a YAML catalogue. Unknown fields are rejected.
func Parse(data []byte) ([]domain.Activity, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty catalogue")
		}
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}
	if len(doc.Activities) == 0 {
		return nil, errors.New("catalogue has no activities")
	}

	out := make([]domain.Activity, 0, len(doc.Activities))
	for _, e := range doc.Activities {
		if e.MaxParticipants < 0 {
			return nil, fmt.Errorf("activity %q: max_participants must be >= 0", e.Name)
		}
		participants := e.Participants
		if participants == nil {
			participants = []string{}
		}
		out = append(out, domain.Activity{
			Name:            e.Name,
			Description:     e.Description,
			Schedule:        e.Schedule,
			MaxParticipants: e.MaxParticipants,
			Participants:    participants,
		})
	}
	return out, nil
}
