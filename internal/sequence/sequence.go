// Package sequence defines the mountable sequence documents that plugins ship in
// their JSON catalogs, together with the handler table a sequence is mounted with.
package sequence

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

// Sequence is one orchestrated multi-step plugin interaction.
type Sequence struct {
	PluginID  string     `json:"pluginId" yaml:"pluginId" validate:"required"`
	ID        string     `json:"id" yaml:"id" validate:"required"`
	Name      string     `json:"name" yaml:"name"`
	Movements []Movement `json:"movements" yaml:"movements" validate:"dive"`
}

// Movement groups an ordered list of beats.
type Movement struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Beats []Beat `json:"beats" yaml:"beats" validate:"dive"`
}

// Beat maps an event name to one handler invocation.
type Beat struct {
	Beat     int    `json:"beat" yaml:"beat"`
	Event    string `json:"event" yaml:"event" validate:"required"`
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	Dynamics string `json:"dynamics,omitempty" yaml:"dynamics,omitempty"`
	Handler  string `json:"handler" yaml:"handler" validate:"required"`
	Timing   string `json:"timing,omitempty" yaml:"timing,omitempty"`
	Kind     string `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// Handler is a single beat handler exported by a handler module.
type Handler func(ctx context.Context, data map[string]any) (any, error)

// Handlers is the `handlers` export of a handler module, keyed by handler name.
type Handlers map[string]Handler

// Names returns the handler names in sorted order.
func (h Handlers) Names() []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var validate = validator.New()

// Decode parses a sequence document and checks the fields the conductor relies on.
func Decode(data []byte) (*Sequence, error) {
	var seq Sequence
	if err := json.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("decode sequence: %w", err)
	}
	if err := validate.Struct(&seq); err != nil {
		return nil, fmt.Errorf("invalid sequence %q: %w", seq.ID, err)
	}
	return &seq, nil
}

// HandlerNames returns every distinct handler referenced by the sequence's beats.
func (s *Sequence) HandlerNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, m := range s.Movements {
		for _, b := range m.Beats {
			if _, ok := seen[b.Handler]; ok {
				continue
			}
			seen[b.Handler] = struct{}{}
			names = append(names, b.Handler)
		}
	}
	return names
}

// BeatCount returns the total number of beats across all movements.
func (s *Sequence) BeatCount() int {
	n := 0
	for _, m := range s.Movements {
		n += len(m.Beats)
	}
	return n
}
