// Package manifest holds the static documents the core is driven by: the
// aggregated plugin manifest, the interaction and topics manifests, and the
// per-directory sequence catalog indexes.
package manifest

// Well-known document paths relative to the artifacts root.
const (
	PluginManifestPath      = "plugins/plugin-manifest.json"
	InteractionManifestPath = "interaction-manifest.json"
	TopicsManifestPath      = "topics-manifest.json"
	SequencesDir            = "json-sequences"
	CatalogIndexFile        = "index.json"
)

// Route is a forwarding target reached through conductor.Play.
type Route struct {
	PluginID   string `json:"pluginId" yaml:"pluginId" validate:"required"`
	SequenceID string `json:"sequenceId" yaml:"sequenceId" validate:"required"`
}

// UIDescriptor points at a plugin's UI module.
type UIDescriptor struct {
	Slot   string `json:"slot" yaml:"slot"`
	Module string `json:"module" yaml:"module"`
	Export string `json:"export" yaml:"export"`
}

// RuntimeDescriptor points at a plugin's runtime registration export.
type RuntimeDescriptor struct {
	Module string `json:"module" yaml:"module" validate:"required"`
	Export string `json:"export" yaml:"export" validate:"required"`
}

// PluginEntry is one plugin in the aggregated manifest.
type PluginEntry struct {
	ID      string             `json:"id" yaml:"id" validate:"required"`
	UI      *UIDescriptor      `json:"ui,omitempty" yaml:"ui,omitempty"`
	Runtime *RuntimeDescriptor `json:"runtime,omitempty" yaml:"runtime,omitempty"`
}

// PluginManifest is the aggregated plugin manifest.
type PluginManifest struct {
	Plugins []PluginEntry `json:"plugins" yaml:"plugins"`
}

// InteractionManifest maps interaction keys to routes.
type InteractionManifest struct {
	Routes map[string]Route `json:"routes" yaml:"routes"`
}

// Visibility of a topic.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityInternal Visibility = "internal"
)

// Perf is a topic's delivery policy. Zero values mean "not set".
type Perf struct {
	ThrottleMs     int `json:"throttleMs,omitempty" yaml:"throttleMs,omitempty"`
	DebounceMs     int `json:"debounceMs,omitempty" yaml:"debounceMs,omitempty"`
	DedupeWindowMs int `json:"dedupeWindowMs,omitempty" yaml:"dedupeWindowMs,omitempty"`
}

// TopicDef declares a topic's routes and delivery policy.
type TopicDef struct {
	Routes          []Route    `json:"routes" yaml:"routes" validate:"dive"`
	PayloadSchema   *Schema    `json:"payloadSchema,omitempty" yaml:"payloadSchema,omitempty"`
	Visibility      Visibility `json:"visibility" yaml:"visibility"`
	CorrelationKeys []string   `json:"correlationKeys,omitempty" yaml:"correlationKeys,omitempty"`
	Perf            Perf       `json:"perf" yaml:"perf"`
	Notes           string     `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// TopicsManifest maps topic names to definitions.
type TopicsManifest struct {
	Topics map[string]TopicDef `json:"topics" yaml:"topics"`
}

// CatalogEntry is one line of a plugin directory's index.json.
type CatalogEntry struct {
	File         string `json:"file" yaml:"file" validate:"required"`
	HandlersPath string `json:"handlersPath" yaml:"handlersPath"`
}

// CatalogIndex is a plugin directory's index.json.
type CatalogIndex struct {
	Sequences []CatalogEntry `json:"sequences" yaml:"sequences"`
}
