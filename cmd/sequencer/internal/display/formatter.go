// Package display renders sequencer state as tables or JSON.
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nfrund/sequencer/internal/catalog"
	"github.com/nfrund/sequencer/internal/manifest"
	"github.com/nfrund/sequencer/internal/registration"
)

var caser = cases.Title(language.English)

// TopicRow is a topic for display purposes.
type TopicRow struct {
	Name       string `json:"name"`
	Visibility string `json:"visibility"`
	Routes     int    `json:"routes"`
	Policy     string `json:"policy"`
	Replay     bool   `json:"replay"`
	Notes      string `json:"notes,omitempty"`
}

// NewTopicRow summarizes def.
func NewTopicRow(name string, def manifest.TopicDef, replay bool) TopicRow {
	vis := string(def.Visibility)
	if vis == "" {
		vis = "-"
	}
	return TopicRow{
		Name:       name,
		Visibility: vis,
		Routes:     len(def.Routes),
		Policy:     policy(def.Perf),
		Replay:     replay,
		Notes:      def.Notes,
	}
}

func policy(p manifest.Perf) string {
	var parts []string
	if p.ThrottleMs > 0 {
		parts = append(parts, fmt.Sprintf("throttle %dms", p.ThrottleMs))
	}
	if p.DebounceMs > 0 {
		parts = append(parts, fmt.Sprintf("debounce %dms", p.DebounceMs))
	}
	if p.DedupeWindowMs > 0 {
		parts = append(parts, fmt.Sprintf("dedupe %dms", p.DedupeWindowMs))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

// Topics writes rows as a table or JSON.
func Topics(w io.Writer, rows []TopicRow, format string) error {
	switch format {
	case "json":
		return writeJSON(w, struct {
			Topics []TopicRow `json:"topics"`
			Count  int        `json:"count"`
		}{rows, len(rows)})
	case "table", "":
		tw := table(w, "name", "visibility", "routes", "policy", "replay")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%t\n", r.Name, r.Visibility, r.Routes, r.Policy, r.Replay)
		}
		return tw.Flush()
	}
	return unsupported(format)
}

// TopicDetails writes one topic.
func TopicDetails(w io.Writer, row TopicRow, def manifest.TopicDef, format string) error {
	if format == "json" {
		return writeJSON(w, struct {
			TopicRow
			Definition manifest.TopicDef `json:"definition"`
		}{row, def})
	}
	if format != "table" && format != "" {
		return unsupported(format)
	}

	fmt.Fprintf(w, "Name:        %s\n", row.Name)
	fmt.Fprintf(w, "Visibility:  %s\n", row.Visibility)
	fmt.Fprintf(w, "Policy:      %s\n", row.Policy)
	fmt.Fprintf(w, "Replay:      %t\n", row.Replay)
	if len(def.CorrelationKeys) > 0 {
		fmt.Fprintf(w, "Correlation: %s\n", strings.Join(def.CorrelationKeys, ", "))
	}
	if req := def.PayloadSchema.Required(); len(req) > 0 {
		fmt.Fprintf(w, "Required:    %s\n", strings.Join(req, ", "))
	}
	if row.Notes != "" {
		fmt.Fprintf(w, "Notes:       %s\n", row.Notes)
	}
	fmt.Fprintln(w, "Routes:")
	if len(def.Routes) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, r := range def.Routes {
		fmt.Fprintf(w, "  %s -> %s\n", r.PluginID, r.SequenceID)
	}
	return nil
}

// Routes writes interaction routes keyed by interaction.
func Routes(w io.Writer, routes map[string]manifest.Route, format string) error {
	switch format {
	case "json":
		return writeJSON(w, routes)
	case "table", "":
		keys := make([]string, 0, len(routes))
		for k := range routes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		tw := table(w, "interaction", "plugin", "sequence")
		for _, k := range keys {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", k, routes[k].PluginID, routes[k].SequenceID)
		}
		return tw.Flush()
	}
	return unsupported(format)
}

// Plugins writes manifest entries in the given order.
func Plugins(w io.Writer, entries []manifest.PluginEntry, format string) error {
	switch format {
	case "json":
		return writeJSON(w, manifest.PluginManifest{Plugins: entries})
	case "table", "":
		tw := table(w, "id", "ui module", "runtime module")
		for _, e := range entries {
			ui, rt := "-", "-"
			if e.UI != nil && e.UI.Module != "" {
				ui = e.UI.Module
			}
			if e.Runtime != nil {
				rt = e.Runtime.Module + "#" + e.Runtime.Export
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.ID, ui, rt)
		}
		return tw.Flush()
	}
	return unsupported(format)
}

type catalogJSON struct {
	Directories []string          `json:"directories"`
	Mounted     []string          `json:"mounted"`
	Skipped     []string          `json:"skipped"`
	Failed      map[string]string `json:"failed,omitempty"`
}

func toCatalogJSON(res catalog.Result) catalogJSON {
	out := catalogJSON{Directories: res.Directories, Mounted: res.Mounted, Skipped: res.Skipped}
	if len(res.Failed) > 0 {
		out.Failed = make(map[string]string, len(res.Failed))
		for k, err := range res.Failed {
			out.Failed[k] = err.Error()
		}
	}
	return out
}

// Catalog writes the outcome of a catalog load.
func Catalog(w io.Writer, res catalog.Result, format string) error {
	switch format {
	case "json":
		return writeJSON(w, toCatalogJSON(res))
	case "table", "":
		section(w, "directories", res.Directories)
		section(w, "mounted", res.Mounted)
		section(w, "skipped", res.Skipped)
		failures(w, res.Failed)
		return nil
	}
	return unsupported(format)
}

// Registration writes a registration summary and the mounted sequence ids.
func Registration(w io.Writer, sum registration.Summary, mounted []string, format string) error {
	switch format {
	case "json":
		out := struct {
			Registered []string          `json:"registered"`
			Failed     map[string]string `json:"failed,omitempty"`
			Catalog    *catalogJSON      `json:"catalog,omitempty"`
			Mounted    []string          `json:"mounted"`
		}{Registered: sum.Registered, Mounted: mounted}
		if len(sum.Failed) > 0 {
			out.Failed = map[string]string{}
			for k, err := range sum.Failed {
				out.Failed[k] = err.Error()
			}
		}
		if sum.Catalog != nil {
			c := toCatalogJSON(*sum.Catalog)
			out.Catalog = &c
		}
		return writeJSON(w, out)
	case "table", "":
		section(w, "registered plugins", sum.Registered)
		failures(w, sum.Failed)
		section(w, "mounted sequences", mounted)
		if sum.Catalog != nil {
			section(w, "catalog skipped", sum.Catalog.Skipped)
			failures(w, sum.Catalog.Failed)
		}
		return nil
	}
	return unsupported(format)
}

func section(w io.Writer, title string, items []string) {
	fmt.Fprintf(w, "%s (%d):\n", caser.String(title), len(items))
	for _, it := range items {
		fmt.Fprintf(w, "  %s\n", it)
	}
}

func failures(w io.Writer, failed map[string]error) {
	if len(failed) == 0 {
		return
	}
	keys := make([]string, 0, len(failed))
	for k := range failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "%s (%d):\n", caser.String("failed"), len(keys))
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %v\n", k, failed[k])
	}
}

func table(w io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	titles := make([]string, len(headers))
	rules := make([]string, len(headers))
	for i, h := range headers {
		titles[i] = strings.ToUpper(h)
		rules[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(titles, "\t"))
	fmt.Fprintln(tw, strings.Join(rules, "\t"))
	return tw
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func unsupported(format string) error {
	return fmt.Errorf("unsupported output format %q, use 'table' or 'json'", format)
}
