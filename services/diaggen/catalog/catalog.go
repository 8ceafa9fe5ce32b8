// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package catalog holds the set of valid diagnostic actions and their
// optional parameter schemas. Entries are immutable once loaded.
package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Entry describes one diagnostic action.
type Entry struct {
	// Name is the exact action name the planner must emit.
	Name string `yaml:"name"`

	// Description is free text shown to the candidate-generation model.
	Description string `yaml:"description"`

	// Parameters is the raw parameter schema string, if any. It is passed
	// to the model verbatim rather than parsed; the planner only repairs
	// argument values, never argument shapes.
	Parameters string `yaml:"parameters,omitempty"`
}

// Catalog is an immutable set of diagnostic actions.
//
// Description:
//
//	Loaded once from a YAML or numbered-text tool list, then shared by all
//	sessions. The pseudo-actions "finish_diagnosis" and "finish" are always
//	treated as valid so a model signalling completion is never punished as
//	a hallucination.
//
// Thread Safety: Immutable after construction; safe for concurrent use.
type Catalog struct {
	entries []Entry
	byName  map[string]int
}

// terminalActions are always valid even when absent from the loaded list.
var terminalActions = map[string]bool{
	"finish_diagnosis": true,
	"finish":           true,
}

// IsTerminal reports whether name is a run-ending pseudo-action.
func IsTerminal(name string) bool { return terminalActions[name] }

// New builds a catalog from entries, dropping duplicates and empty names.
//
// Outputs:
//   - *Catalog: The constructed catalog. Never nil.
func New(entries []Entry) *Catalog {
	c := &Catalog{byName: make(map[string]int, len(entries))}
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		if _, dup := c.byName[name]; dup {
			slog.Warn("duplicate catalog entry ignored", slog.String("name", name))
			continue
		}
		e.Name = name
		c.byName[name] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c
}

// LoadYAML loads a catalog from a YAML document of the form
// `tools: [{name, description, parameters}]`.
//
// Inputs:
//   - data: Raw YAML bytes.
//
// Outputs:
//   - *Catalog: The loaded catalog.
//   - error: Non-nil on YAML errors or an empty tool list.
func LoadYAML(data []byte) (*Catalog, error) {
	var doc struct {
		Tools []Entry `yaml:"tools"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	c := New(doc.Tools)
	if c.Len() == 0 {
		return nil, fmt.Errorf("catalog YAML contained no tools")
	}
	return c, nil
}

// LoadFile loads a catalog from a file path. Files ending in .yaml/.yml are
// parsed as YAML; anything else is parsed as the numbered-text tool list.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return LoadYAML(data)
	}
	c := ParseText(string(data))
	if c.Len() == 0 {
		return nil, fmt.Errorf("catalog file %s contained no tools", path)
	}
	slog.Info("catalog loaded",
		slog.String("path", path),
		slog.Int("tools", c.Len()),
	)
	return c, nil
}

// ParseText parses the numbered-text tool list format:
//
//	1.query_interface_info
//	Queries basic interface state for one interface.
//	Parameters: device_name, interface_name
//
// Header lines start with a digit followed by a dot. Following lines up to
// the next header are the description, except "Parameters:" lines which
// carry the raw schema string.
func ParseText(text string) *Catalog {
	var (
		entries []Entry
		current *Entry
		desc    []string
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Description = strings.TrimSpace(strings.Join(desc, " "))
		entries = append(entries, *current)
		current = nil
		desc = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case isHeaderLine(line):
			flush()
			_, name, _ := strings.Cut(line, ".")
			current = &Entry{Name: strings.TrimSpace(name)}
		case strings.HasPrefix(line, "Parameters:"):
			if current != nil {
				current.Parameters = strings.TrimSpace(strings.TrimPrefix(line, "Parameters:"))
			}
		default:
			if current != nil {
				desc = append(desc, line)
			}
		}
	}
	flush()

	return New(entries)
}

// isHeaderLine reports whether line looks like "N.tool_name".
func isHeaderLine(line string) bool {
	if line == "" || !unicode.IsDigit(rune(line[0])) {
		return false
	}
	return strings.Contains(line, ".")
}

// Len returns the number of loaded entries.
func (c *Catalog) Len() int { return len(c.entries) }

// Exists reports whether name is a valid action. Terminal pseudo-actions
// are always valid.
func (c *Catalog) Exists(name string) bool {
	if terminalActions[name] {
		return true
	}
	_, ok := c.byName[name]
	return ok
}

// Schema returns the raw parameter schema string for name.
//
// Outputs:
//   - string: The schema string, empty when the tool declares none.
//   - bool: False when the tool is unknown.
func (c *Catalog) Schema(name string) (string, bool) {
	i, ok := c.byName[name]
	if !ok {
		return "", false
	}
	return c.entries[i].Parameters, true
}

// Description returns the description for name, empty when unknown.
func (c *Catalog) Description(name string) string {
	i, ok := c.byName[name]
	if !ok {
		return ""
	}
	return c.entries[i].Description
}

// Names returns all action names in load order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Name
	}
	return names
}

// Entries returns a copy of all entries in load order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// PromptNameList renders the exact-name list for the strict fallback prompt.
func (c *Catalog) PromptNameList() string {
	var sb strings.Builder
	for _, e := range c.entries {
		sb.WriteString("  - ")
		sb.WriteString(e.Name)
		sb.WriteString("\n")
	}
	return sb.String()
}

// PromptDetail renders the numbered tool list with descriptions and raw
// parameter strings, for the candidate-generation prompt.
func (c *Catalog) PromptDetail() string {
	var sb strings.Builder
	for i, e := range c.entries {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, e.Name)
		if e.Description != "" {
			fmt.Fprintf(&sb, "   Description: %s\n", e.Description)
		}
		if e.Parameters != "" {
			fmt.Fprintf(&sb, "   Parameters: %s\n", e.Parameters)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Search returns entries whose name or description contains keyword
// (case-insensitive), in load order.
func (c *Catalog) Search(keyword string) []Entry {
	kw := strings.ToLower(keyword)
	var out []Entry
	for _, e := range c.entries {
		if strings.Contains(strings.ToLower(e.Name), kw) ||
			strings.Contains(strings.ToLower(e.Description), kw) {
			out = append(out, e)
		}
	}
	return out
}

// Suggest returns up to topN action names scored against a task description.
//
// Description:
//
//	Keyword hits on the name score higher than hits on the description.
//	When nothing matches, a fixed set of general query tools (filtered to
//	those present in the catalog) is returned so callers always get a
//	usable suggestion.
func (c *Catalog) Suggest(task string, topN int) []string {
	if topN <= 0 {
		topN = 5
	}
	task = strings.ToLower(task)
	words := strings.Fields(task)

	scores := make(map[string]int)
	for _, e := range c.entries {
		name := strings.ToLower(e.Name)
		desc := strings.ToLower(e.Description)
		for _, w := range words {
			if len(w) < 2 {
				continue
			}
			if strings.Contains(name, w) {
				scores[e.Name] += 5
			}
			if strings.Contains(desc, w) {
				scores[e.Name] += 3
			}
		}
	}

	if len(scores) == 0 {
		defaults := []string{
			"query_interface_info",
			"query_device_logs",
			"query_interface_traffic",
			"query_interface_error_statistics",
		}
		var out []string
		for _, name := range defaults {
			if c.Exists(name) && !terminalActions[name] {
				out = append(out, name)
			}
		}
		if len(out) > topN {
			out = out[:topN]
		}
		return out
	}

	type scored struct {
		name  string
		score int
	}
	ranked := make([]scored, 0, len(scores))
	for name, score := range scores {
		ranked = append(ranked, scored{name, score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].name < ranked[j].name
	})

	out := make([]string, 0, topN)
	for _, s := range ranked {
		out = append(out, s.name)
		if len(out) == topN {
			break
		}
	}
	return out
}
