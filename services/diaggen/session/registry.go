// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"sort"
	"strings"

	"github.com/AleutianAI/tracegen/services/diaggen/kv"
)

// EntityType classifies discovered domain identifiers.
type EntityType string

const (
	EntityDevice    EntityType = "device"
	EntityInterface EntityType = "interface"
	EntityIP        EntityType = "ip"
)

// entityKeyMap maps observation/argument field names onto entity types.
// Both Chinese and English field names appear in upstream payloads.
var entityKeyMap = map[string]EntityType{
	"设备":             EntityDevice,
	"device":         EntityDevice,
	"device_name":    EntityDevice,
	"接口":             EntityInterface,
	"interface":      EntityInterface,
	"interface_name": EntityInterface,
	"IP":             EntityIP,
	"ip":             EntityIP,
	"IP地址":           EntityIP,
	"ip_address":     EntityIP,
}

// EntityRegistry accumulates discovered entities per type. Sets grow
// monotonically within a session and never contain duplicates or empty
// strings.
type EntityRegistry struct {
	byType map[EntityType]map[string]bool
}

// NewEntityRegistry returns an empty registry.
func NewEntityRegistry() *EntityRegistry {
	return &EntityRegistry{byType: make(map[EntityType]map[string]bool)}
}

// Add unions ids into the set for typ, skipping empty strings.
func (r *EntityRegistry) Add(typ EntityType, ids ...string) {
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		set, ok := r.byType[typ]
		if !ok {
			set = make(map[string]bool)
			r.byType[typ] = set
		}
		set[id] = true
	}
}

// Get returns the known identifiers for typ, sorted for determinism.
func (r *EntityRegistry) Get(typ EntityType) []string {
	set := r.byType[typ]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Count returns how many identifiers are known for typ.
func (r *EntityRegistry) Count(typ EntityType) int { return len(r.byType[typ]) }

// Has reports whether id is a known identifier of typ.
func (r *EntityRegistry) Has(typ EntityType, id string) bool {
	return r.byType[typ][id]
}

// All returns a snapshot of the registry as sorted slices per type.
func (r *EntityRegistry) All() map[EntityType][]string {
	out := make(map[EntityType][]string, len(r.byType))
	for typ := range r.byType {
		out[typ] = r.Get(typ)
	}
	return out
}

// AbsorbObservation extracts entities from an observation (a map or list of
// maps) and unions them into the registry.
func (r *EntityRegistry) AbsorbObservation(obs any) {
	for _, m := range kv.Maps(obs) {
		r.AbsorbMap(m)
	}
}

// AbsorbMap extracts entities from a single flat map, descending one level
// into nested maps and lists.
func (r *EntityRegistry) AbsorbMap(m kv.Map) {
	for key, v := range m {
		typ, mapped := lookupEntityKey(key)
		if mapped {
			if s := m.String(key); s != "" {
				r.Add(typ, normalizeEntity(typ, s))
			}
			continue
		}
		switch t := v.(type) {
		case kv.Map:
			r.AbsorbMap(t)
		case map[string]any:
			r.AbsorbMap(kv.Map(t))
		case []kv.Map:
			for _, e := range t {
				r.AbsorbMap(e)
			}
		case []map[string]any:
			for _, e := range t {
				r.AbsorbMap(kv.Map(e))
			}
		case []any:
			for _, e := range t {
				for _, em := range kv.Maps(e) {
					r.AbsorbMap(em)
				}
			}
		}
	}
}

// EntityTypeForKey reports the entity type an argument key binds to, if any.
func EntityTypeForKey(key string) (EntityType, bool) {
	return lookupEntityKey(key)
}

func lookupEntityKey(key string) (EntityType, bool) {
	if typ, ok := entityKeyMap[key]; ok {
		return typ, true
	}
	typ, ok := entityKeyMap[strings.ToLower(key)]
	return typ, ok
}

// normalizeEntity strips a CIDR-style mask suffix from IP identifiers.
func normalizeEntity(typ EntityType, id string) string {
	if typ == EntityIP {
		if i := strings.Index(id, "/"); i > 0 {
			return id[:i]
		}
	}
	return id
}
