// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package goal turns a user question into the structured diagnostic goal
// the planner works against.
package goal

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/AleutianAI/tracegen/services/diaggen/kv"
	"github.com/AleutianAI/tracegen/services/diaggen/session"
)

// Goal is the structured objective of one diagnostic run.
type Goal struct {
	// Description is the normalized objective statement.
	Description string

	// Entities holds identifiers named directly in the question, keyed by
	// field name (device_name, interface_name, ip). These seed the
	// session's entity registry and the planner's parameter repair.
	Entities kv.Map

	// ContextParams carries additional concrete parameters mentioned in
	// the question (VLAN ids, destinations, thresholds).
	ContextParams kv.Map

	// ProblemType is a coarse fault category (connectivity, performance,
	// errors, hardware, general) used for prompt context.
	ProblemType string

	// KeyAspects lists the concrete identifiers the diagnosis should
	// revolve around (device, interface, then address).
	KeyAspects []string
}

// Entity returns the first goal entity of the given type, or "".
func (g Goal) Entity(typ session.EntityType) string {
	for key := range g.Entities {
		if t, ok := session.EntityTypeForKey(key); ok && t == typ {
			if v := g.Entities.String(key); v != "" {
				return v
			}
		}
	}
	return ""
}

// Seed unions the goal's entities into a session registry.
func (g Goal) Seed(r *session.EntityRegistry) {
	for key := range g.Entities {
		typ, ok := session.EntityTypeForKey(key)
		if !ok {
			continue
		}
		if v := g.Entities.String(key); v != "" {
			r.Add(typ, v)
		}
	}
}

var (
	interfacePattern = regexp.MustCompile(`\b(?:GE|XGE|GigabitEthernet|Eth|Ethernet|Vlanif|Tunnel)[\d/\.:]+\b`)
	ipPattern        = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}(?:/\d{1,2})?\b`)
	devicePattern    = regexp.MustCompile(`\b(?:SW|S|R|CE|NE|AR|FW)\d+[A-Za-z0-9\-]*\b`)
)

// FromQuestion derives a goal from a raw question without any model call.
//
// Description:
//
//	Pattern-based extraction of device, interface, and IP identifiers.
//	Used directly when no chat client is configured, and as the fallback
//	when model-based extraction fails. Interfaces are matched before
//	devices so a port like GE0/0/1 is never misread as a device name.
func FromQuestion(question string) Goal {
	g := Goal{
		Description:   strings.TrimSpace(question),
		Entities:      kv.Map{},
		ContextParams: kv.Map{},
	}

	claimed := map[string]bool{}
	if m := interfacePattern.FindString(question); m != "" {
		g.Entities["interface_name"] = m
		claimed[m] = true
	}
	if m := ipPattern.FindString(question); m != "" {
		g.Entities["ip"] = strings.Split(m, "/")[0]
	}
	for _, m := range devicePattern.FindAllString(question, -1) {
		if !claimed[m] && !strings.Contains(m, "/") {
			g.Entities["device_name"] = m
			break
		}
	}

	if m := regexp.MustCompile(`(?i)vlan\s*(\d+)`).FindStringSubmatch(question); m != nil {
		g.ContextParams["vlan"] = m[1]
	}

	g.ProblemType = classifyProblem(question)
	for _, key := range []string{"device_name", "interface_name", "ip"} {
		if v := g.Entities.String(key); v != "" {
			g.KeyAspects = append(g.KeyAspects, v)
		}
	}
	return g
}

var problemKeywords = []struct {
	typ   string
	words []string
}{
	{"connectivity", []string{"unreachable", "ping", "packet loss", "丢包", "不通", "timeout", "down"}},
	{"performance", []string{"slow", "latency", "congest", "utilization", "拥塞", "缓慢", "bandwidth"}},
	{"errors", []string{"crc", "error", "drop", "错误", "flap", "告警", "alarm"}},
	{"hardware", []string{"optical", "power", "光模块", "temperature", "fan", "module"}},
}

// classifyProblem matches English keywords at word starts so "ping" never
// fires inside "dropping"; CJK markers and multiword phrases match as
// substrings.
func classifyProblem(question string) string {
	q := strings.ToLower(question)
	tokens := strings.FieldsFunc(q, func(r rune) bool {
		return !('a' <= r && r <= 'z')
	})
	for _, pk := range problemKeywords {
		for _, w := range pk.words {
			if strings.Contains(w, " ") || w[0] >= 0x80 {
				if strings.Contains(q, w) {
					return pk.typ
				}
				continue
			}
			for _, tok := range tokens {
				if strings.HasPrefix(tok, w) {
					return pk.typ
				}
			}
		}
	}
	return "general"
}

// Summary renders the goal for prompt context.
func (g Goal) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Objective: %s", g.Description)
	if g.ProblemType != "" {
		fmt.Fprintf(&sb, "\nProblem type: %s", g.ProblemType)
	}
	if len(g.KeyAspects) > 0 {
		fmt.Fprintf(&sb, "\nKey aspects: %s", strings.Join(g.KeyAspects, ", "))
	}
	if len(g.Entities) > 0 {
		fmt.Fprintf(&sb, "\nEntities: %s", g.Entities.FormatCompact())
	}
	if len(g.ContextParams) > 0 {
		fmt.Fprintf(&sb, "\nContext: %s", g.ContextParams.FormatCompact())
	}
	return sb.String()
}
