// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package catalog

import (
	_ "embed"
	"log/slog"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// Default returns the built-in network-diagnostics catalog.
//
// Description:
//
//	The embedded catalog covers the standard query and execute tools used
//	for trace generation when the operator supplies no tool file. The
//	embedded document is validated at build time by the tests, so a parse
//	failure here means a broken binary; we fail loudly rather than limp.
func Default() *Catalog {
	c, err := LoadYAML(defaultCatalogYAML)
	if err != nil {
		slog.Error("embedded default catalog failed to parse", slog.Any("error", err))
		panic("catalog: embedded default_catalog.yaml is invalid: " + err.Error())
	}
	return c
}
