// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import "testing"

func TestChatClientOfflineWhenUnconfigured(t *testing.T) {
	t.Setenv("TRACEGEN_API_KEY", "")
	t.Setenv("TRACEGEN_API_BASE", "")
	if c := chatClient(); c != nil {
		t.Errorf("chatClient() = %v, want nil offline client", c)
	}
}

// A base URL without a key is a misconfiguration; the command still runs,
// just offline.
func TestChatClientOfflineWhenKeyMissing(t *testing.T) {
	t.Setenv("TRACEGEN_API_KEY", "")
	t.Setenv("TRACEGEN_API_BASE", "http://localhost:8000")
	if c := chatClient(); c != nil {
		t.Errorf("chatClient() = %v, want nil on incomplete config", c)
	}
}

func TestChatClientConfigured(t *testing.T) {
	t.Setenv("TRACEGEN_API_KEY", "test-key")
	t.Setenv("TRACEGEN_API_BASE", "http://localhost:8000")
	if c := chatClient(); c == nil {
		t.Error("chatClient() = nil, want configured client")
	}
}
