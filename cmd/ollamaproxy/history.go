package main

import "strings"

// maxHistory bounds the per-session input history.
const maxHistory = 1000

// history keeps the most recent non-blank input lines, oldest first.
type history struct {
	entries []string
	max     int
}

func newHistory(max int) *history { return &history{max: max} }

// Add records line unless it is blank. The oldest entry is dropped once the
// bound is reached.
func (h *history) Add(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	if len(h.entries) == h.max {
		copy(h.entries, h.entries[1:])
		h.entries[len(h.entries)-1] = line
		return
	}
	h.entries = append(h.entries, line)
}

func (h *history) Len() int { return len(h.entries) }

// Entries returns a copy of the stored lines, oldest first.
func (h *history) Entries() []string { return append([]string(nil), h.entries...) }
