package rating

import (
	"fmt"
	"strings"
)

// Window identifies an independent rating track. Every player carries one
// skill estimate per window and models update each window on its own.
type Window uint8

// Known windows.
const (
	Overall Window = iota
	Monthly
	Yearly

	windowCount
)

var windowNames = [windowCount]string{
	Overall: "overall",
	Monthly: "monthly",
	Yearly:  "yearly",
}

// Windows returns every known window in declaration order.
func Windows() []Window {
	out := make([]Window, 0, windowCount)
	for w := Overall; w < windowCount; w++ {
		out = append(out, w)
	}
	return out
}

// Valid reports whether w is a known window.
func (w Window) Valid() bool { return w < windowCount }

func (w Window) String() string {
	if !w.Valid() {
		return fmt.Sprintf("window(%d)", uint8(w))
	}
	return windowNames[w]
}

// ParseWindow maps a name (case-insensitive) to a Window. An empty name
// selects Overall.
func ParseWindow(s string) (Window, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return Overall, nil
	}
	for w, n := range windowNames {
		if n == name {
			return Window(w), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownWindow, s)
}

// WindowSet stores one Skill per window.
type WindowSet [windowCount]Skill

// Seed returns a set with s in every window.
func Seed(s Skill) WindowSet {
	var set WindowSet
	for i := range set {
		set[i] = s
	}
	return set
}

// Get returns the skill held for w.
func (ws WindowSet) Get(w Window) Skill { return ws[w] }

// With returns a copy of ws with w replaced by s.
func (ws WindowSet) With(w Window, s Skill) WindowSet {
	ws[w] = s
	return ws
}
