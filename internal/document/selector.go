package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
)

// Selector is a compiled CSS selector group such as "h1, h2, p",
// "#merge-main" or "div.merge-box > button[type=submit]".
type Selector struct {
	src string
	m   cascadia.Selector
}

// ParseSelector compiles a CSS selector group.
func ParseSelector(s string) (Selector, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Selector{}, errors.New("empty selector")
	}
	m, err := cascadia.Compile(s)
	if err != nil {
		return Selector{}, fmt.Errorf("invalid selector %q: %w", s, err)
	}
	return Selector{src: s, m: m}, nil
}

// MustSelector is like ParseSelector but panics on error. Use for constants.
func MustSelector(s string) Selector {
	sel, err := ParseSelector(s)
	if err != nil {
		panic(err)
	}
	return sel
}

// Empty reports whether the selector was never compiled. It matches nothing.
func (s Selector) Empty() bool {
	return s.m == nil
}

// Match reports whether n is an element matched by the selector.
func (s Selector) Match(n *Node) bool {
	if s.m == nil || n == nil || n.Type != ElementNode {
		return false
	}
	return s.m.Match(n.HTML())
}

func (s Selector) String() string {
	return s.src
}
