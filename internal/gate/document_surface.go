package gate

import (
	"context"
	"fmt"

	"github.com/cexll/checklist-gate/internal/document"
)

const (
	DefaultControlSelector = ".merge-box-button"
	DefaultMenuSelector    = ".select-menu-item"

	tooltipClass = "pr-checklist-tooltip"
)

var (
	tooltipSel = document.MustSelector("." + tooltipClass)
	bodySel    = document.MustSelector("body")
)

// DocumentSurface finds merge controls in a document tree. Buttons match the
// control selector; associated menu items match the menu selector and follow
// the buttons' state. Hover handlers are attached at most once per button and
// released by Close.
type DocumentSurface struct {
	doc      *document.Node
	controls document.Selector
	menu     document.Selector
	subs     map[*document.Node]*subscription
}

type subscription struct {
	onEnter func()
	onLeave func()
}

// NewDocumentSurface builds a surface over doc. An empty menuSelector
// disables menu item handling.
func NewDocumentSurface(doc *document.Node, controlSelector, menuSelector string) (*DocumentSurface, error) {
	controls, err := document.ParseSelector(controlSelector)
	if err != nil {
		return nil, fmt.Errorf("control selector: %w", err)
	}
	s := &DocumentSurface{
		doc:      doc,
		controls: controls,
		subs:     map[*document.Node]*subscription{},
	}
	if menuSelector != "" {
		if s.menu, err = document.ParseSelector(menuSelector); err != nil {
			return nil, fmt.Errorf("menu selector: %w", err)
		}
	}
	return s, nil
}

// Controls returns the buttons followed by the menu items. Without buttons
// there is nothing to gate and menu items are left alone.
func (s *DocumentSurface) Controls(ctx context.Context) ([]Control, error) {
	buttons := s.doc.QueryAll(s.controls)
	if len(buttons) == 0 {
		return nil, nil
	}
	out := make([]Control, 0, len(buttons))
	for i, n := range buttons {
		out = append(out, &elementControl{surface: s, node: n, id: anchorID(n, "merge", i), hoverable: true})
	}
	if !s.menu.Empty() {
		for i, n := range s.doc.QueryAll(s.menu) {
			out = append(out, &elementControl{surface: s, node: n, id: anchorID(n, "menu", i)})
		}
	}
	return out, nil
}

func (s *DocumentSurface) Hint() Hint {
	return documentHint{surface: s}
}

// PointerEnter dispatches a pointer-enter notification for a control node.
func (s *DocumentSurface) PointerEnter(n *document.Node) {
	if sub, ok := s.subs[n]; ok {
		sub.onEnter()
	}
}

// PointerLeave dispatches a pointer-leave notification for a control node.
func (s *DocumentSurface) PointerLeave(n *document.Node) {
	if sub, ok := s.subs[n]; ok {
		sub.onLeave()
	}
}

// Subscriptions reports how many hover handlers are attached.
func (s *DocumentSurface) Subscriptions() int {
	return len(s.subs)
}

// Close releases every hover handler.
func (s *DocumentSurface) Close() {
	s.subs = map[*document.Node]*subscription{}
}

// Tooltip returns the shared hint element, or nil.
func (s *DocumentSurface) Tooltip() *document.Node {
	return s.doc.Query(tooltipSel)
}

func (s *DocumentSurface) subscribe(n *document.Node, anchor string) {
	if _, ok := s.subs[n]; ok {
		return
	}
	s.subs[n] = &subscription{
		onEnter: func() {
			tip := s.Tooltip()
			if tip == nil {
				return
			}
			tip.SetAttr("style", "display: block")
			tip.SetAttr("data-anchor", anchor)
		},
		onLeave: func() {
			if tip := s.Tooltip(); tip != nil {
				tip.SetAttr("style", "display: none")
			}
		},
	}
}

func (s *DocumentSurface) body() *document.Node {
	if s.doc.Matches(bodySel) {
		return s.doc
	}
	if b := s.doc.Query(bodySel); b != nil {
		return b
	}
	return s.doc
}

type elementControl struct {
	surface   *DocumentSurface
	node      *document.Node
	id        string
	hoverable bool
}

func (c *elementControl) ID() string { return c.id }

func (c *elementControl) SetEnabled(ctx context.Context, enabled bool, hint string) error {
	if enabled {
		c.node.RemoveAttr("disabled")
		c.node.SetAttr("style", "cursor: pointer; opacity: 1")
		return nil
	}
	c.node.SetAttr("disabled", "true")
	c.node.SetAttr("style", "cursor: not-allowed; opacity: 0.6")
	if c.hoverable {
		c.surface.subscribe(c.node, c.id)
	}
	return nil
}

type documentHint struct {
	surface *DocumentSurface
}

func (h documentHint) Show(ctx context.Context, message string) error {
	tip := h.surface.Tooltip()
	if tip == nil {
		tip = document.NewElement("div", tooltipClass)
		tip.SetAttr("style", "display: none")
		h.surface.body().AppendChild(tip)
	}
	tip.SetText(message)
	return nil
}

func (h documentHint) Remove(ctx context.Context) error {
	if tip := h.surface.Tooltip(); tip != nil {
		tip.Remove()
	}
	return nil
}

func anchorID(n *document.Node, prefix string, i int) string {
	if id, ok := n.AttrValue("id"); ok && id != "" {
		return id
	}
	return fmt.Sprintf("%s-%d", prefix, i)
}
