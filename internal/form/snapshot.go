// Package form inspects a rendered application step. It works on an annotated
// markup snapshot so every question about the step is answered from one
// consistent read, and element handles never outlive that read.
package form

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selectors for the in-page application flow.
const (
	modalSelector           = ".jobs-easy-apply-content, [role='dialog']"
	validationErrorSelector = ".artdeco-inline-feedback__message"
	primaryButtonClass      = "artdeco-button--primary"
	successPhrase           = "application sent"
)

// Element is one interactive element from a snapshot.
type Element struct {
	Ref       string
	Tag       string
	Type      string
	ID        string
	Text      string
	AriaLabel string
	Class     string
	Value     string
	Visible   bool
	Checked   bool
}

// Selector returns a CSS selector for the element in the live page.
// It is empty when the element carries neither a reference nor an id.
func (e *Element) Selector() string {
	switch {
	case e.Ref != "":
		return fmt.Sprintf(`[%s="%s"]`, RefAttr, e.Ref)
	case e.ID != "":
		return "#" + e.ID
	default:
		return ""
	}
}

// Label returns the lower-cased visible text, or the aria-label when the text is empty.
func (e *Element) Label() string {
	label := e.Text
	if label == "" {
		label = e.AriaLabel
	}
	return strings.ToLower(label)
}

// HasClass reports whether the element's class list contains class.
func (e *Element) HasClass(class string) bool {
	for _, c := range strings.Fields(e.Class) {
		if c == class {
			return true
		}
	}
	return false
}

// Snapshot is a parsed, read-only view of the page at one instant.
type Snapshot struct {
	doc *goquery.Document
}

// Parse parses annotated (or plain) page markup.
func Parse(markup string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, &ParseError{Message: "failed to parse page markup", Cause: err}
	}
	return &Snapshot{doc: doc}, nil
}

// Text returns the normalized text content of the whole page.
func (s *Snapshot) Text() string {
	return normalizeSpace(s.doc.Find("body").Text())
}

// HasModal reports whether the application flow is open.
func (s *Snapshot) HasModal() bool {
	found := false
	s.doc.Find(modalSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if isVisible(sel) {
			found = true
			return false
		}
		return true
	})
	return found
}

// SuccessConfirmed reports whether the page announces a sent application.
func (s *Snapshot) SuccessConfirmed() bool {
	return strings.Contains(strings.ToLower(s.Text()), successPhrase)
}

// scope returns the open step container, or the whole document when no flow is open.
func (s *Snapshot) scope() *goquery.Selection {
	var modal *goquery.Selection
	s.doc.Find(modalSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if isVisible(sel) {
			modal = sel
			return false
		}
		return true
	})
	if modal != nil {
		return modal
	}
	return s.doc.Selection
}

// Find returns every element matching selector in the whole document.
func (s *Snapshot) Find(selector string) []*Element {
	return collect(s.doc.Find(selector))
}

// FindInStep returns every element matching selector within the current step.
func (s *Snapshot) FindInStep(selector string) []*Element {
	return collect(s.scope().Find(selector))
}

// FindVisible returns the first visible element in the whole document whose
// label contains text (case-insensitive).
func (s *Snapshot) FindVisible(selector, text string) (*Element, bool) {
	text = strings.ToLower(text)
	for _, el := range s.Find(selector) {
		if el.Visible && strings.Contains(el.Label(), text) {
			return el, true
		}
	}
	return nil, false
}

func collect(sel *goquery.Selection) []*Element {
	out := make([]*Element, 0, sel.Length())
	sel.Each(func(_ int, item *goquery.Selection) {
		out = append(out, newElement(item))
	})
	return out
}

func newElement(sel *goquery.Selection) *Element {
	tag := goquery.NodeName(sel)
	el := &Element{
		Ref:       attr(sel, RefAttr),
		Tag:       tag,
		Type:      strings.ToLower(attr(sel, "type")),
		ID:        attr(sel, "id"),
		Text:      normalizeSpace(sel.Text()),
		AriaLabel: attr(sel, "aria-label"),
		Class:     attr(sel, "class"),
		Visible:   isVisible(sel),
	}

	if v, ok := sel.Attr(ValueAttr); ok {
		el.Value = v
	} else if tag == "textarea" {
		el.Value = sel.Text()
	} else if tag == "select" {
		el.Value = attr(sel.Find("option[selected]").First(), "value")
	} else {
		el.Value = attr(sel, "value")
	}

	if c, ok := sel.Attr(CheckedAttr); ok {
		el.Checked = c == "1"
	} else {
		_, el.Checked = sel.Attr("checked")
	}
	return el
}

// isVisible uses the annotated visibility when present, else static hints on the element and its ancestors.
func isVisible(sel *goquery.Selection) bool {
	if v, ok := sel.Attr(VisibleAttr); ok {
		return v == "1"
	}
	if strings.EqualFold(attr(sel, "type"), "hidden") {
		return false
	}
	for cur := sel; cur.Length() > 0; cur = cur.Parent() {
		if _, hidden := cur.Attr("hidden"); hidden {
			return false
		}
		if strings.EqualFold(attr(cur, "aria-hidden"), "true") {
			return false
		}
		style := strings.ReplaceAll(strings.ToLower(attr(cur, "style")), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
		if v, ok := cur.Attr(VisibleAttr); ok && v == "0" {
			return false
		}
	}
	return true
}

func attr(sel *goquery.Selection, name string) string {
	v, _ := sel.Attr(name)
	return v
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
