package form

import "strings"

// EntryStrategy is one way of locating the control that opens the application flow.
// Strategies return the first visible match or false.
type EntryStrategy interface {
	Name() string
	Find(snap *Snapshot) (*Element, bool)
}

// DefaultEntryStrategies returns the strategies in priority order:
// explicit label, stable attribute, then a generic text match.
func DefaultEntryStrategies() []EntryStrategy {
	return []EntryStrategy{
		LabeledEntry{Label: "Easy Apply"},
		AttributeEntry{Selector: "[data-view-name='job-apply-button']", Prefer: "Easy Apply"},
		TextEntry{Text: "Apply", Exclude: "Applied"},
	}
}

// FindEntry runs strategies in order and returns the first match with the strategy name.
func FindEntry(snap *Snapshot, strategies []EntryStrategy) (*Element, string, bool) {
	for _, st := range strategies {
		if el, ok := st.Find(snap); ok {
			return el, st.Name(), true
		}
	}
	return nil, "", false
}

// LabeledEntry matches a button or link whose text or aria-label contains Label.
type LabeledEntry struct {
	Label string
}

// Name implements EntryStrategy.
func (LabeledEntry) Name() string { return "labeled" }

// Find implements EntryStrategy.
func (e LabeledEntry) Find(snap *Snapshot) (*Element, bool) {
	for _, el := range snap.Find("button, a") {
		if el.Visible && (strings.Contains(el.Text, e.Label) || strings.Contains(el.AriaLabel, e.Label)) {
			return el, true
		}
	}
	return nil, false
}

// AttributeEntry matches a stable attribute selector. When several elements
// match, the one mentioning Prefer wins; otherwise the first visible one.
type AttributeEntry struct {
	Selector string
	Prefer   string
}

// Name implements EntryStrategy.
func (AttributeEntry) Name() string { return "attribute" }

// Find implements EntryStrategy.
func (e AttributeEntry) Find(snap *Snapshot) (*Element, bool) {
	var first *Element
	for _, el := range snap.Find(e.Selector) {
		if !el.Visible {
			continue
		}
		if e.Prefer != "" && (strings.Contains(el.Text, e.Prefer) || strings.Contains(el.AriaLabel, e.Prefer)) {
			return el, true
		}
		if first == nil {
			first = el
		}
	}
	return first, first != nil
}

// TextEntry matches a button or link containing Text but not Exclude.
// Exclude keeps "Applied" badges from being taken for an apply control.
type TextEntry struct {
	Text    string
	Exclude string
}

// Name implements EntryStrategy.
func (TextEntry) Name() string { return "text" }

// Find implements EntryStrategy.
func (e TextEntry) Find(snap *Snapshot) (*Element, bool) {
	for _, el := range snap.Find("button, a") {
		if !el.Visible || !strings.Contains(el.Text, e.Text) {
			continue
		}
		if e.Exclude != "" && strings.Contains(el.Text, e.Exclude) {
			continue
		}
		return el, true
	}
	return nil, false
}
