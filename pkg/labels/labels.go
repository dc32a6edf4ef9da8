// Package labels holds the classification data model and its text rendering.
package labels

import (
	"fmt"
	"strings"
)

// DisplayLimit is how many labels are shown to the user.
const DisplayLimit = 3

// Fixed display messages.
const (
	NoLabelsMessage = "No labels detected in the image."
	PendingMessage  = "Classifying image...\nPlease wait."
	Header          = "Top 3 Classification Labels:"
)

// Hints are appended to every classification error message.
var Hints = []string{
	"API Key is added",
	"Vision API is enabled",
	"Internet is connected",
}

// Label is a single detected concept. Confidence is the raw service score
// in [0,1] and is never modified after creation.
type Label struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Percent returns the confidence scaled to a percentage.
func (l Label) Percent() float64 {
	return l.Confidence * 100
}

// Outcome is the ordered result of one classification, in service order.
type Outcome struct {
	Labels []Label `json:"labels"`
}

// NewOutcome copies labels into a new Outcome.
func NewOutcome(labels []Label) *Outcome {
	out := make([]Label, len(labels))
	copy(out, labels)
	return &Outcome{Labels: out}
}

// Len returns the number of labels.
func (o *Outcome) Len() int {
	if o == nil {
		return 0
	}
	return len(o.Labels)
}

// Empty reports whether the service returned no labels.
func (o *Outcome) Empty() bool {
	return o.Len() == 0
}

// Top returns at most n labels from the front of the outcome.
// The returned slice is a copy.
func (o *Outcome) Top(n int) []Label {
	if o == nil || n <= 0 {
		return nil
	}
	n = min(n, len(o.Labels))
	out := make([]Label, n)
	copy(out, o.Labels[:n])
	return out
}

// Displayed returns the labels that are shown, capped at DisplayLimit.
func (o *Outcome) Displayed() []Label {
	return o.Top(DisplayLimit)
}

// FormatLine renders one numbered entry, e.g. "1. Cat  Confidence: 97.0%".
func FormatLine(rank int, l Label) string {
	return fmt.Sprintf("%d. %s  Confidence: %.1f%%", rank, l.Name, l.Percent())
}

// Render formats an outcome for display. An empty outcome renders as
// NoLabelsMessage and nothing else.
func Render(o *Outcome) string {
	if o.Empty() {
		return NoLabelsMessage
	}

	var b strings.Builder
	b.WriteString(Header)
	b.WriteString("\n\n")
	for i, l := range o.Displayed() {
		b.WriteString(FormatLine(i+1, l))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderError formats a classification failure with troubleshooting hints.
func RenderError(err error) string {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}

	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(msg)
	b.WriteString("\n\nMake sure:\n")
	for _, h := range Hints {
		b.WriteString("• ")
		b.WriteString(h)
		b.WriteString("\n")
	}
	return b.String()
}
