package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/JakeFAU/progress-pipeline/internal/progress"
)

// Record is the self-describing wire form of an event: a type discriminant
// plus the payload of that variant.
type Record struct {
	Type      string  `json:"type"`
	Text      *string `json:"text,omitempty"`
	Current   *uint64 `json:"current,omitempty"`
	Max       *uint64 `json:"max,omitempty"`
	Lifecycle string  `json:"lifecycle,omitempty"`
	Detail    string  `json:"detail,omitempty"`
}

// NewRecord converts evt into its wire form.
func NewRecord(evt progress.Event) (Record, error) {
	if err := evt.Validate(); err != nil {
		return Record{}, fmt.Errorf("invalid event: %w", err)
	}
	rec := Record{Type: string(evt.Kind)}
	switch evt.Kind {
	case progress.KindStatus:
		text := evt.Text
		rec.Text = &text
	case progress.KindProgress:
		current, limit := evt.Current, evt.Max
		rec.Current = &current
		rec.Max = &limit
	case progress.KindLifecycle:
		rec.Lifecycle = string(evt.Lifecycle.Kind)
		rec.Detail = evt.Lifecycle.Detail
	}
	return rec, nil
}

// EncodeRecord marshals evt to a single JSON object without a trailing newline.
func EncodeRecord(evt progress.Event) ([]byte, error) {
	rec, err := NewRecord(evt)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return data, nil
}

// encodeLine returns the record for evt followed by a newline.
func encodeLine(evt progress.Event) ([]byte, error) {
	data, err := EncodeRecord(evt)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
