package report

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Layout selects the artifact shape.
type Layout string

const (
	// LayoutAuto is single for exactly one location and multi otherwise.
	LayoutAuto   Layout = "auto"
	LayoutSingle Layout = "single"
	LayoutMulti  Layout = "multi"
)

func ParseLayout(s string) (Layout, error) {
	switch l := Layout(s); l {
	case LayoutAuto, LayoutSingle, LayoutMulti:
		return l, nil
	case "":
		return LayoutAuto, nil
	default:
		return "", fmt.Errorf("unknown output layout %q", s)
	}
}

// Entry pairs a report with the slug it is keyed by in the multi layout.
type Entry struct {
	Slug   string
	Report LocationReport
}

// Document is a decoded artifact. Single is set for the flat layout and
// Reports for the slug mapping.
type Document struct {
	Single  *LocationReport
	Reports map[string]LocationReport
}

// Marshal encodes entries with two-space indentation.
func Marshal(layout Layout, entries []Entry) ([]byte, error) {
	if layout == LayoutAuto {
		layout = LayoutMulti
		if len(entries) == 1 {
			layout = LayoutSingle
		}
	}

	var v interface{}
	switch layout {
	case LayoutSingle:
		if len(entries) != 1 {
			return nil, fmt.Errorf("single layout needs exactly one location, got %d", len(entries))
		}
		v = entries[0].Report
	case LayoutMulti:
		m := make(map[string]LocationReport, len(entries))
		for _, e := range entries {
			if _, dup := m[e.Slug]; dup {
				return nil, fmt.Errorf("duplicate location slug %q", e.Slug)
			}
			m[e.Slug] = e.Report
		}
		v = m
	default:
		return nil, fmt.Errorf("unknown output layout %q", layout)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses either artifact shape. A top-level object carrying
// summary_text is the flat layout.
func Decode(data []byte) (*Document, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	if probe == nil {
		return nil, errors.New("failed to decode report: empty document")
	}

	if _, flat := probe["summary_text"]; flat {
		var r LocationReport
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to decode report: %w", err)
		}
		return &Document{Single: &r}, nil
	}

	reports := make(map[string]LocationReport, len(probe))
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &Document{Reports: reports}, nil
}

// Artifact is a written predictions file handed to publishers.
type Artifact struct {
	Path    string
	Data    []byte
	Entries []Entry
}
