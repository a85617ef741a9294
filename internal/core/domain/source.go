package domain

import "strings"

// SourceText is the text-source collaborator's output: the raw UTF-8 payload
// plus per-line positions. Position metadata is whatever the reader could
// recover; for plain text it is simply the 1-based line number.
type SourceText struct {
	Raw   string
	Lines []SourceLine
}

type SourceLine struct {
	Number int
	Text   string
}

// NewSourceText splits a raw payload into trimmed, numbered lines. Blank
// lines keep their number so positions still match the document.
func NewSourceText(raw string) SourceText {
	if strings.TrimSpace(raw) == "" {
		return SourceText{}
	}
	split := strings.Split(raw, "\n")
	lines := make([]SourceLine, 0, len(split))
	for i, line := range split {
		lines = append(lines, SourceLine{Number: i + 1, Text: strings.TrimRight(line, " \t\r")})
	}
	return SourceText{Raw: raw, Lines: lines}
}

// InvoiceFilter narrows list queries.
type InvoiceFilter struct {
	Status InvoiceStatus
	Limit  int
	Offset int
}
