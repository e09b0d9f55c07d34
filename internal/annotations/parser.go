package annotations

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/csheth/bboxview/internal/geometry"
)

const maxLineBytes = 8 << 20

var errNotObject = errors.New("line is not a JSON object")

// ParseError reports a line that could not be decoded. The line is excluded
// from the result.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaWarning reports a decoded line that lacks an expected field. The
// record is kept as-is.
type SchemaWarning struct {
	Line   int
	Field  string
	Detail string
}

func (w SchemaWarning) String() string {
	if w.Detail != "" {
		return fmt.Sprintf("line %d: %s %s", w.Line, w.Field, w.Detail)
	}
	return fmt.Sprintf("line %d: missing %s", w.Line, w.Field)
}

// Result is the outcome of parsing one sidecar file.
type Result struct {
	Records  []Record
	Failures []*ParseError
	Warnings []SchemaWarning
	Lines    int
}

// Summary describes the result in one line for the status bar.
func (r Result) Summary() string {
	parts := []string{plural(len(r.Records), "record", "records")}
	if len(r.Failures) > 0 {
		parts = append(parts, plural(len(r.Failures), "skipped line", "skipped lines"))
	}
	if len(r.Warnings) > 0 {
		parts = append(parts, plural(len(r.Warnings), "warning", "warnings"))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

// ParseFile reads and parses a line-delimited JSON sidecar file.
func ParseFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes every non-empty line independently. Line failures never
// abort the batch; the returned error only reports read failures.
func Parse(r io.Reader) (Result, error) {
	result := Result{Records: []Record{}}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		result.Lines++
		record, warnings, err := decodeLine(lineNo, line)
		if err != nil {
			result.Failures = append(result.Failures, &ParseError{Line: lineNo, Err: err})
			continue
		}
		result.Records = append(result.Records, record)
		result.Warnings = append(result.Warnings, warnings...)
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("read annotations: %w", err)
	}
	return result, nil
}

func decodeLine(lineNo int, line []byte) (Record, []SchemaWarning, error) {
	if line[0] != '{' {
		return Record{}, nil, errNotObject
	}
	var wire wireRecord
	if err := json.Unmarshal(line, &wire); err != nil {
		return Record{}, nil, err
	}

	var warnings []SchemaWarning
	record := Record{
		Line:         lineNo,
		Page:         wire.Page,
		SeqNo:        wire.SeqNo,
		Sentence:     norm.NFC.String(wire.Sentence),
		Type:         wire.Type,
		DetectedType: wire.DetectedType,
	}
	if wire.ID == nil || *wire.ID == "" {
		record.ID = ID(fmt.Sprintf("line-%d", lineNo))
		warnings = append(warnings, SchemaWarning{Line: lineNo, Field: "id"})
	} else {
		record.ID = *wire.ID
	}
	if wire.DetectedType == "" {
		warnings = append(warnings, SchemaWarning{Line: lineNo, Field: "detected_type"})
	}

	if wire.TextLocation == nil || len(wire.TextLocation.Location) == 0 {
		warnings = append(warnings, SchemaWarning{Line: lineNo, Field: "text_location"})
		return record, warnings, nil
	}
	for idx, quad := range wire.TextLocation.Location {
		if len(quad) != 4 {
			warnings = append(warnings, SchemaWarning{
				Line:   lineNo,
				Field:  "text_location",
				Detail: fmt.Sprintf("entry %d has %d values, want 4", idx, len(quad)),
			})
			continue
		}
		record.Location = append(record.Location, geometry.Box{quad[0], quad[1], quad[2], quad[3]})
	}
	return record, warnings, nil
}
