package annotations

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/csheth/bboxview/internal/geometry"
)

// ID is a record identifier that may arrive as a JSON string or number. It is
// kept in canonical string form so it can be compared directly.
type ID string

// UnmarshalJSON accepts both string and numeric identifiers.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*id = ID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = ID(n.String())
	return nil
}

// Record is one annotation line of the sidecar file.
type Record struct {
	ID           ID
	Line         int
	Page         int
	SeqNo        int
	Sentence     string
	Type         string
	DetectedType string
	Location     []geometry.Box
}

// Box returns the quadruple that drives the highlight.
func (r Record) Box() (geometry.Box, bool) {
	if len(r.Location) == 0 {
		return geometry.Box{}, false
	}
	return r.Location[0], true
}

type wireRecord struct {
	ID           *ID    `json:"id"`
	Page         int    `json:"page"`
	SeqNo        int    `json:"seq_no"`
	Sentence     string `json:"sentence"`
	Type         string `json:"type"`
	DetectedType string `json:"detected_type"`
	TextLocation *struct {
		Location [][]float64 `json:"location"`
	} `json:"text_location"`
}
