package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// Wire names of the two fields the merger interprets
const (
	FieldQAID  = "qa_id"
	FieldScore = "score"
)

// Match is one retrieval candidate keyed by an opaque QA identifier.
//
// Fields holds every other attribute of the match; the merger never reads
// or rewrites them. On the wire a Match is a single flat JSON object.
type Match struct {
	QAID   string
	Score  *float64 // nil when the producer sent no score
	Fields map[string]any
}

// NewMatch creates a match with an explicit score
func NewMatch(qaID string, score float64) Match {
	return Match{QAID: qaID, Score: &score}
}

// ScoreValue returns the score, treating a missing score as 0
func (m Match) ScoreValue() float64 {
	if m.Score == nil {
		return 0
	}
	return *m.Score
}

// WithField returns a copy of the match with an extra pass-through field
func (m Match) WithField(key string, value any) Match {
	out := m.Clone()
	if out.Fields == nil {
		out.Fields = make(map[string]any)
	}
	out.Fields[key] = value
	return out
}

// Clone returns a copy that shares no mutable state with m
func (m Match) Clone() Match {
	out := Match{QAID: m.QAID}
	if m.Score != nil {
		s := *m.Score
		out.Score = &s
	}
	if m.Fields != nil {
		out.Fields = maps.Clone(m.Fields)
	}
	return out
}

// MarshalJSON flattens the match into one object
func (m Match) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Fields)+2)
	for k, v := range m.Fields {
		out[k] = v
	}
	if m.QAID != "" {
		out[FieldQAID] = m.QAID
	}
	if m.Score != nil {
		out[FieldScore] = *m.Score
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a flat object. Numbers in pass-through fields are kept
// as json.Number so they re-encode exactly.
func (m *Match) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode match: %w", err)
	}

	*m = Match{}

	switch id := raw[FieldQAID].(type) {
	case string:
		m.QAID = id
		delete(raw, FieldQAID)
	case json.Number:
		m.QAID = id.String()
		delete(raw, FieldQAID)
	}

	if n, ok := raw[FieldScore].(json.Number); ok {
		f, err := n.Float64()
		if err != nil {
			return fmt.Errorf("invalid score %q: %w", n, err)
		}
		m.Score = &f
		delete(raw, FieldScore)
	}

	if len(raw) > 0 {
		m.Fields = raw
	}
	return nil
}

// ResultSet is the set of matches returned for one query chunk
type ResultSet struct {
	Matches []Match `json:"matches"`
}

// UnmarshalJSON accepts {"matches": [...]}, {"results": [...]} or a bare
// array of matches.
func (s *ResultSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var matches []Match
		if err := json.Unmarshal(data, &matches); err != nil {
			return err
		}
		s.Matches = matches
		return nil
	}

	var raw struct {
		Matches []Match `json:"matches"`
		Results []Match `json:"results"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode result set: %w", err)
	}
	s.Matches = raw.Matches
	if s.Matches == nil {
		s.Matches = raw.Results
	}
	return nil
}

// DecodeResultSets parses a JSON array of result sets
func DecodeResultSets(data []byte) ([]ResultSet, error) {
	var sets []ResultSet
	if err := json.Unmarshal(data, &sets); err != nil {
		return nil, err
	}
	return sets, nil
}

// MergedResult is the deduplicated, ranked union of several result sets
type MergedResult struct {
	Matches     []Match `json:"matches"`
	Query       string  `json:"query"`
	Count       int     `json:"count"`
	QueryChunks int     `json:"query_chunks"`
	Merged      bool    `json:"merged"`
}

// Clone returns a deep copy of the merged result
func (r *MergedResult) Clone() *MergedResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Matches = make([]Match, len(r.Matches))
	for i, m := range r.Matches {
		out.Matches[i] = m.Clone()
	}
	return &out
}
