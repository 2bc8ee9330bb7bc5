package types

// RecordMetadata carries continuity information for one stored sub-record
type RecordMetadata struct {
	ChunkIndex     int  `json:"chunk_index"`
	TotalChunks    int  `json:"total_chunks"`
	IsContinuation bool `json:"is_continuation"`

	// Answer span within the original answer. Only set when the answer
	// had to be split.
	AnswerStartPos *int `json:"answer_start_pos,omitempty"`
	AnswerEndPos   *int `json:"answer_end_pos,omitempty"`

	// AnswerTruncated reports that the answer chunk was cut by a size or
	// chunk-count ceiling.
	AnswerTruncated bool `json:"answer_truncated,omitempty"`
}

// QARecord is a storable (query, answer, metadata) triple
type QARecord struct {
	Query    string         `json:"query"`
	Answer   string         `json:"answer"`
	Metadata RecordMetadata `json:"metadata"`
}

// HasSpan reports whether the record carries an answer span
func (r *QARecord) HasSpan() bool {
	return r.Metadata.AnswerStartPos != nil && r.Metadata.AnswerEndPos != nil
}

// Validate checks the record invariants
func (r *QARecord) Validate() error {
	if r.Query == "" {
		return ErrEmptyQuery
	}

	if r.Metadata.TotalChunks < 1 || r.Metadata.ChunkIndex < 0 || r.Metadata.ChunkIndex >= r.Metadata.TotalChunks {
		return ErrInvalidChunkIndex
	}

	if r.Metadata.IsContinuation != (r.Metadata.ChunkIndex > 0) {
		return ErrInvalidContinuation
	}

	if r.HasSpan() && *r.Metadata.AnswerStartPos >= *r.Metadata.AnswerEndPos {
		return ErrInvalidSpan
	}

	return nil
}
