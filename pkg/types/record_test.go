package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestQARecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  QARecord
		wantErr error
	}{
		{
			name: "single record",
			record: QARecord{
				Query:    "q",
				Answer:   "a",
				Metadata: RecordMetadata{ChunkIndex: 0, TotalChunks: 1},
			},
		},
		{
			name: "continuation with span",
			record: QARecord{
				Query:  "q (continued 2/2)",
				Answer: "a",
				Metadata: RecordMetadata{
					ChunkIndex:     1,
					TotalChunks:    2,
					IsContinuation: true,
					AnswerStartPos: intPtr(10),
					AnswerEndPos:   intPtr(20),
				},
			},
		},
		{
			name:    "empty query",
			record:  QARecord{Metadata: RecordMetadata{TotalChunks: 1}},
			wantErr: ErrEmptyQuery,
		},
		{
			name:    "index out of range",
			record:  QARecord{Query: "q", Metadata: RecordMetadata{ChunkIndex: 2, TotalChunks: 2}},
			wantErr: ErrInvalidChunkIndex,
		},
		{
			name:    "first record marked continuation",
			record:  QARecord{Query: "q", Metadata: RecordMetadata{TotalChunks: 1, IsContinuation: true}},
			wantErr: ErrInvalidContinuation,
		},
		{
			name: "inverted span",
			record: QARecord{
				Query: "q",
				Metadata: RecordMetadata{
					TotalChunks:    1,
					AnswerStartPos: intPtr(5),
					AnswerEndPos:   intPtr(5),
				},
			},
			wantErr: ErrInvalidSpan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestChunk_Validate(t *testing.T) {
	valid := Chunk{Index: 0, Text: "héllo", StartPos: 0, EndPos: 5}
	assert.NoError(t, valid.Validate())
	assert.Equal(t, 5, valid.Len())

	badSpan := Chunk{Text: "", StartPos: 3, EndPos: 3}
	assert.ErrorIs(t, badSpan.Validate(), ErrInvalidSpan)

	badLen := Chunk{Text: "abc", StartPos: 0, EndPos: 5}
	assert.Error(t, badLen.Validate())

	badFlags := Chunk{Text: "a", StartPos: 0, EndPos: 1, TruncatedByCount: true}
	assert.Error(t, badFlags.Validate())
}

func TestChunk_TotalChunks(t *testing.T) {
	c := Chunk{Metadata: map[string]any{MetaTotalChunks: 3}}
	assert.Equal(t, 3, c.TotalChunks())

	empty := Chunk{}
	assert.Equal(t, 0, empty.TotalChunks())
}

func TestChunk_ContentHash(t *testing.T) {
	a := Chunk{Text: "same"}
	b := Chunk{Text: "same"}
	c := Chunk{Text: "other"}

	assert.Equal(t, a.ContentHash(), b.ContentHash())
	assert.NotEqual(t, a.ContentHash(), c.ContentHash())
}
