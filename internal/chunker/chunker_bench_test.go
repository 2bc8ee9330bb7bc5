package chunker_test

import (
	"strings"
	"testing"

	"github.com/dshills/longtext-mcp/internal/chunker"
)

func benchmarkText(n int) string {
	const para = "Chunking keeps related sentences together. Does it also handle questions? " +
		"It does!\n这是一个句子。那是另一个。\n\n"
	return strings.Repeat(para, n/len([]rune(para))+1)
}

func BenchmarkChunk_Default(b *testing.B) {
	c := chunker.Default()
	text := benchmarkText(100000)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if len(c.Chunk(text)) == 0 {
			b.Fatal("no chunks")
		}
	}
}

func BenchmarkChunk_MaxTotalSize(b *testing.B) {
	cfg := chunker.DefaultConfig()
	cfg.MaxChunks = 1000
	c, err := chunker.New(cfg)
	if err != nil {
		b.Fatal(err)
	}
	text := benchmarkText(chunker.DefaultMaxTotalSize)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if len(c.Chunk(text)) == 0 {
			b.Fatal("no chunks")
		}
	}
}

func BenchmarkChunk_NoSmartBoundary(b *testing.B) {
	cfg := chunker.DefaultConfig()
	cfg.SmartBoundary = false
	c, err := chunker.New(cfg)
	if err != nil {
		b.Fatal(err)
	}
	text := benchmarkText(100000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if len(c.Chunk(text)) == 0 {
			b.Fatal("no chunks")
		}
	}
}

func BenchmarkJoin(b *testing.B) {
	c := chunker.Default()
	chunks := c.Chunk(benchmarkText(100000))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = chunker.Join(chunks)
	}
}
