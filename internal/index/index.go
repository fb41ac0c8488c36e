package index

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/hiresight-ai/hiresight/config"
	"github.com/hiresight-ai/hiresight/internal/enrich"
	"github.com/hiresight-ai/hiresight/internal/structurer"
	"github.com/hiresight-ai/hiresight/tools/embedding"
)

// ErrIndexBuild is returned when the per-session index cannot be built:
// empty corpus, embedding failure or lexical index failure.
var ErrIndexBuild = errors.New("index build failed")

// Source names where a chunk came from.
type Source string

const (
	SourceResume   Source = "resume"
	SourceGitHub   Source = "github"
	SourceLinkedIn Source = "linkedin"
)

// Chunk is one indexed span of session text. IDs are content-addressed:
// sha1 of the parent entry (source, label, ordinal, text) plus the chunk
// ordinal within it.
type Chunk struct {
	ID     string `json:"id"`
	Source Source `json:"source"`
	Label  string `json:"label,omitempty"`
	Text   string `json:"text"`
}

// Index is the session-scoped hybrid index: a mem-only lexical index and
// in-memory vectors over the same chunk IDs. It is immutable after Build.
type Index struct {
	bleve   bleve.Index
	meta    map[string]Chunk
	order   map[string]int // insertion order, used for stable tie-breaks
	vectors []embedding.EmbedVec
	lexW    float64
	vecW    float64
	mu      sync.RWMutex
}

// Build assembles the corpus from the structured document and its enrichment,
// chunks it, embeds every chunk and indexes both channels.
func Build(ctx context.Context, doc *structurer.StructuredDocument, enr enrich.Result, embedder embedding.Embedder, ingest config.IngestConfig, retrieval config.RetrievalConfig) (*Index, error) {
	ingest = ingest.Normalize()
	retrieval = retrieval.Normalize()

	chunks := buildCorpus(doc, enr, ingest)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: empty corpus", ErrIndexBuild)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := embedder.EmbedMany(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding: %v", ErrIndexBuild, err)
	}
	if len(vecs) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", ErrIndexBuild, len(vecs), len(chunks))
	}

	lexical, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexBuild, err)
	}

	idx := &Index{
		bleve: lexical,
		meta:  make(map[string]Chunk, len(chunks)),
		order: make(map[string]int, len(chunks)),
		lexW:  retrieval.LexicalWeight,
		vecW:  retrieval.VectorWeight,
	}
	for i, c := range chunks {
		if err := lexical.Index(c.ID, c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIndexBuild, err)
		}
		idx.meta[c.ID] = c
		idx.order[c.ID] = i
		idx.vectors = append(idx.vectors, embedding.EmbedVec{DocID: c.ID, Vec: vecs[i]})
	}
	return idx, nil
}

// Chunk returns the chunk for an ID, if indexed.
func (x *Index) Chunk(id string) (Chunk, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	c, ok := x.meta[id]
	return c, ok
}

// Size reports the number of indexed chunks.
func (x *Index) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.meta)
}

func buildCorpus(doc *structurer.StructuredDocument, enr enrich.Result, ingest config.IngestConfig) []Chunk {
	var chunks []Chunk
	entry := 0

	add := func(source Source, label, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		// salted with the entry ordinal so two identical bodies keep
		// distinct IDs and labels
		hash := sha1Hex(fmt.Sprintf("%s/%s/%d\n%s", source, label, entry, text))
		entry++
		for i, part := range makeChunks(text, ingest.ChunkSize, ingest.ChunkOverlap) {
			chunks = append(chunks, Chunk{
				ID:     fmt.Sprintf("%s#%03d", hash, i),
				Source: source,
				Label:  label,
				Text:   part,
			})
		}
	}

	for _, sec := range doc.Sections {
		add(SourceResume, string(sec.Label), sec.Text)
	}
	add(SourceGitHub, "", enr.GitHub.Text())
	add(SourceLinkedIn, "", enr.LinkedIn.Narrative)

	return chunks
}

func sha1Hex(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

func makeChunks(text string, approx, overlap int) []string {
	text = strings.TrimSpace(text)
	if len(text) <= approx {
		return []string{text}
	}
	// forward progress requires overlap < size, whatever the config says
	if overlap >= approx {
		overlap = approx / 5
	}
	var chunks []string
	for start := 0; start < len(text); {
		end := start + approx
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
		start = end - overlap
		if start < 0 {
			start = 0
		}
	}
	return chunks
}
