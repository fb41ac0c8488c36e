package index

import (
	"math"
	"sort"

	"github.com/blevesearch/bleve"
)

// Hit is one retrieved chunk with its fused score.
type Hit struct {
	ChunkID string  `json:"chunk_id"`
	Source  Source  `json:"source"`
	Label   string  `json:"label,omitempty"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
	Rank    int     `json:"rank"`
}

// Search runs both channels and fuses them by weighted sum of max-normalized
// scores. Ties break on chunk insertion order, so results are deterministic.
// Returns at most topK hits, each chunk at most once.
func (x *Index) Search(queryText string, queryVec []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		return nil, nil
	}

	lexical, err := x.lexicalScores(queryText, topK*3)
	if err != nil {
		return nil, err
	}
	vector := x.vectorScores(queryVec)

	fused := map[string]float64{}
	for id, s := range normalize(lexical) {
		fused[id] += x.lexW * s
	}
	for id, s := range normalize(vector) {
		fused[id] += x.vecW * s
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	ids := make([]string, 0, len(fused))
	for id := range fused {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		si, sj := fused[ids[i]], fused[ids[j]]
		if si != sj {
			return si > sj
		}
		return x.order[ids[i]] < x.order[ids[j]]
	})

	if len(ids) > topK {
		ids = ids[:topK]
	}
	out := make([]Hit, 0, len(ids))
	for i, id := range ids {
		c := x.meta[id]
		out = append(out, Hit{
			ChunkID: id,
			Source:  c.Source,
			Label:   c.Label,
			Text:    c.Text,
			Score:   fused[id],
			Rank:    i + 1,
		})
	}
	return out, nil
}

func (x *Index) lexicalScores(q string, limit int) (map[string]float64, error) {
	if q == "" {
		return nil, nil
	}
	query := bleve.NewMatchQuery(q)
	req := bleve.NewSearchRequestOptions(query, limit, 0, false)
	res, err := x.bleve.Search(req)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(res.Hits))
	for _, hit := range res.Hits {
		out[hit.ID] = hit.Score
	}
	return out, nil
}

func (x *Index) vectorScores(q []float32) map[string]float64 {
	if len(q) == 0 {
		return nil
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make(map[string]float64, len(x.vectors))
	for _, v := range x.vectors {
		if s := cosine(q, v.Vec); s > 0 {
			out[v.DocID] = s
		}
	}
	return out
}

// normalize scales scores into [0,1] by the channel maximum, so the two
// channels are comparable before weighting.
func normalize(scores map[string]float64) map[string]float64 {
	if len(scores) == 0 {
		return nil
	}
	var max float64
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	if max == 0 {
		return nil
	}
	out := make(map[string]float64, len(scores))
	for id, s := range scores {
		out[id] = s / max
	}
	return out
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		na += ai * ai
		nb += bi * bi
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
