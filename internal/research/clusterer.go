package research

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ziadkadry99/docsynth/internal/cluster"
	"github.com/ziadkadry99/docsynth/internal/embeddings"
)

// MaxThemes bounds the number of themes a synthesis produces.
const MaxThemes = 4

// ClusterCount picks how many clusters to ask for: one per three snippets,
// at least one and at most MaxThemes.
func ClusterCount(total int) int {
	return min(max(total/3, 1), MaxThemes)
}

// Clusterer groups snippets by the similarity of their text embeddings.
type Clusterer struct {
	embedder embeddings.Embedder
	dim      int
	linkage  cluster.Linkage
	logger   *slog.Logger
}

// NewClusterer creates a Clusterer using Ward linkage.
func NewClusterer(embedder embeddings.Embedder, dim int, logger *slog.Logger) *Clusterer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Clusterer{embedder: embedder, dim: dim, linkage: cluster.Ward, logger: logger}
}

// Cluster partitions snippets into at most nClusters groups. The result maps
// a label to indices into snippets. Blank snippets and snippets that fail to
// embed are left out of every group. An empty map means nothing could be
// embedded.
func (c *Clusterer) Cluster(ctx context.Context, snippets []SnippetRecord, nClusters int) map[int][]int {
	var (
		vectors [][]float32
		indices []int
	)
	for i, s := range snippets {
		if strings.TrimSpace(s.Text) == "" {
			c.logger.Warn("skipping empty snippet", "index", i)
			continue
		}
		vec, err := embeddings.EmbedOne(ctx, c.embedder, s.Text, c.dim)
		if err != nil {
			c.logger.Error("embedding snippet failed", "index", i, "error", err)
			continue
		}
		vectors = append(vectors, vec)
		indices = append(indices, i)
	}

	if len(indices) == 0 {
		return map[int][]int{}
	}

	k := min(nClusters, len(indices))
	if k <= 1 {
		return map[int][]int{0: indices}
	}

	labels, err := cluster.Agglomerative(vectors, k, c.linkage)
	if err != nil {
		c.logger.Error("clustering failed, using a single cluster", "error", err)
		return map[int][]int{0: indices}
	}

	groups := make(map[int][]int, k)
	for j, label := range labels {
		groups[label] = append(groups[label], indices[j])
	}
	c.logger.Debug("clustered snippets", "snippets", len(indices), "clusters", len(groups))
	return groups
}
