package forest

import "math/rand"

const leaf = -1

// node is one tree node. Internal nodes route samples with x[feature]==0 to
// left and everything else to right. Leaves carry the class distribution of
// the (weighted) training samples that reached them.
type node struct {
	feature int
	left    int
	right   int
	dist    []float64
}

// Tree is a fitted decision tree over binary features.
type Tree struct {
	nodes []node
	depth int
}

// Nodes returns the node count.
func (t *Tree) Nodes() int { return len(t.nodes) }

// Depth returns the depth of the deepest leaf. A single-leaf tree has depth 0.
func (t *Tree) Depth() int { return t.depth }

// distribution returns the leaf distribution reached by x.
func (t *Tree) distribution(x []uint8) []float64 {
	i := 0
	for {
		n := &t.nodes[i]
		if n.feature == leaf {
			return n.dist
		}
		if x[n.feature] == 0 {
			i = n.left
		} else {
			i = n.right
		}
	}
}

// grower builds one tree from a bootstrap sample. weights[i] is the number of
// times sample i was drawn.
type grower struct {
	x           [][]uint8
	y           []int
	weights     []float64
	classes     int
	maxFeatures int
	maxDepth    int
	rng         *rand.Rand

	order []int
	left  []float64
	right []float64
	nodes []node
	depth int
}

func newGrower(d Dataset, weights []float64, maxFeatures, maxDepth int, rng *rand.Rand) *grower {
	order := make([]int, d.Features())
	for i := range order {
		order[i] = i
	}
	return &grower{
		x:           d.X,
		y:           d.Y,
		weights:     weights,
		classes:     d.Classes,
		maxFeatures: maxFeatures,
		maxDepth:    maxDepth,
		rng:         rng,
		order:       order,
		left:        make([]float64, d.Classes),
		right:       make([]float64, d.Classes),
	}
}

func (g *grower) tree(samples []int) *Tree {
	g.grow(samples, 0)
	return &Tree{nodes: g.nodes, depth: g.depth}
}

func (g *grower) grow(samples []int, depth int) int {
	if depth > g.depth {
		g.depth = depth
	}

	counts := make([]float64, g.classes)
	for _, s := range samples {
		counts[g.y[s]] += g.weights[s]
	}

	idx := len(g.nodes)
	g.nodes = append(g.nodes, node{feature: leaf})

	if pure(counts) || (g.maxDepth > 0 && depth >= g.maxDepth) {
		g.nodes[idx].dist = normalize(counts)
		return idx
	}

	feature, ok := g.bestSplit(samples)
	if !ok {
		g.nodes[idx].dist = normalize(counts)
		return idx
	}

	var lo, hi []int
	for _, s := range samples {
		if g.x[s][feature] == 0 {
			lo = append(lo, s)
		} else {
			hi = append(hi, s)
		}
	}

	l := g.grow(lo, depth+1)
	r := g.grow(hi, depth+1)
	g.nodes[idx].feature = feature
	g.nodes[idx].left = l
	g.nodes[idx].right = r
	return idx
}

// bestSplit draws features without replacement until maxFeatures
// non-constant ones have been evaluated, and returns the one with the lowest
// weighted Gini impurity. Constant features do not count against the budget.
func (g *grower) bestSplit(samples []int) (int, bool) {
	best, bestScore := -1, 0.0
	visited := 0
	n := len(g.order)

	for i := 0; i < n && visited < g.maxFeatures; i++ {
		j := i + g.rng.Intn(n-i)
		g.order[i], g.order[j] = g.order[j], g.order[i]
		f := g.order[i]

		clear(g.left)
		clear(g.right)
		var wl, wr float64
		for _, s := range samples {
			w := g.weights[s]
			if g.x[s][f] == 0 {
				g.left[g.y[s]] += w
				wl += w
			} else {
				g.right[g.y[s]] += w
				wr += w
			}
		}
		if wl == 0 || wr == 0 {
			continue
		}
		visited++

		score := wl*gini(g.left, wl) + wr*gini(g.right, wr)
		if best < 0 || score < bestScore {
			best, bestScore = f, score
		}
	}
	return best, best >= 0
}

func gini(counts []float64, total float64) float64 {
	sum := 0.0
	for _, c := range counts {
		p := c / total
		sum += p * p
	}
	return 1 - sum
}

func pure(counts []float64) bool {
	seen := false
	for _, c := range counts {
		if c > 0 {
			if seen {
				return false
			}
			seen = true
		}
	}
	return true
}

func normalize(counts []float64) []float64 {
	total := 0.0
	for _, c := range counts {
		total += c
	}
	dist := make([]float64, len(counts))
	if total == 0 {
		return dist
	}
	for i, c := range counts {
		dist[i] = c / total
	}
	return dist
}
