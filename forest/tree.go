package forest

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// featureEps is the smallest gap between two sorted feature values that
// counts as a split point.
const featureEps = 1e-7

// node is a tree node. Leaves have feature == -1 and carry value.
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     []float64
}

type tree struct {
	nodes []node
}

// leaf walks the tree for input and returns the leaf mean.
func (t *tree) leaf(input []float64) []float64 {
	i := 0
	for {
		n := &t.nodes[i]
		if n.feature < 0 {
			return n.value
		}
		if input[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

// depth returns the depth of the deepest leaf (a lone root is depth 0).
func (t *tree) depth() int {
	var walk func(i, d int) int
	walk = func(i, d int) int {
		n := t.nodes[i]
		if n.feature < 0 {
			return d
		}
		return max(walk(n.left, d+1), walk(n.right, d+1))
	}
	return walk(0, 0)
}

// grower builds one tree by recursive variance-reduction splits. The score of
// a split is the summed squared error over all outputs, so a single tree
// predicts every output jointly.
type grower struct {
	x, y      [][]float64
	cfg       Config
	rng       *rand.Rand
	inputDim  int
	outputDim int

	t tree
}

func (g *grower) grow(sample []int) *tree {
	g.t = tree{}
	g.build(sample, 0)
	return &g.t
}

// stats returns the per-output sums and the total sum of squares of idx.
func (g *grower) stats(idx []int) (sum []float64, sq float64) {
	sum = make([]float64, g.outputDim)
	for _, i := range idx {
		floats.Add(sum, g.y[i])
		sq += floats.Dot(g.y[i], g.y[i])
	}
	return sum, sq
}

func (g *grower) build(idx []int, depth int) int {
	sum, sq := g.stats(idx)
	n := float64(len(idx))
	mean := make([]float64, g.outputDim)
	floats.ScaleTo(mean, 1/n, sum)

	self := len(g.t.nodes)
	g.t.nodes = append(g.t.nodes, node{feature: -1, value: mean})

	sse := sq - floats.Dot(sum, sum)/n
	if (g.cfg.MaxDepth > 0 && depth >= g.cfg.MaxDepth) ||
		len(idx) < g.cfg.MinSamplesSplit ||
		len(idx) < 2*g.cfg.MinSamplesLeaf ||
		sse <= 1e-12 {
		return self
	}

	feature, threshold, ok := g.bestSplit(idx, sum, n)
	if !ok {
		return self
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if g.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return self
	}

	l := g.build(left, depth+1)
	r := g.build(right, depth+1)
	g.t.nodes[self] = node{feature: feature, threshold: threshold, left: l, right: r, value: mean}
	return self
}

// candidateFeatures returns the features examined at a node.
func (g *grower) candidateFeatures() []int {
	k := g.cfg.MaxFeatures
	if k <= 0 || k >= g.inputDim {
		all := make([]int, g.inputDim)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return g.rng.Perm(g.inputDim)[:k]
}

// bestSplit scans every candidate feature in sorted order and returns the
// split maximizing |L|^2/nL + |R|^2/nR, which is equivalent to minimizing the
// children's summed squared error.
func (g *grower) bestSplit(idx []int, total []float64, n float64) (feature int, threshold float64, ok bool) {
	minLeaf := g.cfg.MinSamplesLeaf
	best := floats.Dot(total, total) / n
	order := make([]int, len(idx))
	leftSum := make([]float64, g.outputDim)
	rightSum := make([]float64, g.outputDim)

	for _, f := range g.candidateFeatures() {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return g.x[order[a]][f] < g.x[order[b]][f] })

		for k := range leftSum {
			leftSum[k] = 0
		}
		for i := 0; i < len(order)-1; i++ {
			floats.Add(leftSum, g.y[order[i]])
			nl := i + 1
			nr := len(order) - nl
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			lo, hi := g.x[order[i]][f], g.x[order[i+1]][f]
			if hi <= lo+featureEps {
				continue
			}
			floats.SubTo(rightSum, total, leftSum)
			score := floats.Dot(leftSum, leftSum)/float64(nl) + floats.Dot(rightSum, rightSum)/float64(nr)
			if score > best+1e-12 {
				best = score
				feature = f
				threshold = lo + (hi-lo)/2
				if threshold >= hi {
					threshold = lo
				}
				ok = true
			}
		}
	}
	return feature, threshold, ok
}
