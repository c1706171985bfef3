package boost

import (
	"fmt"
	"math"
	"sort"
)

// Contribution is one feature's share of a prediction.
type Contribution struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
	Effect  float64 `json:"effect"`
}

// Explanation decomposes one class margin as Baseline + sum(Effect).
type Explanation struct {
	Class         int            `json:"class"`
	Baseline      float64        `json:"baseline"`
	Output        float64        `json:"output"`
	Contributions []Contribution `json:"contributions"`
}

// Contributions attributes the margin of class (0 for regression models)
// to the features along each tree's decision path: every split credits its
// feature with the change in expected value between the node and the child
// taken. Contributions are ordered by descending absolute effect.
func (m *Model) Contributions(row []float64, class int) (*Explanation, error) {
	if len(row) != len(m.featureNames) {
		return nil, fmt.Errorf("%w: got %d values, model expects %d", ErrFeatureLength, len(row), len(m.featureNames))
	}
	if class < 0 || class >= m.numClass {
		return nil, fmt.Errorf("%w: class %d outside [0, %d)", ErrInvalidModel, class, m.numClass)
	}

	effects := make([]float64, len(m.featureNames))
	baseline := m.baseScore
	output := m.baseScore
	for i, t := range m.trees {
		if m.classOf(i) != class {
			continue
		}
		n := &t.nodes[0]
		baseline += n.value
		for !n.isLeaf {
			child := &t.nodes[t.next(n, row)]
			effects[n.feature] += child.value - n.value
			n = child
		}
		output += n.value
	}

	out := &Explanation{
		Class:         class,
		Baseline:      baseline,
		Output:        output,
		Contributions: make([]Contribution, len(effects)),
	}
	for i, e := range effects {
		out.Contributions[i] = Contribution{Feature: m.featureNames[i], Value: row[i], Effect: e}
	}
	sort.SliceStable(out.Contributions, func(a, b int) bool {
		return math.Abs(out.Contributions[a].Effect) > math.Abs(out.Contributions[b].Effect)
	})
	return out, nil
}
