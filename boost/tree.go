package boost

import (
	"fmt"
	"math"
)

// treeNode mirrors one node of an XGBoost JSON dump.
type treeNode struct {
	NodeID         int         `json:"nodeid"`
	Split          string      `json:"split"`
	SplitCondition float64     `json:"split_condition"`
	Yes            int         `json:"yes"`
	No             int         `json:"no"`
	Missing        int         `json:"missing"`
	Leaf           *float64    `json:"leaf"`
	Cover          float64     `json:"cover"`
	Children       []*treeNode `json:"children"`
}

type node struct {
	isLeaf    bool
	feature   int
	threshold float64
	yes       int
	no        int
	missing   int
	value     float64 // leaf value, or cover-weighted mean of the subtree
	cover     float64
}

type tree struct {
	nodes []node
}

func newTree(root *treeNode, resolve func(string) (int, error)) (*tree, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: empty tree", ErrInvalidModel)
	}
	byID := make(map[int]*treeNode)
	maxID := 0
	var walk func(n *treeNode) error
	walk = func(n *treeNode) error {
		if _, dup := byID[n.NodeID]; dup {
			return fmt.Errorf("%w: duplicate node id %d", ErrInvalidModel, n.NodeID)
		}
		if n.NodeID < 0 {
			return fmt.Errorf("%w: negative node id %d", ErrInvalidModel, n.NodeID)
		}
		byID[n.NodeID] = n
		if n.NodeID > maxID {
			maxID = n.NodeID
		}
		for _, c := range n.Children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	if root.NodeID != 0 {
		return nil, fmt.Errorf("%w: root node id is %d", ErrInvalidModel, root.NodeID)
	}

	t := &tree{nodes: make([]node, maxID+1)}
	for id, n := range byID {
		if n.Leaf != nil {
			t.nodes[id] = node{isLeaf: true, value: *n.Leaf, cover: n.Cover}
			continue
		}
		for _, child := range []int{n.Yes, n.No, n.Missing} {
			if _, ok := byID[child]; !ok {
				return nil, fmt.Errorf("%w: node %d points at missing node %d", ErrInvalidModel, id, child)
			}
		}
		feature, err := resolve(n.Split)
		if err != nil {
			return nil, err
		}
		t.nodes[id] = node{
			feature:   feature,
			threshold: n.SplitCondition,
			yes:       n.Yes,
			no:        n.No,
			missing:   n.Missing,
			cover:     n.Cover,
		}
	}
	if _, err := t.expected(0, 0); err != nil {
		return nil, err
	}
	return t, nil
}

// expected fills internal node values bottom-up with the cover-weighted
// mean of their children. Trees dumped without stats fall back to a plain
// average. Every child link, missing included, must lead to a leaf.
func (t *tree) expected(id, depth int) (float64, error) {
	if depth > len(t.nodes) {
		return 0, fmt.Errorf("%w: cycle at node %d", ErrInvalidModel, id)
	}
	n := &t.nodes[id]
	if n.isLeaf {
		return n.value, nil
	}
	yes, err := t.expected(n.yes, depth+1)
	if err != nil {
		return 0, err
	}
	no, err := t.expected(n.no, depth+1)
	if err != nil {
		return 0, err
	}
	// the missing branch is walked only to reject cycles through it
	if _, err := t.expected(n.missing, depth+1); err != nil {
		return 0, err
	}
	cy, cn := t.nodes[n.yes].cover, t.nodes[n.no].cover
	if cy+cn > 0 {
		n.value = (cy*yes + cn*no) / (cy + cn)
	} else {
		n.value = (yes + no) / 2
	}
	return n.value, nil
}

func (t *tree) next(n *node, row []float64) int {
	v := row[n.feature]
	switch {
	case math.IsNaN(v):
		return n.missing
	case v < n.threshold:
		return n.yes
	default:
		return n.no
	}
}

func (t *tree) leaf(row []float64) *node {
	n := &t.nodes[0]
	for !n.isLeaf {
		n = &t.nodes[t.next(n, row)]
	}
	return n
}
