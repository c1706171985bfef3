// Package boost evaluates gradient-boosted tree ensembles exported from
// XGBoost as JSON tree dumps.
//
// A model file is an envelope around the output of
// Booster.dump_model(dump_format="json", with_stats=True):
//
//	{
//	  "objective": "multi:softprob",
//	  "base_score": 0.5,
//	  "num_class": 12,
//	  "feature_names": ["dias_desde_ultima", "qtd_total_compras", ...],
//	  "trees": [ {...}, {...} ]
//	}
//
// Regression objectives return the summed margin. Multi-class objectives
// assign tree i to class i % num_class and return the arg-max class.
package boost

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrInvalidModel  = errors.New("invalid model")
	ErrFeatureLength = errors.New("feature vector length mismatch")
)

type Task int

const (
	Regression Task = iota
	Classification
)

func (t Task) String() string {
	if t == Classification {
		return "classification"
	}
	return "regression"
}

type envelope struct {
	Objective    string      `json:"objective"`
	BaseScore    *float64    `json:"base_score"`
	NumClass     int         `json:"num_class"`
	FeatureNames []string    `json:"feature_names"`
	Trees        []*treeNode `json:"trees"`
}

// Model is immutable after Load and safe for concurrent use.
type Model struct {
	objective    string
	task         Task
	baseScore    float64
	numClass     int
	featureNames []string
	trees        []*tree
}

// Load decodes a model envelope and compiles its trees.
func Load(r io.Reader) (*Model, error) {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidModel, err)
	}
	return compile(env)
}

func compile(env envelope) (*Model, error) {
	m := &Model{
		objective:    env.Objective,
		featureNames: env.FeatureNames,
		baseScore:    0.5,
		numClass:     1,
	}
	if env.BaseScore != nil {
		m.baseScore = *env.BaseScore
	}

	switch {
	case strings.HasPrefix(env.Objective, "multi:"):
		if env.NumClass < 2 {
			return nil, fmt.Errorf("%w: objective %s needs num_class >= 2", ErrInvalidModel, env.Objective)
		}
		m.task = Classification
		m.numClass = env.NumClass
	case strings.HasPrefix(env.Objective, "reg:"), env.Objective == "":
		m.task = Regression
	default:
		return nil, fmt.Errorf("%w: unsupported objective %q", ErrInvalidModel, env.Objective)
	}

	if len(env.FeatureNames) == 0 {
		return nil, fmt.Errorf("%w: feature_names is empty", ErrInvalidModel)
	}
	if len(env.Trees) == 0 {
		return nil, fmt.Errorf("%w: no trees", ErrInvalidModel)
	}
	if len(env.Trees)%m.numClass != 0 {
		return nil, fmt.Errorf("%w: %d trees not divisible by %d classes", ErrInvalidModel, len(env.Trees), m.numClass)
	}

	index := make(map[string]int, len(env.FeatureNames))
	for i, name := range env.FeatureNames {
		index[name] = i
	}
	resolve := func(split string) (int, error) {
		if i, ok := index[split]; ok {
			return i, nil
		}
		// models trained without names refer to features as f0, f1, ...
		if strings.HasPrefix(split, "f") {
			if i, err := strconv.Atoi(split[1:]); err == nil && i >= 0 && i < len(env.FeatureNames) {
				return i, nil
			}
		}
		return 0, fmt.Errorf("%w: unknown split feature %q", ErrInvalidModel, split)
	}

	m.trees = make([]*tree, len(env.Trees))
	for i, root := range env.Trees {
		t, err := newTree(root, resolve)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		m.trees[i] = t
	}
	return m, nil
}

func (m *Model) Task() Task              { return m.task }
func (m *Model) Objective() string       { return m.objective }
func (m *Model) NumClass() int           { return m.numClass }
func (m *Model) NumTrees() int           { return len(m.trees) }
func (m *Model) FeatureNames() []string  { return append([]string(nil), m.featureNames...) }
func (m *Model) classOf(treeIdx int) int { return treeIdx % m.numClass }

// Margins returns the raw per-class scores for one row. NaN values follow
// each split's missing branch.
func (m *Model) Margins(row []float64) ([]float64, error) {
	if len(row) != len(m.featureNames) {
		return nil, fmt.Errorf("%w: got %d values, model expects %d", ErrFeatureLength, len(row), len(m.featureNames))
	}
	margins := make([]float64, m.numClass)
	for i := range margins {
		margins[i] = m.baseScore
	}
	for i, t := range m.trees {
		margins[m.classOf(i)] += t.leaf(row).value
	}
	return margins, nil
}

// Predict returns the regression output, or the predicted class index as a
// float for classification models.
func (m *Model) Predict(row []float64) (float64, error) {
	margins, err := m.Margins(row)
	if err != nil {
		return 0, err
	}
	if m.task == Classification {
		return float64(floats.MaxIdx(margins)), nil
	}
	return margins[0], nil
}

// PredictClass returns the arg-max class of a classification model.
func (m *Model) PredictClass(row []float64) (int, error) {
	if m.task != Classification {
		return 0, fmt.Errorf("%w: %s model has no classes", ErrInvalidModel, m.task)
	}
	margins, err := m.Margins(row)
	if err != nil {
		return 0, err
	}
	return floats.MaxIdx(margins), nil
}

// Probabilities applies softmax to the class margins.
func (m *Model) Probabilities(row []float64) ([]float64, error) {
	if m.task != Classification {
		return nil, fmt.Errorf("%w: %s model has no classes", ErrInvalidModel, m.task)
	}
	margins, err := m.Margins(row)
	if err != nil {
		return nil, err
	}
	maxMargin := floats.Max(margins)
	probs := make([]float64, len(margins))
	for i, v := range margins {
		probs[i] = math.Exp(v - maxMargin)
	}
	floats.Scale(1/floats.Sum(probs), probs)
	return probs, nil
}
