package models

// FeatureContribution is one feature's effect on the model output. Value is
// nil when the feature was missing from the row.
type FeatureContribution struct {
	Feature string   `json:"feature"`
	Value   *float64 `json:"value"`
	Effect  float64  `json:"effect"`
}

type Explanation struct {
	Customer      string                `json:"customer"`
	Task          string                `json:"task"`
	Class         *int                  `json:"class,omitempty"`
	Baseline      float64               `json:"baseline"`
	Output        float64               `json:"output"`
	Contributions []FeatureContribution `json:"contributions"`
}
