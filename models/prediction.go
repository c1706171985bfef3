package models

type DatePrediction struct {
	Customer   string `json:"customer"`
	OffsetDays int    `json:"offset_days"`
	Date       string `json:"date"`
	Display    string `json:"display"`
}

type SegmentPrediction struct {
	Customer   string       `json:"customer"`
	ClassIndex int          `json:"class_index"`
	Segment    SegmentLabel `json:"segment"`
}

// PredictionSet carries both tasks. A task that failed leaves its result
// nil and reports why under Warnings or Errors, keyed by task.
type PredictionSet struct {
	Customer string             `json:"customer"`
	Date     *DatePrediction    `json:"date,omitempty"`
	Segment  *SegmentPrediction `json:"segment,omitempty"`
	Warnings map[string]string  `json:"warnings,omitempty"`
	Errors   map[string]string  `json:"errors,omitempty"`
}
