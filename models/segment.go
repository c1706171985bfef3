package models

// SegmentLabel is one row of the segment table. Index is the class index
// the segment model predicts.
type SegmentLabel struct {
	Index       int    `json:"index"`
	Code        string `json:"-"`
	Origin      string `json:"-"`
	Destination string `json:"-"`
	Display     string `json:"display"`
}
