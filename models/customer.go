package models

// CustomerSummary is the metrics panel for one customer. The real id is
// never part of it.
type CustomerSummary struct {
	Customer        string  `json:"customer"`
	TotalPurchases  int     `json:"total_purchases"`
	AverageInterval float64 `json:"average_interval_days"`
	AverageTicket   float64 `json:"average_ticket"`
	Cluster         string  `json:"cluster"`
}

type PurchaseEvent struct {
	Date        string  `json:"date"`
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Passengers  int     `json:"passengers"`
	TotalValue  float64 `json:"total_value"`
}

type HistoryPage struct {
	Customer string          `json:"customer"`
	Total    int             `json:"total"`
	Rows     []PurchaseEvent `json:"rows"`
	Empty    bool            `json:"empty"`
	Message  string          `json:"message,omitempty"`
}

type ClusterCount struct {
	Cluster   string `json:"cluster"`
	Customers int    `json:"customers"`
}
