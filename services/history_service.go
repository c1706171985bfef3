package services

import (
	"context"
	"fmt"
	"sort"

	"purchase-prediction-api/artifacts"
	"purchase-prediction-api/models"

	"github.com/go-gota/gota/dataframe"
)

const EmptyHistoryMessage = "No purchase history found for this customer."

type HistoryService struct {
	catalog  *Catalog
	pageSize int
}

func NewHistoryService(catalog *Catalog, pageSize int) *HistoryService {
	if pageSize < 1 {
		pageSize = 10
	}
	return &HistoryService{catalog: catalog, pageSize: pageSize}
}

func (s *HistoryService) customerHistory(ctx context.Context, customerID string) (dataframe.DataFrame, error) {
	history, err := s.catalog.History(ctx)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	return customerRows(history, customerID)
}

// Summary reads the customer's metrics from the first history row; the
// metric columns repeat on every row of a customer.
func (s *HistoryService) Summary(ctx context.Context, customerID string) (models.CustomerSummary, error) {
	rows, err := s.customerHistory(ctx, customerID)
	if err != nil {
		return models.CustomerSummary{}, err
	}
	if rows.Nrow() == 0 {
		return models.CustomerSummary{}, fmt.Errorf("%w: %s has no history", ErrCustomerNotFound, customerID)
	}

	total, err := rows.Col(artifacts.ColTotalPurchases).Elem(0).Int()
	if err != nil {
		return models.CustomerSummary{}, fmt.Errorf("%w: %s: %v", artifacts.ErrSchemaMismatch, artifacts.ColTotalPurchases, err)
	}
	return models.CustomerSummary{
		Customer:        s.catalog.displayName(ctx, customerID),
		TotalPurchases:  total,
		AverageInterval: rows.Col(artifacts.ColAverageInterval).Elem(0).Float(),
		AverageTicket:   rows.Col(artifacts.ColAverageTicket).Elem(0).Float(),
		Cluster:         rows.Col(artifacts.ColCluster).Elem(0).String(),
	}, nil
}

// History returns the customer's most recent purchases, newest first,
// capped at limit (the configured page size when limit < 1). A customer
// without purchases gets an empty page, not an error.
func (s *HistoryService) History(ctx context.Context, customerID string, limit int) (models.HistoryPage, error) {
	if limit < 1 {
		limit = s.pageSize
	}
	p, err := s.catalog.Pseudonymizer(ctx)
	if err != nil {
		return models.HistoryPage{}, err
	}
	rows, err := s.customerHistory(ctx, customerID)
	if err != nil {
		return models.HistoryPage{}, err
	}

	name, _ := p.Name(customerID)
	page := models.HistoryPage{Customer: name, Total: rows.Nrow(), Rows: []models.PurchaseEvent{}}
	if rows.Nrow() == 0 {
		page.Empty = true
		page.Message = EmptyHistoryMessage
		return page, nil
	}

	// ISO dates order lexically
	rows = rows.Arrange(dataframe.RevSort(artifacts.ColPurchaseDate))
	if rows.Err != nil {
		return models.HistoryPage{}, fmt.Errorf("sort history: %w", rows.Err)
	}

	n := min(rows.Nrow(), limit)
	for i := 0; i < n; i++ {
		passengers, err := rows.Col(artifacts.ColPassengers).Elem(i).Int()
		if err != nil {
			return models.HistoryPage{}, fmt.Errorf("%w: %s: %v", artifacts.ErrSchemaMismatch, artifacts.ColPassengers, err)
		}
		page.Rows = append(page.Rows, models.PurchaseEvent{
			Date:        rows.Col(artifacts.ColPurchaseDate).Elem(i).String(),
			Origin:      p.City(rows.Col(artifacts.ColOrigin).Elem(i).String()),
			Destination: p.City(rows.Col(artifacts.ColDestination).Elem(i).String()),
			Passengers:  passengers,
			TotalValue:  rows.Col(artifacts.ColTotalValue).Elem(i).Float(),
		})
	}
	return page, nil
}

// Clusters counts distinct customers per cluster, largest first.
func (s *HistoryService) Clusters(ctx context.Context) ([]models.ClusterCount, error) {
	history, err := s.catalog.History(ctx)
	if err != nil {
		return nil, err
	}

	ids := history.Col(artifacts.ColCustomerID).Records()
	clusters := history.Col(artifacts.ColCluster).Records()
	members := make(map[string]map[string]struct{})
	for i, cluster := range clusters {
		if members[cluster] == nil {
			members[cluster] = make(map[string]struct{})
		}
		members[cluster][ids[i]] = struct{}{}
	}

	counts := make([]models.ClusterCount, 0, len(members))
	for cluster, set := range members {
		counts = append(counts, models.ClusterCount{Cluster: cluster, Customers: len(set)})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Customers != counts[j].Customers {
			return counts[i].Customers > counts[j].Customers
		}
		return counts[i].Cluster < counts[j].Cluster
	})
	return counts, nil
}
