package usecase

import (
	"sort"
	"strings"

	"stars-shop-backend/internal/domain"
)

type ListFilters struct {
	Status string
	Date   string // YYYY-MM-DD, matched against the creation day in UTC
	Search string
	Sort   string
	Page   int
	Limit  int
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type Stats struct {
	Total        int     `json:"total"`
	Pending      int     `json:"pending"`
	Confirmed    int     `json:"confirmed"`
	Rejected     int     `json:"rejected"`
	TotalRevenue float64 `json:"totalRevenue"`
	TotalStars   int     `json:"totalStars"`
}

// QueryService is the read-only surface for the operator dashboard.
type QueryService struct {
	Repo OrderRepo
}

// ListOrders filters, sorts, and paginates a snapshot of the store.
// Stats always cover the full unfiltered store.
func (s *QueryService) ListOrders(f ListFilters) ([]domain.Order, Pagination, Stats) {
	all := s.Repo.List()
	stats := computeStats(all)

	filtered := make([]domain.Order, 0, len(all))
	search := strings.ToLower(strings.TrimSpace(f.Search))
	for _, o := range all {
		if f.Status != "" && f.Status != "all" && string(o.Status) != f.Status {
			continue
		}
		if f.Date != "" && o.CreatedAt.UTC().Format("2006-01-02") != f.Date {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(o.OrderID), search) &&
			!strings.Contains(strings.ToLower(o.Username), search) {
			continue
		}
		filtered = append(filtered, o)
	}

	sortOrders(filtered, f.Sort)

	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit < 1 {
		limit = 20
	}
	total := len(filtered)
	totalPages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return filtered[start:end], Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}, stats
}

// Stats summarizes the whole store; also backs the /stats chat command.
func (s *QueryService) Stats() Stats {
	return computeStats(s.Repo.List())
}

// PendingOrders returns pending orders, newest first, capped at limit.
func (s *QueryService) PendingOrders(limit int) []domain.Order {
	all := s.Repo.List()
	pending := make([]domain.Order, 0, len(all))
	for _, o := range all {
		if o.Status == domain.StatusPending {
			pending = append(pending, o)
		}
	}
	sortOrders(pending, "newest")
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending
}

func computeStats(orders []domain.Order) Stats {
	st := Stats{Total: len(orders)}
	for _, o := range orders {
		switch o.Status {
		case domain.StatusPending:
			st.Pending++
		case domain.StatusConfirmed:
			st.Confirmed++
			st.TotalRevenue += o.Amount
			st.TotalStars += o.Stars
		case domain.StatusRejected:
			st.Rejected++
		}
	}
	return st
}

func sortOrders(orders []domain.Order, by string) {
	switch by {
	case "oldest":
		sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.Before(orders[j].CreatedAt) })
	case "amount_high":
		sort.SliceStable(orders, func(i, j int) bool { return orders[i].Amount > orders[j].Amount })
	case "amount_low":
		sort.SliceStable(orders, func(i, j int) bool { return orders[i].Amount < orders[j].Amount })
	default: // newest
		sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	}
}
