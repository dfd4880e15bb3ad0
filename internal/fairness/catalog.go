package fairness

import "github.com/dukerupert/fairshare/internal/model"

// DefaultCatalog is the built-in recommendation pool.
func DefaultCatalog() []model.Recommendation {
	return []model.Recommendation{
		{ID: "rec1", Title: "Cook dinner", Points: 60, Category: "daily", Room: "kitchen"},
		{ID: "rec2", Title: "Wash dishes", Points: 60, Category: "daily", Room: "kitchen"},
		{ID: "rec3", Title: "Wash bedding", Points: 30, Category: "today", Room: "bed"},
		{ID: "rec4", Title: "Clean bathroom", Points: 50, Category: "today", Room: "bath"},
	}
}
