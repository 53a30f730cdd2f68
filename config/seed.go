package config

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"civictrack-be/models"
	"civictrack-be/store"
)

var (
	defaultStatuses = []string{models.DefaultStatusName, "IN_PROGRESS", "RESOLVED"}

	defaultPriorities = []models.Priority{
		{Name: "Highest", SortOrder: 5},
		{Name: "High", SortOrder: 4},
		{Name: models.DefaultPriorityName, SortOrder: 3},
		{Name: "Low", SortOrder: 2},
		{Name: "Lowest", SortOrder: 1},
	}
)

// SeedLookups fills each empty lookup collection with its defaults. Ids are
// assigned from 1 in declaration order. Collections that already hold rows
// are left alone.
func SeedLookups(ctx context.Context, stores store.StoreProvider, categories []string, log logrus.FieldLogger) error {
	cats := make([]models.Category, 0, len(categories))
	for i, name := range categories {
		cats = append(cats, models.Category{ID: int64(i + 1), Name: name})
	}
	if err := seed(ctx, stores.Categories(), cats, "categories", log); err != nil {
		return err
	}

	statuses := make([]models.Status, 0, len(defaultStatuses))
	for i, name := range defaultStatuses {
		statuses = append(statuses, models.Status{ID: int64(i + 1), Name: name})
	}
	if err := seed(ctx, stores.Statuses(), statuses, "statuses", log); err != nil {
		return err
	}

	priorities := make([]models.Priority, 0, len(defaultPriorities))
	for i, p := range defaultPriorities {
		p.ID = int64(i + 1)
		priorities = append(priorities, p)
	}
	return seed(ctx, stores.Priorities(), priorities, "priorities", log)
}

func seed[T any](ctx context.Context, lookups store.LookupStore[T], items []T, name string, log logrus.FieldLogger) error {
	n, err := lookups.Count(ctx)
	if err != nil {
		return fmt.Errorf("count %s: %w", name, err)
	}
	if n > 0 {
		return nil
	}
	for i := range items {
		if err := lookups.Create(ctx, &items[i]); err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
	}
	log.WithFields(logrus.Fields{"collection": name, "count": len(items)}).Info("Seeded lookup table")
	return nil
}
