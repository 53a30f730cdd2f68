package services

import (
	"context"
	"fmt"
	"strings"

	"civictrack-be/models"
	"civictrack-be/store"
)

// LookupService serves the read-only lookup tables and the user directory
// used by the dashboard's dropdowns.
type LookupService struct {
	stores store.StoreProvider
}

func NewLookupService(stores store.StoreProvider) *LookupService {
	return &LookupService{stores: stores}
}

func (s *LookupService) Categories(ctx context.Context) ([]models.Category, error) {
	return s.stores.Categories().List(ctx)
}

func (s *LookupService) Statuses(ctx context.Context) ([]models.Status, error) {
	return s.stores.Statuses().List(ctx)
}

// Priorities are ordered from Highest to Lowest.
func (s *LookupService) Priorities(ctx context.Context) ([]models.Priority, error) {
	return s.stores.Priorities().List(ctx)
}

// Users lists users, optionally only those holding role. Blank role lists
// everyone; "staff" and "ROLE_STAFF" are both accepted and an unknown role
// matches nobody.
func (s *LookupService) Users(ctx context.Context, role string) ([]UserView, error) {
	var r models.Role
	if strings.TrimSpace(role) != "" {
		parsed, ok := models.ParseRole(role)
		if !ok {
			return []UserView{}, nil
		}
		r = parsed
	}

	users, err := s.stores.Users().List(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, userView(u))
	}
	return out, nil
}
