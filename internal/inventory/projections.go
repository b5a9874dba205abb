package inventory

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/freezer/internal/categorize"
	"github.com/dukerupert/freezer/internal/model"
)

// Categories returns the categories ordered by name.
func (s *Store) Categories() []model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.SortedCategories()
}

// Drawers returns the drawers in display order.
func (s *Store) Drawers() []model.Drawer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.SortedDrawers()
}

// Items returns every item, newest first.
func (s *Store) Items() []model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.SortedItems()
}

// ItemsInDrawer returns the items of one drawer, newest first.
func (s *Store) ItemsInDrawer(drawerID uuid.UUID) []model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.DeleteFunc(s.doc.SortedItems(), func(it model.Item) bool {
		return it.DrawerID != drawerID
	})
}

// Mappings returns the user mappings ordered by keyword.
func (s *Store) Mappings() []model.FoodMapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.SortedMappings()
}

func (s *Store) Users() []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.SortedUsers()
}

func (s *Store) CurrentUser() model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, _ := s.doc.UserByID(s.doc.CurrentUserID)
	return u
}

// Members returns the household members ordered by role, then name.
func (s *Store) Members() []model.HouseholdMember {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.SortedMembers()
}

func (s *Store) CurrentRole() model.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.CurrentRole()
}

func (s *Store) CanEditContent() bool {
	return s.CurrentRole().CanEditContent()
}

func (s *Store) CanManageMembers() bool {
	return s.CurrentRole().CanManageMembers()
}

func (s *Store) OnboardingComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.OnboardingComplete
}

func (s *Store) Settings() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Settings
}

// Household returns the household with a copy of its member list.
func (s *Store) Household() model.Household {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.doc.Household
	h.Members = slices.Clone(h.Members)
	return h
}

func (s *Store) UserName(id uuid.UUID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.UserName(id)
}

func (s *Store) CategoryName(id uuid.UUID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.CategoryName(id)
}

func (s *Store) DrawerName(id uuid.UUID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.DrawerName(id)
}

// MatchingItems returns the items whose name, quantity, category name or
// drawer name contains term, newest first. A blank term matches everything.
func (s *Store) MatchingItems(term string) []model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.doc.SortedItems()
	q := model.Normalize(term)
	if q == "" {
		return items
	}
	return slices.DeleteFunc(items, func(it model.Item) bool {
		return !strings.Contains(it.NormalizedName, q) &&
			!strings.Contains(model.Normalize(it.Quantity), q) &&
			!strings.Contains(model.Normalize(s.doc.CategoryName(it.CategoryID)), q) &&
			!strings.Contains(model.Normalize(s.doc.DrawerName(it.DrawerID)), q)
	})
}

// ExpiryState classifies item at ref with the household threshold.
func (s *Store) ExpiryState(item model.Item, ref time.Time) model.ExpiryState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.ClassifyExpiry(item.DateAdded, ref, s.doc.Settings.ThresholdMonths)
}

// OverdueItems returns the items already past the threshold at ref, oldest
// first.
func (s *Store) OverdueItems(ref time.Time) []model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overdueItems(ref)
}

func (s *Store) overdueItems(ref time.Time) []model.Item {
	var out []model.Item
	for _, it := range s.doc.Items {
		if model.ClassifyExpiry(it.DateAdded, ref, s.doc.Settings.ThresholdMonths) == model.ExpiryExpired {
			out = append(out, it)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Item) int {
		return a.DateAdded.Compare(b.DateAdded)
	})
	return out
}

// SuggestedCategory returns the category an item called name would be filed
// under.
func (s *Store) SuggestedCategory(name string) (model.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return categorize.SuggestCategory(s.doc, name)
}

// SuggestedDrawer returns the drawer an item of categoryID would go in.
func (s *Store) SuggestedDrawer(categoryID uuid.UUID) (model.Drawer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return categorize.SuggestDrawer(s.doc, categoryID)
}
