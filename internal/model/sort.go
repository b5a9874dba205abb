package model

import (
	"cmp"
	"slices"
	"strings"
)

// SortedCategories returns the categories ordered by name ignoring case,
// then id.
func (d *Document) SortedCategories() []Category {
	out := slices.Clone(d.Categories)
	slices.SortStableFunc(out, func(a, b Category) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out
}

// SortedDrawers returns the drawers ordered by display order.
func (d *Document) SortedDrawers() []Drawer {
	out := slices.Clone(d.Drawers)
	slices.SortStableFunc(out, func(a, b Drawer) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return out
}

// SortedItems returns the items newest first.
func (d *Document) SortedItems() []Item {
	out := slices.Clone(d.Items)
	slices.SortStableFunc(out, func(a, b Item) int {
		return b.DateAdded.Compare(a.DateAdded)
	})
	return out
}

// SortedMappings returns the mappings ordered by keyword.
func (d *Document) SortedMappings() []FoodMapping {
	out := slices.Clone(d.Mappings)
	slices.SortStableFunc(out, func(a, b FoodMapping) int {
		return strings.Compare(a.Keyword, b.Keyword)
	})
	return out
}

// SortedMembers returns the members ordered by role rank, then display name.
func (d *Document) SortedMembers() []HouseholdMember {
	out := slices.Clone(d.Household.Members)
	slices.SortStableFunc(out, func(a, b HouseholdMember) int {
		if c := cmp.Compare(a.Role.Rank(), b.Role.Rank()); c != 0 {
			return c
		}
		return strings.Compare(d.UserName(a.UserID), d.UserName(b.UserID))
	})
	return out
}

// SortedUsers returns the users ordered by display name.
func (d *Document) SortedUsers() []User {
	out := slices.Clone(d.Users)
	slices.SortStableFunc(out, func(a, b User) int {
		return strings.Compare(a.DisplayName, b.DisplayName)
	})
	return out
}

// NormalizeDrawerOrder rewrites drawer orders to 0..n-1 keeping their
// relative order.
func (d *Document) NormalizeDrawerOrder() {
	d.Drawers = d.SortedDrawers()
	for i := range d.Drawers {
		d.Drawers[i].Order = i
	}
}
