package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Repair restores the invariants of a loaded document: at least one user, a
// current user that exists and is a member, at least one owner, at least one
// category, contiguous drawer order, and references from drawers, items and
// mappings that resolve. It reports whether anything changed.
func (d *Document) Repair(now time.Time, newID func() uuid.UUID) bool {
	if newID == nil {
		newID = uuid.New
	}
	changed := false

	if len(d.Users) == 0 {
		u := User{ID: newID(), DisplayName: DefaultUserName}
		d.Users = []User{u}
		d.CurrentUserID = u.ID
		changed = true
	}

	if _, ok := d.UserByID(d.CurrentUserID); !ok {
		d.CurrentUserID = d.Users[0].ID
		changed = true
	}

	if _, ok := d.MemberForUser(d.CurrentUserID); !ok {
		d.Household.Members = append(d.Household.Members, HouseholdMember{
			ID:       newID(),
			UserID:   d.CurrentUserID,
			Role:     RoleOwner,
			JoinedAt: now,
		})
		changed = true
	}

	if !d.HasOwner() {
		d.EnsureOwner()
		changed = true
	}

	if d.RepointItemUsers() {
		changed = true
	}
	if d.repairCategories(newID) {
		changed = true
	}
	if d.repairDrawers(newID) {
		changed = true
	}

	if d.Version != SchemaVersion {
		d.Version = SchemaVersion
		changed = true
	}
	return changed
}

// RepointItemUsers credits items whose creator or editor no longer exists to
// the current user. It reports whether anything changed.
func (d *Document) RepointItemUsers() bool {
	changed := false
	for i := range d.Items {
		if _, ok := d.UserByID(d.Items[i].CreatedBy); !ok {
			d.Items[i].CreatedBy = d.CurrentUserID
			changed = true
		}
		if _, ok := d.UserByID(d.Items[i].UpdatedBy); !ok {
			d.Items[i].UpdatedBy = d.CurrentUserID
			changed = true
		}
	}
	return changed
}

func (d *Document) repairCategories(newID func() uuid.UUID) bool {
	changed := false
	if len(d.Categories) == 0 {
		d.Categories = make([]Category, 0, len(DefaultCategoryNames))
		for _, name := range DefaultCategoryNames {
			d.Categories = append(d.Categories, Category{ID: newID(), Name: name})
		}
		changed = true
	}

	fallback := d.Categories[0].ID
	for i := range d.Drawers {
		if _, ok := d.CategoryByID(d.Drawers[i].DefaultCategoryID); !ok {
			d.Drawers[i].DefaultCategoryID = fallback
			changed = true
		}
	}
	for i := range d.Items {
		if _, ok := d.CategoryByID(d.Items[i].CategoryID); !ok {
			d.Items[i].CategoryID = fallback
			changed = true
		}
	}
	for i := range d.Mappings {
		if _, ok := d.CategoryByID(d.Mappings[i].CategoryID); !ok {
			d.Mappings[i].CategoryID = fallback
			changed = true
		}
	}
	return changed
}

func (d *Document) repairDrawers(newID func() uuid.UUID) bool {
	changed := false
	dangling := slices.ContainsFunc(d.Items, func(it Item) bool {
		_, ok := d.DrawerByID(it.DrawerID)
		return !ok
	})
	if dangling && len(d.Drawers) == 0 {
		d.Drawers = []Drawer{{
			ID:                newID(),
			Name:              "Drawer 1",
			DefaultCategoryID: d.Categories[0].ID,
		}}
		changed = true
	}

	sorted := d.SortedDrawers()
	for i, dr := range sorted {
		if dr.Order != i || d.Drawers[i].ID != dr.ID {
			d.NormalizeDrawerOrder()
			changed = true
			break
		}
	}

	if dangling {
		first := d.Drawers[0].ID
		for i := range d.Items {
			if _, ok := d.DrawerByID(d.Items[i].DrawerID); !ok {
				d.Items[i].DrawerID = first
			}
		}
		changed = true
	}
	return changed
}
