package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/freezer/internal/inventory"
	"github.com/dukerupert/freezer/internal/model"
)

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

// findItem resolves an item by id or unique id prefix.
func findItem(store *inventory.Store, ref string) (model.Item, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	var found []model.Item
	for _, it := range store.Items() {
		if strings.HasPrefix(it.ID.String(), ref) {
			found = append(found, it)
		}
	}
	switch {
	case ref == "" || len(found) == 0:
		return model.Item{}, fmt.Errorf("no item with id %q", ref)
	case len(found) > 1:
		return model.Item{}, fmt.Errorf("id %q matches %d items", ref, len(found))
	}
	return found[0], nil
}

func findCategory(store *inventory.Store, name string) (model.Category, error) {
	for _, c := range store.Categories() {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			return c, nil
		}
	}
	return model.Category{}, fmt.Errorf("no category named %q", name)
}

// findDrawer resolves a drawer by name or 1-based position.
func findDrawer(store *inventory.Store, ref string) (model.Drawer, error) {
	drawers := store.Drawers()
	if n, err := strconv.Atoi(strings.TrimSpace(ref)); err == nil && n >= 1 && n <= len(drawers) {
		return drawers[n-1], nil
	}
	for _, d := range drawers {
		if strings.EqualFold(d.Name, strings.TrimSpace(ref)) {
			return d, nil
		}
	}
	return model.Drawer{}, fmt.Errorf("no drawer %q", ref)
}

func findMember(store *inventory.Store, name string) (model.HouseholdMember, error) {
	for _, m := range store.Members() {
		if strings.EqualFold(store.UserName(m.UserID), strings.TrimSpace(name)) {
			return m, nil
		}
	}
	return model.HouseholdMember{}, fmt.Errorf("no member named %q", name)
}
