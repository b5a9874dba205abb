package categorize

import (
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/freezer/internal/model"
)

// SuggestCategory returns the category an item called name most likely
// belongs to. User mappings win over the built-in table; when neither
// matches, the first category by name is returned. It reports false only
// for a blank name or a document without categories.
func SuggestCategory(doc *model.Document, name string) (model.Category, bool) {
	normalized := model.Normalize(name)
	if normalized == "" {
		return model.Category{}, false
	}

	// Phase 1: user mappings, in stored order
	for _, m := range doc.Mappings {
		kw := model.Normalize(m.Keyword)
		if kw == "" || !strings.Contains(normalized, kw) {
			continue
		}
		if c, ok := doc.CategoryByID(m.CategoryID); ok {
			return c, true
		}
	}

	// Phase 2: built-in table, resolved by category name
	if catName, ok := BuiltIn(normalized); ok {
		for _, c := range doc.Categories {
			if strings.EqualFold(c.Name, catName) {
				return c, true
			}
		}
	}

	return Default(doc)
}

// Default returns the deterministic fallback category: the first by name.
func Default(doc *model.Document) (model.Category, bool) {
	sorted := doc.SortedCategories()
	if len(sorted) == 0 {
		return model.Category{}, false
	}
	return sorted[0], true
}

// SuggestDrawer returns the lowest-order drawer whose default category is
// categoryID, else the lowest-order drawer.
func SuggestDrawer(doc *model.Document, categoryID uuid.UUID) (model.Drawer, bool) {
	drawers := doc.SortedDrawers()
	for _, d := range drawers {
		if d.DefaultCategoryID == categoryID {
			return d, true
		}
	}
	if len(drawers) == 0 {
		return model.Drawer{}, false
	}
	return drawers[0], true
}

// BuiltIn returns the category name the built-in keyword table assigns to
// an already-normalized item name.
func BuiltIn(normalized string) (string, bool) {
	for _, entry := range builtInKeywords {
		if strings.Contains(normalized, entry.keyword) {
			return entry.category, true
		}
	}
	return "", false
}

type keywordEntry struct {
	keyword  string
	category string
}

// Multi-word keywords first so they win over their parts.
var builtInKeywords = []keywordEntry{
	{"ready meal", "Ready Meal"},
	{"spag bol", "Ready Meal"},

	// Meat
	{"chicken", "Meat"},
	{"beef", "Meat"},
	{"lamb", "Meat"},
	{"pork", "Meat"},
	{"steak", "Meat"},
	{"mince", "Meat"},

	// Fish
	{"fish", "Fish"},
	{"salmon", "Fish"},
	{"cod", "Fish"},
	{"tuna", "Fish"},
	{"prawn", "Fish"},

	// Dairy
	{"milk", "Dairy"},
	{"cheese", "Dairy"},
	{"butter", "Dairy"},
	{"yogurt", "Dairy"},
	{"yoghurt", "Dairy"},
	{"cream", "Dairy"},

	// Fruit & Veg
	{"broccoli", "Fruit & Veg"},
	{"carrot", "Fruit & Veg"},
	{"peas", "Fruit & Veg"},
	{"spinach", "Fruit & Veg"},
	{"apple", "Fruit & Veg"},
	{"berries", "Fruit & Veg"},

	// Ready Meal
	{"soup", "Ready Meal"},
	{"lasagne", "Ready Meal"},
	{"curry", "Ready Meal"},
	{"pizza", "Ready Meal"},
}
