package categorize

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/freezer/internal/model"
)

func newDoc() *model.Document {
	return model.NewDocument(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
}

func categoryID(t *testing.T, doc *model.Document, name string) uuid.UUID {
	t.Helper()
	for _, c := range doc.Categories {
		if c.Name == name {
			return c.ID
		}
	}
	t.Fatalf("category %q not found", name)
	return uuid.Nil
}

func TestSuggestCategoryBuiltIn(t *testing.T) {
	doc := newDoc()
	tests := []struct {
		input string
		want  string
	}{
		{"Chicken Thighs", "Meat"},
		{"salmon fillets", "Fish"},
		{"Greek Yoghurt", "Dairy"},
		{"frozen peas", "Fruit & Veg"},
		{"leftover spag bol", "Ready Meal"},
		{"Tomato Soup", "Ready Meal"},
		{"  BEEF MINCE  ", "Meat"},
	}
	for _, tt := range tests {
		got, ok := SuggestCategory(doc, tt.input)
		if !ok || got.Name != tt.want {
			t.Errorf("SuggestCategory(%q) = %q, %v, want %q", tt.input, got.Name, ok, tt.want)
		}
	}
}

func TestSuggestCategoryUserMappingWins(t *testing.T) {
	doc := newDoc()
	doc.Mappings = []model.FoodMapping{
		{ID: uuid.New(), Keyword: "Thigh", CategoryID: categoryID(t, doc, "Ready Meal")},
	}

	got, ok := SuggestCategory(doc, "Chicken Thighs")
	if !ok || got.Name != "Ready Meal" {
		t.Errorf("SuggestCategory = %q, want %q", got.Name, "Ready Meal")
	}
}

func TestSuggestCategoryMappingToDeletedCategory(t *testing.T) {
	doc := newDoc()
	doc.Mappings = []model.FoodMapping{{ID: uuid.New(), Keyword: "thigh", CategoryID: uuid.New()}}

	got, _ := SuggestCategory(doc, "chicken thighs")
	if got.Name != "Meat" {
		t.Errorf("SuggestCategory = %q, want Meat", got.Name)
	}
}

func TestSuggestCategoryBuiltInCategoryRemoved(t *testing.T) {
	doc := newDoc()
	var kept []model.Category
	for _, c := range doc.Categories {
		if c.Name != "Meat" {
			kept = append(kept, c)
		}
	}
	doc.Categories = kept

	got, ok := SuggestCategory(doc, "chicken")
	if !ok || got.Name != "Dairy" {
		t.Errorf("SuggestCategory = %q, want first by name %q", got.Name, "Dairy")
	}
}

func TestSuggestCategoryFallback(t *testing.T) {
	doc := newDoc()
	got, ok := SuggestCategory(doc, "mystery box")
	if !ok || got.Name != "Dairy" {
		t.Errorf("SuggestCategory = %q, want %q", got.Name, "Dairy")
	}

	if _, ok := SuggestCategory(doc, "   "); ok {
		t.Error("blank name should not suggest")
	}
}

func TestDefaultIgnoresCase(t *testing.T) {
	doc := newDoc()
	doc.Categories = append(doc.Categories, model.Category{ID: uuid.New(), Name: "apple pies"})
	got, ok := Default(doc)
	if !ok || got.Name != "apple pies" {
		t.Errorf("Default = %q, want %q", got.Name, "apple pies")
	}
}

func TestSuggestDrawer(t *testing.T) {
	doc := newDoc()
	meat := categoryID(t, doc, "Meat")
	fish := categoryID(t, doc, "Fish")

	if _, ok := SuggestDrawer(doc, meat); ok {
		t.Error("no drawers should give no suggestion")
	}

	doc.Drawers = []model.Drawer{
		{ID: uuid.New(), Name: "Bottom", Order: 2, DefaultCategoryID: meat},
		{ID: uuid.New(), Name: "Middle", Order: 1, DefaultCategoryID: meat},
		{ID: uuid.New(), Name: "Top", Order: 0, DefaultCategoryID: categoryID(t, doc, "Dairy")},
	}

	if got, _ := SuggestDrawer(doc, meat); got.Name != "Middle" {
		t.Errorf("SuggestDrawer(meat) = %q, want Middle", got.Name)
	}
	if got, _ := SuggestDrawer(doc, fish); got.Name != "Top" {
		t.Errorf("SuggestDrawer(fish) = %q, want Top", got.Name)
	}
}
