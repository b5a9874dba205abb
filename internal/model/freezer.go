package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Category struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type Drawer struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Order             int       `json:"order"`
	DefaultCategoryID uuid.UUID `json:"default_category_id"`
}

type Item struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	NormalizedName string    `json:"normalized_name"`
	CategoryID     uuid.UUID `json:"category_id"`
	DrawerID       uuid.UUID `json:"drawer_id"`
	Quantity       string    `json:"quantity"`
	DateAdded      time.Time `json:"date_added"`
	CreatedBy      uuid.UUID `json:"created_by"`
	UpdatedBy      uuid.UUID `json:"updated_by"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FoodMapping routes item names containing Keyword to a category.
type FoodMapping struct {
	ID         uuid.UUID `json:"id"`
	Keyword    string    `json:"keyword"`
	CategoryID uuid.UUID `json:"category_id"`
}

type Settings struct {
	ThresholdMonths  int `json:"threshold_months"`
	NotificationHour int `json:"notification_hour"`
}

// DrawerDraft describes a drawer to create during onboarding.
type DrawerDraft struct {
	Name       string    `json:"name"`
	CategoryID uuid.UUID `json:"category_id"`
}

const (
	DefaultThresholdMonths  = 6
	DefaultNotificationHour = 9
	DefaultUserName         = "You"
	DefaultHouseholdName    = "Home Freezer"
)

// DefaultCategoryNames seeds the category list of a new document.
var DefaultCategoryNames = []string{"Meat", "Fish", "Dairy", "Fruit & Veg", "Ready Meal"}

// DefaultSettings returns the settings of a new document.
func DefaultSettings() Settings {
	return Settings{
		ThresholdMonths:  DefaultThresholdMonths,
		NotificationHour: DefaultNotificationHour,
	}
}

// Normalize trims surrounding whitespace and lowercases s. All text identity
// comparisons go through it.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ClampHour bounds h to a valid hour of the day.
func ClampHour(h int) int {
	return min(max(0, h), 23)
}
