package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is written into every encoded document.
const SchemaVersion = 1

// Document is the aggregate root: the unit of load, save and sync.
type Document struct {
	Version            int           `json:"version"`
	OnboardingComplete bool          `json:"onboarding_complete"`
	Users              []User        `json:"users"`
	CurrentUserID      uuid.UUID     `json:"current_user_id"`
	Household          Household     `json:"household"`
	Categories         []Category    `json:"categories"`
	Drawers            []Drawer      `json:"drawers"`
	Items              []Item        `json:"items"`
	Mappings           []FoodMapping `json:"mappings"`
	Settings           Settings      `json:"settings"`
}

// NewDocument returns the first-run document: seeded categories, a single
// owner and onboarding still pending.
func NewDocument(now time.Time) *Document {
	user := User{ID: uuid.New(), DisplayName: DefaultUserName}
	categories := make([]Category, 0, len(DefaultCategoryNames))
	for _, name := range DefaultCategoryNames {
		categories = append(categories, Category{ID: uuid.New(), Name: name})
	}

	return &Document{
		Version:       SchemaVersion,
		Users:         []User{user},
		CurrentUserID: user.ID,
		Household: Household{
			ID:        uuid.New(),
			Name:      DefaultHouseholdName,
			CreatedAt: now,
			Members: []HouseholdMember{
				{ID: uuid.New(), UserID: user.ID, Role: RoleOwner, JoinedAt: now},
			},
		},
		Categories: categories,
		Drawers:    []Drawer{},
		Items:      []Item{},
		Mappings:   []FoodMapping{},
		Settings:   DefaultSettings(),
	}
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Users = slices.Clone(d.Users)
	c.Household.Members = slices.Clone(d.Household.Members)
	c.Categories = slices.Clone(d.Categories)
	c.Drawers = slices.Clone(d.Drawers)
	c.Items = slices.Clone(d.Items)
	c.Mappings = slices.Clone(d.Mappings)
	return &c
}

// Encode serializes the document.
func Encode(d *Document) ([]byte, error) {
	out := d.Clone()
	out.Version = SchemaVersion
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// Decode parses an encoded document. Missing fields take their first-run
// defaults.
func Decode(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &d, nil
}

// UnmarshalJSON fills absent top-level fields with defaults so older
// encodings stay readable.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw struct {
		Version            *int           `json:"version"`
		OnboardingComplete *bool          `json:"onboarding_complete"`
		Users              *[]User        `json:"users"`
		CurrentUserID      *uuid.UUID     `json:"current_user_id"`
		Household          *Household     `json:"household"`
		Categories         *[]Category    `json:"categories"`
		Drawers            *[]Drawer      `json:"drawers"`
		Items              *[]Item        `json:"items"`
		Mappings           *[]FoodMapping `json:"mappings"`
		Settings           *Settings      `json:"settings"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	now := time.Now().UTC()
	fallback := NewDocument(now)

	*d = Document{
		Version:    SchemaVersion,
		Users:      fallback.Users,
		Categories: fallback.Categories,
		Drawers:    []Drawer{},
		Items:      []Item{},
		Mappings:   []FoodMapping{},
		Settings:   DefaultSettings(),
	}
	if raw.Version != nil {
		d.Version = *raw.Version
	}
	if raw.OnboardingComplete != nil {
		d.OnboardingComplete = *raw.OnboardingComplete
	}
	if raw.Users != nil {
		d.Users = *raw.Users
	}
	if raw.Categories != nil {
		d.Categories = *raw.Categories
	}
	if raw.Drawers != nil {
		d.Drawers = *raw.Drawers
	}
	if raw.Items != nil {
		d.Items = *raw.Items
	}
	if raw.Mappings != nil {
		d.Mappings = *raw.Mappings
	}
	if raw.Settings != nil {
		d.Settings = *raw.Settings
	}

	switch {
	case raw.CurrentUserID != nil:
		d.CurrentUserID = *raw.CurrentUserID
	case len(d.Users) > 0:
		d.CurrentUserID = d.Users[0].ID
	default:
		d.CurrentUserID = fallback.CurrentUserID
	}

	if raw.Household != nil {
		d.Household = *raw.Household
	} else {
		ownerID := d.CurrentUserID
		if len(d.Users) > 0 {
			ownerID = d.Users[0].ID
		}
		d.Household = Household{
			ID:        uuid.New(),
			Name:      DefaultHouseholdName,
			CreatedAt: now,
			Members: []HouseholdMember{
				{ID: uuid.New(), UserID: ownerID, Role: RoleOwner, JoinedAt: now},
			},
		}
	}
	return nil
}

// UnmarshalJSON defaults the audit fields of items written before they
// existed.
func (it *Item) UnmarshalJSON(data []byte) error {
	type plain Item
	var raw struct {
		plain
		CreatedBy *uuid.UUID `json:"created_by"`
		UpdatedBy *uuid.UUID `json:"updated_by"`
		UpdatedAt *time.Time `json:"updated_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*it = Item(raw.plain)
	it.CreatedBy = uuid.New()
	if raw.CreatedBy != nil {
		it.CreatedBy = *raw.CreatedBy
	}
	it.UpdatedBy = it.CreatedBy
	if raw.UpdatedBy != nil {
		it.UpdatedBy = *raw.UpdatedBy
	}
	it.UpdatedAt = it.DateAdded
	if raw.UpdatedAt != nil {
		it.UpdatedAt = *raw.UpdatedAt
	}
	return nil
}

// UserByID returns the user with the given id.
func (d *Document) UserByID(id uuid.UUID) (User, bool) {
	for _, u := range d.Users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// CategoryByID returns the category with the given id.
func (d *Document) CategoryByID(id uuid.UUID) (Category, bool) {
	for _, c := range d.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// DrawerByID returns the drawer with the given id.
func (d *Document) DrawerByID(id uuid.UUID) (Drawer, bool) {
	for _, dr := range d.Drawers {
		if dr.ID == id {
			return dr, true
		}
	}
	return Drawer{}, false
}

// MemberForUser returns the membership held by userID.
func (d *Document) MemberForUser(userID uuid.UUID) (HouseholdMember, bool) {
	for _, m := range d.Household.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return HouseholdMember{}, false
}

// RoleOf returns the role of userID. Users without a membership are viewers.
func (d *Document) RoleOf(userID uuid.UUID) Role {
	if m, ok := d.MemberForUser(userID); ok {
		return m.Role
	}
	return RoleViewer
}

// CurrentRole is the role of the acting user.
func (d *Document) CurrentRole() Role {
	return d.RoleOf(d.CurrentUserID)
}

// UserName returns the display name of userID, or "Unknown".
func (d *Document) UserName(userID uuid.UUID) string {
	if u, ok := d.UserByID(userID); ok {
		return u.DisplayName
	}
	return "Unknown"
}

// CategoryName returns the name of category id, or "Unknown".
func (d *Document) CategoryName(id uuid.UUID) string {
	if c, ok := d.CategoryByID(id); ok {
		return c.Name
	}
	return "Unknown"
}

// DrawerName returns the name of drawer id, or "Unknown".
func (d *Document) DrawerName(id uuid.UUID) string {
	if dr, ok := d.DrawerByID(id); ok {
		return dr.Name
	}
	return "Unknown"
}

// HasOwner reports whether at least one member holds the owner role.
func (d *Document) HasOwner() bool {
	for _, m := range d.Household.Members {
		if m.Role == RoleOwner {
			return true
		}
	}
	return false
}

// EnsureOwner promotes the first member to owner when no owner remains.
func (d *Document) EnsureOwner() {
	if d.HasOwner() || len(d.Household.Members) == 0 {
		return
	}
	d.Household.Members[0].Role = RoleOwner
}
