package inventory

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/freezer/internal/categorize"
	"github.com/dukerupert/freezer/internal/model"
)

// CompleteOnboarding replaces the drawers with drafts and sets the expiry
// threshold.
func (s *Store) CompleteOnboarding(drafts []model.DrawerDraft, thresholdMonths int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireEdit(); err != nil {
		return err
	}
	fallback, ok := categorize.Default(s.doc)
	if !ok {
		return invalid("no categories")
	}

	drawers := make([]model.Drawer, 0, len(drafts))
	for i, d := range drafts {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			name = fmt.Sprintf("Drawer %d", i+1)
		}
		catID := d.CategoryID
		if _, ok := s.doc.CategoryByID(catID); !ok {
			catID = fallback.ID
		}
		drawers = append(drawers, model.Drawer{ID: s.newID(), Name: name, Order: i, DefaultCategoryID: catID})
	}

	s.repointItemDrawers(drawers)
	s.doc.Drawers = drawers
	s.doc.Settings.ThresholdMonths = max(1, thresholdMonths)
	s.doc.OnboardingComplete = true
	s.saveAndRefresh()
	return nil
}

// NewItem describes an item to add. Nil category or drawer ids are filled in
// from the categorization heuristic.
type NewItem struct {
	Name       string
	Quantity   string
	DateAdded  time.Time
	CategoryID uuid.UUID
	DrawerID   uuid.UUID
}

func (s *Store) AddItem(in NewItem) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireEdit(); err != nil {
		return model.Item{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Item{}, invalid("item name is blank")
	}

	catID, err := s.resolveCategory(in.CategoryID, name)
	if err != nil {
		return model.Item{}, err
	}
	drawerID, err := s.resolveDrawer(in.DrawerID, catID)
	if err != nil {
		return model.Item{}, err
	}

	now := s.now()
	added := in.DateAdded
	if added.IsZero() {
		added = now
	}
	item := model.Item{
		ID:             s.newID(),
		Name:           name,
		NormalizedName: model.Normalize(name),
		CategoryID:     catID,
		DrawerID:       drawerID,
		Quantity:       strings.TrimSpace(in.Quantity),
		DateAdded:      added,
		CreatedBy:      s.doc.CurrentUserID,
		UpdatedBy:      s.doc.CurrentUserID,
		UpdatedAt:      now,
	}
	s.doc.Items = append(s.doc.Items, item)
	s.saveAndRefresh()
	return item, nil
}

func (s *Store) resolveCategory(id uuid.UUID, name string) (uuid.UUID, error) {
	if id != uuid.Nil {
		if _, ok := s.doc.CategoryByID(id); !ok {
			return uuid.Nil, notFound("category", id)
		}
		return id, nil
	}
	c, ok := categorize.SuggestCategory(s.doc, name)
	if !ok {
		return uuid.Nil, invalid("no categories")
	}
	return c.ID, nil
}

func (s *Store) resolveDrawer(id, categoryID uuid.UUID) (uuid.UUID, error) {
	if id != uuid.Nil {
		if _, ok := s.doc.DrawerByID(id); !ok {
			return uuid.Nil, notFound("drawer", id)
		}
		return id, nil
	}
	d, ok := categorize.SuggestDrawer(s.doc, categoryID)
	if !ok {
		return uuid.Nil, invalid("no drawers")
	}
	return d.ID, nil
}

// UpdateItem replaces the editable fields of an existing item, keyed by
// item.ID. The creator is preserved; the editor and edit time are stamped.
func (s *Store) UpdateItem(item model.Item) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireEdit(); err != nil {
		return model.Item{}, err
	}
	i := s.itemIndex(item.ID)
	if i < 0 {
		return model.Item{}, notFound("item", item.ID)
	}
	name := strings.TrimSpace(item.Name)
	if name == "" {
		return model.Item{}, invalid("item name is blank")
	}
	if _, ok := s.doc.CategoryByID(item.CategoryID); !ok {
		return model.Item{}, notFound("category", item.CategoryID)
	}
	if _, ok := s.doc.DrawerByID(item.DrawerID); !ok {
		return model.Item{}, notFound("drawer", item.DrawerID)
	}

	cur := &s.doc.Items[i]
	cur.Name = name
	cur.NormalizedName = model.Normalize(name)
	cur.Quantity = strings.TrimSpace(item.Quantity)
	cur.CategoryID = item.CategoryID
	cur.DrawerID = item.DrawerID
	if !item.DateAdded.IsZero() {
		cur.DateAdded = item.DateAdded
	}
	cur.UpdatedBy = s.doc.CurrentUserID
	cur.UpdatedAt = s.now()
	out := *cur
	s.saveAndRefresh()
	return out, nil
}

func (s *Store) DeleteItem(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireEdit(); err != nil {
		return err
	}
	_, err := s.deleteItem(id)
	return err
}

func (s *Store) deleteItem(id uuid.UUID) (model.Item, error) {
	i := s.itemIndex(id)
	if i < 0 {
		return model.Item{}, notFound("item", id)
	}
	item := s.doc.Items[i]
	s.doc.Items = slices.Delete(s.doc.Items, i, i+1)
	s.saveAndRefresh()
	return item, nil
}

func (s *Store) itemIndex(id uuid.UUID) int {
	return slices.IndexFunc(s.doc.Items, func(it model.Item) bool { return it.ID == id })
}

func (s *Store) SetThresholdMonths(months int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireEdit(); err != nil {
		return err
	}
	s.doc.Settings.ThresholdMonths = max(1, months)
	s.saveAndRefresh()
	return nil
}

func (s *Store) SetNotificationHour(hour int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireEdit(); err != nil {
		return err
	}
	s.doc.Settings.NotificationHour = model.ClampHour(hour)
	s.saveAndRefresh()
	return nil
}

// UpdateDrawers replaces the drawer list. Drafts keep the given order;
// existing drawer ids are reused position by position so items stay put.
// Items in drawers that no longer exist move to the first drawer.
func (s *Store) UpdateDrawers(drafts []model.DrawerDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireEdit(); err != nil {
		return err
	}
	if len(drafts) == 0 && len(s.doc.Items) > 0 {
		return invalid("cannot remove every drawer while items remain")
	}
	fallback, ok := categorize.Default(s.doc)
	if !ok {
		return invalid("no categories")
	}

	existing := s.doc.SortedDrawers()
	drawers := make([]model.Drawer, 0, len(drafts))
	for i, d := range drafts {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			name = fmt.Sprintf("Drawer %d", i+1)
		}
		catID := d.CategoryID
		if _, ok := s.doc.CategoryByID(catID); !ok {
			catID = fallback.ID
		}
		id := s.newID()
		if i < len(existing) {
			id = existing[i].ID
		}
		drawers = append(drawers, model.Drawer{ID: id, Name: name, Order: i, DefaultCategoryID: catID})
	}

	s.repointItemDrawers(drawers)
	s.doc.Drawers = drawers
	s.save()
	return nil
}

// repointItemDrawers moves items whose drawer is not in next to its first
// drawer.
func (s *Store) repointItemDrawers(next []model.Drawer) {
	if len(next) == 0 {
		return
	}
	for i := range s.doc.Items {
		if !slices.ContainsFunc(next, func(d model.Drawer) bool { return d.ID == s.doc.Items[i].DrawerID }) {
			s.doc.Items[i].DrawerID = next[0].ID
		}
	}
}

func (s *Store) AddCategory(name string) (model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireEdit(); err != nil {
		return model.Category{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, invalid("category name is blank")
	}
	if slices.ContainsFunc(s.doc.Categories, func(c model.Category) bool {
		return strings.EqualFold(strings.TrimSpace(c.Name), name)
	}) {
		return model.Category{}, invalid("category %q already exists", name)
	}
	c := model.Category{ID: s.newID(), Name: name}
	s.doc.Categories = append(s.doc.Categories, c)
	s.save()
	return c, nil
}

// UpdateCategories replaces the category set. Blank and case-insensitively
// duplicate entries are dropped; an empty result is refused. References to
// categories no longer present move to the first remaining category.
func (s *Store) UpdateCategories(categories []model.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireEdit(); err != nil {
		return err
	}

	next := make([]model.Category, 0, len(categories))
	seen := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		name := strings.TrimSpace(c.Name)
		key := model.Normalize(name)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if c.ID == uuid.Nil {
			c.ID = s.newID()
		}
		c.Name = name
		next = append(next, c)
	}
	if len(next) == 0 {
		return invalid("at least one category is required")
	}

	s.doc.Categories = next
	s.repointCategories(next[0].ID)
	s.save()
	return nil
}

// DeleteCategory removes a category and moves everything filed under it to
// the first other category.
func (s *Store) DeleteCategory(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireEdit(); err != nil {
		return err
	}
	i := slices.IndexFunc(s.doc.Categories, func(c model.Category) bool { return c.ID == id })
	if i < 0 {
		return notFound("category", id)
	}
	if len(s.doc.Categories) <= 1 {
		return invalid("cannot delete the last category")
	}

	s.doc.Categories = slices.Delete(s.doc.Categories, i, i+1)
	s.repointCategories(s.doc.Categories[0].ID)
	s.save()
	return nil
}

// repointCategories points every drawer, item and mapping whose category no
// longer exists at fallback.
func (s *Store) repointCategories(fallback uuid.UUID) {
	exists := func(id uuid.UUID) bool {
		_, ok := s.doc.CategoryByID(id)
		return ok
	}
	for i := range s.doc.Drawers {
		if !exists(s.doc.Drawers[i].DefaultCategoryID) {
			s.doc.Drawers[i].DefaultCategoryID = fallback
		}
	}
	for i := range s.doc.Items {
		if !exists(s.doc.Items[i].CategoryID) {
			s.doc.Items[i].CategoryID = fallback
		}
	}
	for i := range s.doc.Mappings {
		if !exists(s.doc.Mappings[i].CategoryID) {
			s.doc.Mappings[i].CategoryID = fallback
		}
	}
}

// AddUserMapping files names containing keyword under categoryID. An
// existing mapping for the same keyword is overwritten.
func (s *Store) AddUserMapping(keyword string, categoryID uuid.UUID) (model.FoodMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireEdit(); err != nil {
		return model.FoodMapping{}, err
	}
	keyword = strings.TrimSpace(keyword)
	key := model.Normalize(keyword)
	if key == "" {
		return model.FoodMapping{}, invalid("keyword is blank")
	}
	if _, ok := s.doc.CategoryByID(categoryID); !ok {
		return model.FoodMapping{}, notFound("category", categoryID)
	}

	if i := slices.IndexFunc(s.doc.Mappings, func(m model.FoodMapping) bool {
		return model.Normalize(m.Keyword) == key
	}); i >= 0 {
		s.doc.Mappings[i].Keyword = keyword
		s.doc.Mappings[i].CategoryID = categoryID
		out := s.doc.Mappings[i]
		s.save()
		return out, nil
	}

	m := model.FoodMapping{ID: s.newID(), Keyword: keyword, CategoryID: categoryID}
	s.doc.Mappings = append(s.doc.Mappings, m)
	s.save()
	return m, nil
}

func (s *Store) UpdateUserMapping(m model.FoodMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireEdit(); err != nil {
		return err
	}
	i := slices.IndexFunc(s.doc.Mappings, func(cur model.FoodMapping) bool { return cur.ID == m.ID })
	if i < 0 {
		return notFound("mapping", m.ID)
	}
	keyword := strings.TrimSpace(m.Keyword)
	key := model.Normalize(keyword)
	if key == "" {
		return invalid("keyword is blank")
	}
	if _, ok := s.doc.CategoryByID(m.CategoryID); !ok {
		return notFound("category", m.CategoryID)
	}
	if slices.ContainsFunc(s.doc.Mappings, func(cur model.FoodMapping) bool {
		return cur.ID != m.ID && model.Normalize(cur.Keyword) == key
	}) {
		return invalid("a mapping for %q already exists", keyword)
	}
	s.doc.Mappings[i].Keyword = keyword
	s.doc.Mappings[i].CategoryID = m.CategoryID
	s.save()
	return nil
}

func (s *Store) DeleteMapping(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireEdit(); err != nil {
		return err
	}
	i := slices.IndexFunc(s.doc.Mappings, func(m model.FoodMapping) bool { return m.ID == id })
	if i < 0 {
		return notFound("mapping", id)
	}
	s.doc.Mappings = slices.Delete(s.doc.Mappings, i, i+1)
	s.save()
	return nil
}
