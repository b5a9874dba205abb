package inventory

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/freezer/internal/model"
	"github.com/dukerupert/freezer/internal/reminder"
	"github.com/dukerupert/freezer/internal/repository"
)

// memRepo is an in-memory repository.Repository that counts saves.
type memRepo struct {
	mu      sync.Mutex
	doc     *model.Document
	saves   int
	loadErr error
	syncErr error
	onSync  func(*memRepo)
}

func (r *memRepo) Backend() repository.Backend { return repository.BackendLocal }

func (r *memRepo) Load() (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.doc.Clone(), nil
}

func (r *memRepo) Save(doc *model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc = doc.Clone()
	r.saves++
	return nil
}

func (r *memRepo) LoadSnapshot() *model.Document {
	doc, _ := r.Load()
	return doc
}

func (r *memRepo) SyncFromRemote(context.Context) error {
	if r.onSync != nil {
		r.onSync(r)
	}
	return r.syncErr
}

func (r *memRepo) EnsureSubscriptions(context.Context) error { return nil }

func (r *memRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func (r *memRepo) encoded(t *testing.T) []byte {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := model.Encode(r.doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return data
}

type fakeNotifier struct {
	scheduled []reminder.Request
	clears    int
}

func (n *fakeNotifier) Schedule(req reminder.Request) { n.scheduled = append(n.scheduled, req) }
func (n *fakeNotifier) Clear()                        { n.clears++ }

var refTime = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

// seededDoc returns an onboarded document with two drawers.
func seededDoc() *model.Document {
	doc := model.NewDocument(refTime)
	doc.OnboardingComplete = true
	meat := doc.Categories[0].ID
	doc.Drawers = []model.Drawer{
		{ID: uuid.New(), Name: "Top", Order: 0, DefaultCategoryID: meat},
		{ID: uuid.New(), Name: "Bottom", Order: 1, DefaultCategoryID: doc.Categories[1].ID},
	}
	return doc
}

func newTestStore(t *testing.T, doc *model.Document, opts ...Option) (*Store, *memRepo) {
	t.Helper()
	repo := &memRepo{doc: doc}
	opts = append([]Option{WithClock(func() time.Time { return refTime })}, opts...)
	s, err := New(repo, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, repo
}

func categoryNamed(t *testing.T, s *Store, name string) model.Category {
	t.Helper()
	for _, c := range s.Categories() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no category %q", name)
	return model.Category{}
}

func TestNewCreatesFirstRunDocument(t *testing.T) {
	s, repo := newTestStore(t, nil)

	if repo.saveCount() != 1 {
		t.Errorf("saves = %d, want 1", repo.saveCount())
	}
	if s.OnboardingComplete() {
		t.Error("new document should need onboarding")
	}
	if s.CurrentRole() != model.RoleOwner {
		t.Errorf("role = %s, want owner", s.CurrentRole())
	}
	if got := len(s.Categories()); got != len(model.DefaultCategoryNames) {
		t.Errorf("categories = %d", got)
	}
}

func TestNewRepairsAndSaves(t *testing.T) {
	doc := seededDoc()
	doc.CurrentUserID = uuid.New()

	s, repo := newTestStore(t, doc)
	if repo.saveCount() != 1 {
		t.Errorf("saves = %d, want 1 after repair", repo.saveCount())
	}
	if s.CurrentUser().ID != doc.Users[0].ID {
		t.Error("current user not repaired")
	}
}

func TestNewRepairsEmptyCategories(t *testing.T) {
	doc := seededDoc()
	doc.Categories = []model.Category{}

	s, repo := newTestStore(t, doc)
	if repo.saveCount() != 1 {
		t.Errorf("saves = %d, want 1 after repair", repo.saveCount())
	}
	if len(s.Categories()) == 0 {
		t.Fatal("no categories after load")
	}
	item, err := s.AddItem(NewItem{Name: "mystery box"})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if s.CategoryName(item.CategoryID) == "Unknown" {
		t.Error("item category does not resolve")
	}
}

func TestNewLoadError(t *testing.T) {
	repo := &memRepo{loadErr: errors.New("disk on fire")}
	if _, err := New(repo); err == nil {
		t.Fatal("expected error")
	}
}

func TestAddItemSuggestsCategoryAndDrawer(t *testing.T) {
	s, _ := newTestStore(t, seededDoc())

	item, err := s.AddItem(NewItem{Name: "  Chicken Thighs ", Quantity: "2 packs"})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if item.Name != "Chicken Thighs" || item.NormalizedName != "chicken thighs" {
		t.Errorf("name = %q / %q", item.Name, item.NormalizedName)
	}
	if got := s.CategoryName(item.CategoryID); got != "Meat" {
		t.Errorf("category = %q, want Meat", got)
	}
	if got := s.DrawerName(item.DrawerID); got != "Top" {
		t.Errorf("drawer = %q, want Top", got)
	}
	if item.CreatedBy != s.CurrentUser().ID || !item.DateAdded.Equal(refTime) {
		t.Errorf("audit fields = %+v", item)
	}
}

func TestAddItemMappingOverridesBuiltIn(t *testing.T) {
	s, _ := newTestStore(t, seededDoc())
	ready := categoryNamed(t, s, "Ready Meal")

	if _, err := s.AddUserMapping("thigh", ready.ID); err != nil {
		t.Fatalf("AddUserMapping: %v", err)
	}
	item, err := s.AddItem(NewItem{Name: "Chicken Thighs"})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if item.CategoryID != ready.ID {
		t.Errorf("category = %q, want Ready Meal", s.CategoryName(item.CategoryID))
	}
}

func TestAddItemRejections(t *testing.T) {
	s, repo := newTestStore(t, seededDoc())
	before := repo.saveCount()

	tests := []struct {
		name string
		in   NewItem
		want error
	}{
		{"blank name", NewItem{Name: "  "}, ErrInvalid},
		{"unknown category", NewItem{Name: "peas", CategoryID: uuid.New()}, ErrNotFound},
		{"unknown drawer", NewItem{Name: "peas", DrawerID: uuid.New()}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.AddItem(tt.in); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if repo.saveCount() != before {
		t.Error("rejected adds were saved")
	}

	empty, _ := newTestStore(t, model.NewDocument(refTime))
	if _, err := empty.AddItem(NewItem{Name: "peas"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("no drawers: err = %v, want ErrInvalid", err)
	}
}

func TestViewerCannotMutate(t *testing.T) {
	doc := seededDoc()
	doc.Items = append(doc.Items, model.Item{
		ID: uuid.New(), Name: "Peas", NormalizedName: "peas",
		CategoryID: doc.Categories[0].ID, DrawerID: doc.Drawers[0].ID,
		DateAdded: refTime, CreatedBy: doc.CurrentUserID, UpdatedBy: doc.CurrentUserID, UpdatedAt: refTime,
	})
	viewer := model.User{ID: uuid.New(), DisplayName: "Guest"}
	doc.Users = append(doc.Users, viewer)
	doc.Household.Members = append(doc.Household.Members, model.HouseholdMember{
		ID: uuid.New(), UserID: viewer.ID, Role: model.RoleViewer, JoinedAt: refTime,
	})
	doc.CurrentUserID = viewer.ID

	s, repo := newTestStore(t, doc)
	snapshot := repo.encoded(t)
	saves := repo.saveCount()
	item := doc.Items[0]
	cat := doc.Categories[0]

	calls := map[string]func() error{
		"AddItem":             func() error { _, err := s.AddItem(NewItem{Name: "Fish"}); return err },
		"UpdateItem":          func() error { _, err := s.UpdateItem(item); return err },
		"DeleteItem":          func() error { return s.DeleteItem(item.ID) },
		"ConfirmRemoval":      func() error { _, err := s.ConfirmRemoval(item.ID); return err },
		"SetThresholdMonths":  func() error { return s.SetThresholdMonths(3) },
		"SetNotificationHour": func() error { return s.SetNotificationHour(7) },
		"UpdateDrawers":       func() error { return s.UpdateDrawers(nil) },
		"AddCategory":         func() error { _, err := s.AddCategory("Bread"); return err },
		"UpdateCategories":    func() error { return s.UpdateCategories([]model.Category{{Name: "X"}}) },
		"DeleteCategory":      func() error { return s.DeleteCategory(cat.ID) },
		"AddUserMapping":      func() error { _, err := s.AddUserMapping("pea", cat.ID); return err },
		"CompleteOnboarding":  func() error { return s.CompleteOnboarding(nil, 3) },
		"RenameHousehold":     func() error { return s.RenameHousehold("Mine") },
		"AddMember":           func() error { _, err := s.AddMember("Eve", model.RoleOwner); return err },
		"UpdateMemberRole":    func() error { return s.UpdateMemberRole(doc.Household.Members[0].ID, model.RoleViewer) },
		"RemoveMember":        func() error { return s.RemoveMember(doc.Household.Members[0].ID) },
	}
	for name, call := range calls {
		if err := call(); !errors.Is(err, ErrForbidden) {
			t.Errorf("%s: err = %v, want ErrForbidden", name, err)
		}
	}

	if got := s.RemoveItemForAssistant("peas", ""); got.Status != StatusForbidden || got.Dialog != forbiddenDialog {
		t.Errorf("assistant = %+v", got)
	}
	if got := s.ResolveRemoval("I removed peas"); got.Status != VoiceForbidden {
		t.Errorf("voice = %v, want forbidden", got.Status)
	}

	if repo.saveCount() != saves {
		t.Errorf("saves = %d, want %d", repo.saveCount(), saves)
	}
	if !bytes.Equal(repo.encoded(t), snapshot) {
		t.Error("persisted document changed")
	}
}

func TestDeleteCategoryRepoints(t *testing.T) {
	s, _ := newTestStore(t, seededDoc())
	meat := categoryNamed(t, s, "Meat")

	item, err := s.AddItem(NewItem{Name: "steak"})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	m, err := s.AddUserMapping("mince", meat.ID)
	if err != nil {
		t.Fatalf("AddUserMapping: %v", err)
	}

	if err := s.DeleteCategory(meat.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}

	doc := s.Document()
	fallback := doc.Categories[0].ID
	for _, it := range doc.Items {
		if it.ID == item.ID && it.CategoryID != fallback {
			t.Errorf("item category = %s, want %s", it.CategoryID, fallback)
		}
	}
	for _, d := range doc.Drawers {
		if _, ok := doc.CategoryByID(d.DefaultCategoryID); !ok {
			t.Errorf("drawer %s points at a deleted category", d.Name)
		}
	}
	for _, mm := range doc.Mappings {
		if mm.ID == m.ID && mm.CategoryID != fallback {
			t.Errorf("mapping category = %s, want %s", mm.CategoryID, fallback)
		}
	}
}

func TestDeleteLastCategoryRefused(t *testing.T) {
	doc := seededDoc()
	doc.Categories = doc.Categories[:1]
	for i := range doc.Drawers {
		doc.Drawers[i].DefaultCategoryID = doc.Categories[0].ID
	}
	s, repo := newTestStore(t, doc)
	saves := repo.saveCount()

	if err := s.DeleteCategory(doc.Categories[0].ID); !errors.Is(err, ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
	if len(s.Categories()) != 1 || repo.saveCount() != saves {
		t.Error("last category was deleted")
	}
}

func TestUpdateCategories(t *testing.T) {
	s, _ := newTestStore(t, seededDoc())
	if _, err := s.AddItem(NewItem{Name: "salmon"}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	err := s.UpdateCategories([]model.Category{
		{Name: " Frozen "},
		{Name: "frozen"},
		{Name: ""},
		{Name: "Bread"},
	})
	if err != nil {
		t.Fatalf("UpdateCategories: %v", err)
	}

	doc := s.Document()
	var names []string
	for _, c := range doc.Categories {
		names = append(names, c.Name)
	}
	if !slices.Equal(names, []string{"Frozen", "Bread"}) {
		t.Errorf("categories = %v", names)
	}
	first := doc.Categories[0].ID
	for _, it := range doc.Items {
		if it.CategoryID != first {
			t.Errorf("item %s not repointed", it.Name)
		}
	}
	for _, d := range doc.Drawers {
		if d.DefaultCategoryID != first {
			t.Errorf("drawer %s not repointed", d.Name)
		}
	}

	if err := s.UpdateCategories([]model.Category{{Name: " "}}); !errors.Is(err, ErrInvalid) {
		t.Errorf("empty set: err = %v, want ErrInvalid", err)
	}
	if len(s.Categories()) != 2 {
		t.Error("empty update changed categories")
	}
}

func TestMemberInvariants(t *testing.T) {
	s, _ := newTestStore(t, seededDoc())
	self, _ := s.Document().MemberForUser(s.CurrentUser().ID)

	alice, err := s.AddMember("Alice", model.RoleEditor)
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if _, err := s.AddMember(" alice ", model.RoleViewer); !errors.Is(err, ErrInvalid) {
		t.Errorf("duplicate: err = %v, want ErrInvalid", err)
	}
	if _, err := s.AddMember("Bob", model.Role("admin")); !errors.Is(err, ErrInvalid) {
		t.Errorf("bad role: err = %v, want ErrInvalid", err)
	}

	if err := s.UpdateMemberRole(self.ID, model.RoleViewer); !errors.Is(err, ErrForbidden) {
		t.Errorf("self demote: err = %v, want ErrForbidden", err)
	}
	if err := s.RemoveMember(self.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("self remove: err = %v, want ErrForbidden", err)
	}
	if err := s.UpdateMemberRole(alice.ID, model.RoleOwner); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if err := s.RemoveMember(alice.ID); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}

	doc := s.Document()
	if !doc.HasOwner() {
		t.Error("no owner left")
	}
	if _, ok := doc.MemberForUser(s.CurrentUser().ID); !ok {
		t.Error("acting user lost membership")
	}
	if _, ok := doc.UserByID(alice.UserID); ok {
		t.Error("unreferenced user was kept")
	}
	if got := s.Members(); len(got) != 1 || got[0].Role != model.RoleOwner {
		t.Errorf("members = %+v", got)
	}
}

func TestRemovedMemberCannotReturn(t *testing.T) {
	s, repo := newTestStore(t, seededDoc())
	owner := s.CurrentUser()

	bob, err := s.AddMember("Bob", model.RoleEditor)
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if err := s.SwitchCurrentUser(bob.UserID); err != nil {
		t.Fatalf("SwitchCurrentUser: %v", err)
	}
	item, err := s.AddItem(NewItem{Name: "peas"})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := s.SwitchCurrentUser(owner.ID); err != nil {
		t.Fatalf("SwitchCurrentUser: %v", err)
	}
	if err := s.RemoveMember(bob.ID); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}

	if len(s.Users()) != 1 {
		t.Errorf("users = %d, want 1", len(s.Users()))
	}
	got := s.Items()[0]
	if got.ID != item.ID || got.CreatedBy != owner.ID || got.UpdatedBy != owner.ID {
		t.Errorf("item refs = %s/%s, want %s", got.CreatedBy, got.UpdatedBy, owner.ID)
	}
	if err := s.SwitchCurrentUser(bob.UserID); !errors.Is(err, ErrNotFound) {
		t.Errorf("switch to removed user: err = %v, want ErrNotFound", err)
	}

	reopened, err := New(repo, WithClock(func() time.Time { return refTime }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if reopened.CurrentUser().ID != owner.ID || len(reopened.Members()) != 1 {
		t.Errorf("after reopen: current=%s members=%d", reopened.UserName(reopened.CurrentUser().ID), len(reopened.Members()))
	}
}

func TestSwitchCurrentUserRequiresMembership(t *testing.T) {
	doc := seededDoc()
	stray := model.User{ID: uuid.New(), DisplayName: "Stray"}
	doc.Users = append(doc.Users, stray)
	s, _ := newTestStore(t, doc)

	if err := s.SwitchCurrentUser(stray.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if s.CurrentUser().ID == stray.ID {
		t.Error("switched to a user without membership")
	}
}

func TestUpdateItemStampsEditor(t *testing.T) {
	s, _ := newTestStore(t, seededDoc())
	item, _ := s.AddItem(NewItem{Name: "peas"})
	later := refTime.Add(time.Hour)
	s.now = func() time.Time { return later }

	item.Name = "Garden Peas"
	got, err := s.UpdateItem(item)
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if got.NormalizedName != "garden peas" || !got.UpdatedAt.Equal(later) {
		t.Errorf("updated = %+v", got)
	}

	item.ID = uuid.New()
	if _, err := s.UpdateItem(item); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: err = %v, want ErrNotFound", err)
	}
}

func TestUpdateDrawersMovesOrphans(t *testing.T) {
	s, _ := newTestStore(t, seededDoc())
	bottom := s.Drawers()[1]
	item, _ := s.AddItem(NewItem{Name: "ice", DrawerID: bottom.ID})

	if err := s.UpdateDrawers([]model.DrawerDraft{{Name: "Only"}}); err != nil {
		t.Fatalf("UpdateDrawers: %v", err)
	}
	drawers := s.Drawers()
	if len(drawers) != 1 || drawers[0].Name != "Only" {
		t.Fatalf("drawers = %+v", drawers)
	}
	if got := s.ItemsInDrawer(drawers[0].ID); len(got) != 1 || got[0].ID != item.ID {
		t.Errorf("items in drawer = %+v", got)
	}
	if err := s.UpdateDrawers(nil); !errors.Is(err, ErrInvalid) {
		t.Errorf("empty with items: err = %v, want ErrInvalid", err)
	}
}

func TestCompleteOnboarding(t *testing.T) {
	s, _ := newTestStore(t, model.NewDocument(refTime))

	err := s.CompleteOnboarding([]model.DrawerDraft{{Name: "Top"}, {Name: " "}}, 0)
	if err != nil {
		t.Fatalf("CompleteOnboarding: %v", err)
	}
	drawers := s.Drawers()
	if len(drawers) != 2 || drawers[1].Name != "Drawer 2" {
		t.Errorf("drawers = %+v", drawers)
	}
	if s.Settings().ThresholdMonths != 1 || !s.OnboardingComplete() {
		t.Errorf("settings = %+v", s.Settings())
	}
}

func TestMappingUpsert(t *testing.T) {
	s, _ := newTestStore(t, seededDoc())
	meat := categoryNamed(t, s, "Meat")
	fish := categoryNamed(t, s, "Fish")

	first, _ := s.AddUserMapping("Prawn", meat.ID)
	second, err := s.AddUserMapping(" prawn", fish.ID)
	if err != nil {
		t.Fatalf("AddUserMapping: %v", err)
	}
	if first.ID != second.ID || len(s.Mappings()) != 1 {
		t.Errorf("mappings = %+v", s.Mappings())
	}
	if s.Mappings()[0].CategoryID != fish.ID {
		t.Error("mapping category not overwritten")
	}
	if err := s.DeleteMapping(second.ID); err != nil {
		t.Fatalf("DeleteMapping: %v", err)
	}
	if err := s.DeleteMapping(second.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateMappingRejectsDuplicateKeyword(t *testing.T) {
	s, repo := newTestStore(t, seededDoc())
	meat := categoryNamed(t, s, "Meat")

	if _, err := s.AddUserMapping("thigh", meat.ID); err != nil {
		t.Fatalf("AddUserMapping: %v", err)
	}
	wing, err := s.AddUserMapping("wing", meat.ID)
	if err != nil {
		t.Fatalf("AddUserMapping: %v", err)
	}
	saves := repo.saveCount()

	wing.Keyword = " Thigh"
	if err := s.UpdateUserMapping(wing); !errors.Is(err, ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
	if repo.saveCount() != saves {
		t.Error("rejected update was saved")
	}
	count := 0
	for _, m := range s.Mappings() {
		if model.Normalize(m.Keyword) == "thigh" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("mappings for thigh = %d, want 1", count)
	}

	wing.Keyword = "Wings"
	if err := s.UpdateUserMapping(wing); err != nil {
		t.Errorf("renaming to a free keyword: %v", err)
	}
}

func TestMatchingItems(t *testing.T) {
	s, _ := newTestStore(t, seededDoc())
	s.AddItem(NewItem{Name: "Chicken", Quantity: "1kg"})
	s.AddItem(NewItem{Name: "Cod", DrawerID: s.Drawers()[1].ID})

	tests := []struct {
		term string
		want int
	}{
		{"", 2},
		{"CHICK", 1},
		{"1kg", 1},
		{"bottom", 1},
		{"meat", 1},
		{"nothing", 0},
	}
	for _, tt := range tests {
		if got := len(s.MatchingItems(tt.term)); got != tt.want {
			t.Errorf("MatchingItems(%q) = %d, want %d", tt.term, got, tt.want)
		}
	}
}

func TestVoiceRemoval(t *testing.T) {
	s, _ := newTestStore(t, seededDoc())
	drawers := s.Drawers()
	old, _ := s.AddItem(NewItem{Name: "Chicken", DrawerID: drawers[0].ID, DateAdded: refTime.AddDate(0, -2, 0)})
	s.AddItem(NewItem{Name: "Chicken", DrawerID: drawers[1].ID})

	if got := s.ResolveRemoval("hello there"); got.Status != VoiceUnparsed {
		t.Errorf("status = %v, want unparsed", got.Status)
	}
	if got := s.ResolveRemoval("I removed pizza"); got.Status != VoiceNotFound || got.Message != "I could not find pizza in your freezer." {
		t.Errorf("outcome = %+v", got)
	}

	amb := s.ResolveRemoval("I removed chicken")
	if amb.Status != VoiceAmbiguous {
		t.Fatalf("status = %v, want ambiguous", amb.Status)
	}
	if want := "I found chicken in Bottom, Top. Please repeat with the drawer name."; amb.Message != want {
		t.Errorf("message = %q, want %q", amb.Message, want)
	}

	one := s.ResolveRemoval("I removed chicken from drawer 1")
	if one.Status != VoiceSingle || one.Candidate.ID != old.ID {
		t.Fatalf("outcome = %+v", one)
	}
	if len(s.Items()) != 2 {
		t.Error("resolve removed an item")
	}
	if _, err := s.ConfirmRemoval(one.Candidate.ID); err != nil {
		t.Fatalf("ConfirmRemoval: %v", err)
	}
	if len(s.Items()) != 1 {
		t.Errorf("items = %d, want 1", len(s.Items()))
	}
}

func TestRemoveItemForAssistant(t *testing.T) {
	s, _ := newTestStore(t, seededDoc())
	drawers := s.Drawers()
	s.AddItem(NewItem{Name: "Peas", DrawerID: drawers[0].ID})
	s.AddItem(NewItem{Name: "Peas", DrawerID: drawers[1].ID})

	tests := []struct {
		term, drawer string
		status       AssistantStatus
		dialog       string
	}{
		{"", "", StatusNotFound, "I could not find that item in your freezer."},
		{"bread", "", StatusNotFound, "I could not find bread in your freezer."},
		{"peas", "", StatusAmbiguous, "I found peas in Bottom, Top. Please repeat with the drawer name."},
		{"peas", "top", StatusRemoved, "Peas removed from Top."},
		{"peas", "", StatusRemoved, "Peas removed from Bottom."},
	}
	for _, tt := range tests {
		got := s.RemoveItemForAssistant(tt.term, tt.drawer)
		if got.Status != tt.status || got.Dialog != tt.dialog {
			t.Errorf("RemoveItemForAssistant(%q, %q) = %+v, want %s %q", tt.term, tt.drawer, got, tt.status, tt.dialog)
		}
	}
	if len(s.Items()) != 0 {
		t.Errorf("items = %d, want 0", len(s.Items()))
	}
}

func TestSuggestions(t *testing.T) {
	doc := seededDoc()
	for _, name := range []string{"peas ", "Peas", "Apple"} {
		doc.Items = append(doc.Items, model.Item{ID: uuid.New(), Name: name, DrawerID: doc.Drawers[0].ID})
	}

	items := ItemSuggestions(doc)
	if len(items) != 2 || items[0].Name != "Apple" || items[1].Name != "peas" {
		t.Errorf("items = %+v", items)
	}
	drawers := DrawerSuggestions(doc)
	if len(drawers) != 2 || drawers[0].Name != "Top" {
		t.Errorf("drawers = %+v", drawers)
	}
}

func TestReminderRefresh(t *testing.T) {
	n := &fakeNotifier{}
	s, _ := newTestStore(t, seededDoc(), WithNotifier(n))
	initialClears := n.clears

	old, err := s.AddItem(NewItem{Name: "lamb", DateAdded: refTime.AddDate(0, -7, 0)})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(n.scheduled) != 1 || n.scheduled[0] != (reminder.Request{OverdueCount: 1, Hour: 9}) {
		t.Fatalf("scheduled = %+v", n.scheduled)
	}

	// Fresh item: overdue count unchanged, nothing rescheduled.
	s.AddItem(NewItem{Name: "peas"})
	if len(n.scheduled) != 1 {
		t.Errorf("scheduled = %+v", n.scheduled)
	}

	s.SetNotificationHour(30)
	if last := n.scheduled[len(n.scheduled)-1]; last.Hour != 23 {
		t.Errorf("hour = %d, want 23", last.Hour)
	}

	clears := n.clears
	s.DeleteItem(old.ID)
	if n.clears != clears+1 || len(n.scheduled) != 2 {
		t.Errorf("after delete: clears = %d scheduled = %d", n.clears-initialClears, len(n.scheduled))
	}
}

func TestExpiryProjection(t *testing.T) {
	s, _ := newTestStore(t, seededDoc())

	tests := []struct {
		added time.Time
		want  model.ExpiryState
	}{
		{model.AddMonths(refTime, -6).AddDate(0, 0, 1), model.ExpiryExpiringSoon},
		{model.AddMonths(refTime, -6), model.ExpiryExpired},
		{model.AddMonths(refTime, -4), model.ExpiryNormal},
	}
	for _, tt := range tests {
		if got := s.ExpiryState(model.Item{DateAdded: tt.added}, refTime); got != tt.want {
			t.Errorf("ExpiryState(%s) = %s, want %s", tt.added.Format(time.DateOnly), got, tt.want)
		}
	}
	if got := s.OverdueItems(refTime); len(got) != 0 {
		t.Errorf("overdue = %d", len(got))
	}
}

func TestReloadIfChanged(t *testing.T) {
	s, repo := newTestStore(t, seededDoc())

	changed, err := s.ReloadIfChanged()
	if err != nil || changed {
		t.Fatalf("unchanged reload = %v, %v", changed, err)
	}

	other := s.Document()
	other.Household.Name = "Cabin"
	repo.Save(other)

	changed, err = s.ReloadIfChanged()
	if err != nil || !changed {
		t.Fatalf("reload = %v, %v", changed, err)
	}
	if s.Household().Name != "Cabin" {
		t.Errorf("household = %q", s.Household().Name)
	}
}

func TestHandleRemoteChange(t *testing.T) {
	s, repo := newTestStore(t, seededDoc())
	repo.onSync = func(r *memRepo) {
		doc := r.doc.Clone()
		doc.Settings.ThresholdMonths = 2
		r.doc = doc
	}

	changed, err := s.HandleRemoteChange(context.Background())
	if err != nil || !changed {
		t.Fatalf("HandleRemoteChange = %v, %v", changed, err)
	}
	if s.Settings().ThresholdMonths != 2 {
		t.Errorf("threshold = %d, want 2", s.Settings().ThresholdMonths)
	}

	repo.onSync = nil
	repo.syncErr = errors.New("remote down")
	changed, err = s.HandleRemoteChange(context.Background())
	if changed || !errors.Is(err, repo.syncErr) {
		t.Errorf("HandleRemoteChange = %v, %v", changed, err)
	}
}
