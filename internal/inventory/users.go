package inventory

import (
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/freezer/internal/model"
)

// SwitchCurrentUser makes id the acting user.
func (s *Store) SwitchCurrentUser(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.doc.UserByID(id); !ok {
		return notFound("user", id)
	}
	if _, ok := s.doc.MemberForUser(id); !ok {
		return notFound("member for user", id)
	}
	if s.doc.CurrentUserID == id {
		return nil
	}
	s.doc.CurrentUserID = id
	s.save()
	return nil
}

func (s *Store) RenameCurrentUser(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return invalid("display name is blank")
	}
	i := slices.IndexFunc(s.doc.Users, func(u model.User) bool { return u.ID == s.doc.CurrentUserID })
	if i < 0 {
		return notFound("user", s.doc.CurrentUserID)
	}
	s.doc.Users[i].DisplayName = name
	s.save()
	return nil
}

func (s *Store) RenameHousehold(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireManage(); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid("household name is blank")
	}
	s.doc.Household.Name = name
	s.save()
	return nil
}

// AddMember creates a user and gives them a membership with role.
func (s *Store) AddMember(displayName string, role model.Role) (model.HouseholdMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireManage(); err != nil {
		return model.HouseholdMember{}, err
	}
	name := strings.TrimSpace(displayName)
	if name == "" {
		return model.HouseholdMember{}, invalid("display name is blank")
	}
	if !role.Valid() {
		return model.HouseholdMember{}, invalid("unknown role %q", role)
	}
	if slices.ContainsFunc(s.doc.Users, func(u model.User) bool {
		return strings.EqualFold(strings.TrimSpace(u.DisplayName), name)
	}) {
		return model.HouseholdMember{}, invalid("a user named %q already exists", name)
	}

	user := model.User{ID: s.newID(), DisplayName: name}
	member := model.HouseholdMember{ID: s.newID(), UserID: user.ID, Role: role, JoinedAt: s.now()}
	s.doc.Users = append(s.doc.Users, user)
	s.doc.Household.Members = append(s.doc.Household.Members, member)
	s.save()
	return member, nil
}

// UpdateMemberRole changes a member's role. The acting user cannot change
// their own role, and the household always keeps an owner.
func (s *Store) UpdateMemberRole(memberID uuid.UUID, role model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireManage(); err != nil {
		return err
	}
	if !role.Valid() {
		return invalid("unknown role %q", role)
	}
	i := s.memberIndex(memberID)
	if i < 0 {
		return notFound("member", memberID)
	}
	m := &s.doc.Household.Members[i]
	if m.Role == role {
		return nil
	}
	if m.UserID == s.doc.CurrentUserID {
		return invalidSelf("change your own role")
	}
	m.Role = role
	s.doc.EnsureOwner()
	s.save()
	return nil
}

// RemoveMember drops a membership and the user it belonged to. Items the
// user created or edited are credited to the acting user.
func (s *Store) RemoveMember(memberID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireManage(); err != nil {
		return err
	}
	i := s.memberIndex(memberID)
	if i < 0 {
		return notFound("member", memberID)
	}
	userID := s.doc.Household.Members[i].UserID
	if userID == s.doc.CurrentUserID {
		return invalidSelf("remove yourself")
	}

	s.doc.Household.Members = slices.Delete(s.doc.Household.Members, i, i+1)
	if _, ok := s.doc.MemberForUser(userID); !ok {
		s.doc.Users = slices.DeleteFunc(s.doc.Users, func(u model.User) bool { return u.ID == userID })
		s.doc.RepointItemUsers()
	}
	s.doc.EnsureOwner()
	s.save()
	return nil
}

func (s *Store) memberIndex(id uuid.UUID) int {
	return slices.IndexFunc(s.doc.Household.Members, func(m model.HouseholdMember) bool {
		return m.ID == id
	})
}
