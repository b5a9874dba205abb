package inventory

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/freezer/internal/model"
	"github.com/dukerupert/freezer/internal/voice"
)

// VoiceStatus is the outcome of resolving a spoken removal request.
type VoiceStatus int

const (
	VoiceForbidden VoiceStatus = iota
	VoiceUnparsed
	VoiceNotFound
	VoiceSingle
	VoiceAmbiguous
)

func (s VoiceStatus) String() string {
	switch s {
	case VoiceForbidden:
		return "forbidden"
	case VoiceUnparsed:
		return "unparsed"
	case VoiceNotFound:
		return "not_found"
	case VoiceSingle:
		return "single"
	default:
		return "ambiguous"
	}
}

// VoiceOutcome is what the voice flow shows before anything is removed.
// When Status is VoiceSingle, Candidate is the item to confirm.
type VoiceOutcome struct {
	Status     VoiceStatus
	Command    voice.Command
	Resolution voice.Resolution
	Candidate  model.Item
	Message    string
}

const (
	forbiddenDialog = "You do not have permission to remove freezer items."
	unparsedDialog  = `Try something like "I removed chicken from drawer 2".`
	blankTermDialog = "I could not find that item in your freezer."
)

// ResolveRemoval parses utterance and matches it against the inventory. It
// never removes anything; call ConfirmRemoval with the candidate for that.
func (s *Store) ResolveRemoval(utterance string) VoiceOutcome {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.doc.CurrentRole().CanEditContent() {
		return VoiceOutcome{Status: VoiceForbidden, Message: forbiddenDialog}
	}
	cmd, ok := voice.Parse(utterance)
	if !ok {
		return VoiceOutcome{Status: VoiceUnparsed, Message: unparsedDialog}
	}

	res := voice.Resolve(s.doc, voice.QueryFor(cmd))
	out := VoiceOutcome{Command: cmd, Resolution: res}
	switch res.Status() {
	case voice.NotFound:
		out.Status = VoiceNotFound
		out.Message = notFoundDialog(res.Term)
	case voice.Single:
		out.Status = VoiceSingle
		out.Candidate = res.Matches[0]
		out.Message = fmt.Sprintf("Remove %s from %s?", out.Candidate.Name, s.doc.DrawerName(out.Candidate.DrawerID))
	default:
		out.Status = VoiceAmbiguous
		out.Message = ambiguousDialog(res)
	}
	return out
}

// ConfirmRemoval deletes the item a voice request resolved to.
func (s *Store) ConfirmRemoval(itemID uuid.UUID) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireEdit(); err != nil {
		return model.Item{}, err
	}
	return s.deleteItem(itemID)
}

// AssistantStatus classifies an assistant removal.
type AssistantStatus string

const (
	StatusRemoved   AssistantStatus = "removed"
	StatusNotFound  AssistantStatus = "not_found"
	StatusAmbiguous AssistantStatus = "ambiguous"
	StatusForbidden AssistantStatus = "forbidden"
)

// AssistantResponse is the spoken reply to an assistant removal.
type AssistantResponse struct {
	Status AssistantStatus `json:"status"`
	Dialog string          `json:"dialog"`
}

// RemoveItemForAssistant removes the single item matching term, optionally
// restricted to the drawer named drawerName. There is no confirmation step:
// a single match is removed immediately.
func (s *Store) RemoveItemForAssistant(term, drawerName string) AssistantResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.doc.CurrentRole().CanEditContent() {
		return AssistantResponse{Status: StatusForbidden, Dialog: forbiddenDialog}
	}
	if strings.TrimSpace(term) == "" {
		return AssistantResponse{Status: StatusNotFound, Dialog: blankTermDialog}
	}

	res := voice.Resolve(s.doc, voice.Query{Term: term, DrawerName: drawerName})
	switch res.Status() {
	case voice.NotFound:
		return AssistantResponse{Status: StatusNotFound, Dialog: notFoundDialog(res.Term)}
	case voice.Ambiguous:
		return AssistantResponse{Status: StatusAmbiguous, Dialog: ambiguousDialog(res)}
	}

	item := res.Matches[0]
	drawer := s.doc.DrawerName(item.DrawerID)
	if _, err := s.deleteItem(item.ID); err != nil {
		return AssistantResponse{Status: StatusNotFound, Dialog: notFoundDialog(res.Term)}
	}
	s.logger.Info("item removed by assistant", "item", item.Name, "drawer", drawer)
	return AssistantResponse{Status: StatusRemoved, Dialog: fmt.Sprintf("%s removed from %s.", item.Name, drawer)}
}

func notFoundDialog(term string) string {
	return fmt.Sprintf("I could not find %s in your freezer.", term)
}

func ambiguousDialog(res voice.Resolution) string {
	return fmt.Sprintf("I found %s in %s. Please repeat with the drawer name.", res.Term, strings.Join(res.DrawerNames, ", "))
}

// Suggestion is an entity an assistant can offer when asking for a value.
type Suggestion struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ItemSuggestions lists the distinct item names in doc, ordered by name.
func ItemSuggestions(doc *model.Document) []Suggestion {
	seen := make(map[string]struct{})
	var out []Suggestion
	for _, it := range doc.Items {
		name := strings.TrimSpace(it.Name)
		key := model.Normalize(name)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Suggestion{ID: key, Name: name})
	}
	slices.SortFunc(out, func(a, b Suggestion) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// DrawerSuggestions lists the drawers of doc in display order.
func DrawerSuggestions(doc *model.Document) []Suggestion {
	drawers := doc.SortedDrawers()
	out := make([]Suggestion, 0, len(drawers))
	for _, d := range drawers {
		out = append(out, Suggestion{ID: d.ID.String(), Name: d.Name})
	}
	return out
}
