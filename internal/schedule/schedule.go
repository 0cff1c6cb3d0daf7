// Package schedule holds the housing authority payment standard tables: which
// rent group each ZIP code belongs to, the rent ceiling per group and unit
// size, and the display labels for groups and neighborhoods. Tables are
// versioned per edition and are read-only once built.
package schedule

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"
)

// Edition identifies one published vintage of the payment standards ("2024").
type Edition string

// RentGroup is a rent tier within an edition. Group numbering is only
// meaningful inside its own edition.
type RentGroup int

// Lookup failures returned (wrapped) by Schedule and Repository methods.
var (
	ErrUnknownEdition = eris.New("unknown schedule edition")
	ErrZIPNotFound    = eris.New("ZIP code not found")
	ErrNoCeiling      = eris.New("payment standard not found")
)

// Group is one rent tier: its label and a ceiling per bedroom class.
type Group struct {
	ID       RentGroup            `json:"group"`
	Label    string               `json:"label"`
	Ceilings map[BedroomClass]int `json:"ceilings"`
}

// Schedule is a single edition of the payment standards.
type Schedule struct {
	edition   Edition
	title     string
	effective time.Time
	groups    map[RentGroup]Group
	zips      map[string]RentGroup
}

// NewSchedule builds an edition from its groups and ZIP assignments. The
// inputs are copied. Every ZIP must reference a group present in groups;
// groups may omit bedroom classes (the gap surfaces as ErrNoCeiling).
func NewSchedule(edition Edition, title string, effective time.Time, groups []Group, zips map[string]RentGroup) (*Schedule, error) {
	if edition == "" {
		return nil, eris.New("schedule: edition is required")
	}
	if len(groups) == 0 {
		return nil, eris.Errorf("schedule: edition %s has no groups", edition)
	}

	s := &Schedule{
		edition:   edition,
		title:     title,
		effective: effective,
		groups:    make(map[RentGroup]Group, len(groups)),
		zips:      make(map[string]RentGroup, len(zips)),
	}

	for _, g := range groups {
		if g.ID <= 0 {
			return nil, eris.Errorf("schedule: edition %s: group id must be positive, got %d", edition, g.ID)
		}
		if _, dup := s.groups[g.ID]; dup {
			return nil, eris.Errorf("schedule: edition %s: duplicate group %d", edition, g.ID)
		}
		ceilings := make(map[BedroomClass]int, len(g.Ceilings))
		for class, amount := range g.Ceilings {
			if amount < 0 {
				return nil, eris.Errorf("schedule: edition %s: negative ceiling for group %d %s", edition, g.ID, class)
			}
			ceilings[class] = amount
		}
		s.groups[g.ID] = Group{ID: g.ID, Label: g.Label, Ceilings: ceilings}
	}

	for zip, id := range zips {
		if _, ok := s.groups[id]; !ok {
			return nil, eris.Errorf("schedule: edition %s: ZIP %s assigned to unknown group %d", edition, zip, id)
		}
		s.zips[zip] = id
	}

	return s, nil
}

// Edition returns the edition id.
func (s *Schedule) Edition() Edition { return s.edition }

// Title returns the human-readable name of the edition.
func (s *Schedule) Title() string { return s.title }

// Effective returns the date the edition took effect.
func (s *Schedule) Effective() time.Time { return s.effective }

// GroupFor returns the rent group of a ZIP code.
func (s *Schedule) GroupFor(zip string) (RentGroup, bool) {
	g, ok := s.zips[zip]
	return g, ok
}

// Group returns a rent group by id.
func (s *Schedule) Group(id RentGroup) (Group, bool) {
	g, ok := s.groups[id]
	return g, ok
}

// Ceiling returns the rent ceiling for a group and bedroom class.
func (s *Schedule) Ceiling(id RentGroup, class BedroomClass) (int, bool) {
	g, ok := s.groups[id]
	if !ok {
		return 0, false
	}
	amount, ok := g.Ceilings[class]
	return amount, ok
}

// Groups returns all groups ordered by id.
func (s *Schedule) Groups() []Group {
	out := make([]Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ZIPs returns every ZIP code in the edition, sorted.
func (s *Schedule) ZIPs() []string {
	out := make([]string, 0, len(s.zips))
	for zip := range s.zips {
		out = append(out, zip)
	}
	sort.Strings(out)
	return out
}
