package schedule

import (
	"sort"
	"sync"

	"github.com/rotisserie/eris"
)

// Repository holds every loaded edition plus the neighborhood map. It is
// built once and shared read-only; editions never read each other's tables.
type Repository struct {
	schedules     map[Edition]*Schedule
	editions      []Edition
	neighborhoods *NeighborhoodMap
}

// NewRepository builds a repository from one or more editions. Edition ids
// must be unique.
func NewRepository(neighborhoods *NeighborhoodMap, schedules ...*Schedule) (*Repository, error) {
	if len(schedules) == 0 {
		return nil, eris.New("schedule: repository needs at least one edition")
	}
	r := &Repository{
		schedules:     make(map[Edition]*Schedule, len(schedules)),
		neighborhoods: neighborhoods,
	}
	for _, s := range schedules {
		if s == nil {
			return nil, eris.New("schedule: nil edition")
		}
		if _, dup := r.schedules[s.Edition()]; dup {
			return nil, eris.Errorf("schedule: duplicate edition %s", s.Edition())
		}
		r.schedules[s.Edition()] = s
	}
	r.sortEditions()
	return r, nil
}

// With returns a new repository that also holds the given editions. An
// edition with an id already present replaces the existing one.
func (r *Repository) With(schedules ...*Schedule) *Repository {
	out := &Repository{
		schedules:     make(map[Edition]*Schedule, len(r.schedules)+len(schedules)),
		neighborhoods: r.neighborhoods,
	}
	for id, s := range r.schedules {
		out.schedules[id] = s
	}
	for _, s := range schedules {
		if s != nil {
			out.schedules[s.Edition()] = s
		}
	}
	out.sortEditions()
	return out
}

func (r *Repository) sortEditions() {
	r.editions = r.editions[:0]
	for id := range r.schedules {
		r.editions = append(r.editions, id)
	}
	sort.Slice(r.editions, func(i, j int) bool {
		a, b := r.schedules[r.editions[i]], r.schedules[r.editions[j]]
		if !a.Effective().Equal(b.Effective()) {
			return a.Effective().Before(b.Effective())
		}
		return a.Edition() < b.Edition()
	})
}

// Editions returns edition ids ordered from earliest to latest.
func (r *Repository) Editions() []Edition {
	return append([]Edition(nil), r.editions...)
}

// DefaultEdition is the earliest loaded edition.
func (r *Repository) DefaultEdition() Edition {
	return r.editions[0]
}

// Schedule returns one edition.
func (r *Repository) Schedule(edition Edition) (*Schedule, error) {
	s, ok := r.schedules[edition]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownEdition, "schedule: edition %q", edition)
	}
	return s, nil
}

// ResolveGroup maps a ZIP code to its rent group within an edition.
func (r *Repository) ResolveGroup(zip string, edition Edition) (RentGroup, error) {
	s, err := r.Schedule(edition)
	if err != nil {
		return 0, err
	}
	g, ok := s.GroupFor(zip)
	if !ok {
		return 0, eris.Wrapf(ErrZIPNotFound, "schedule: ZIP %s in edition %s", zip, edition)
	}
	return g, nil
}

// RentCeiling returns the payment standard for a group and bedroom class.
func (r *Repository) RentCeiling(group RentGroup, class BedroomClass, edition Edition) (int, error) {
	s, err := r.Schedule(edition)
	if err != nil {
		return 0, err
	}
	amount, ok := s.Ceiling(group, class)
	if !ok {
		return 0, eris.Wrapf(ErrNoCeiling, "schedule: group %d %s in edition %s", group, class, edition)
	}
	return amount, nil
}

// GroupLabel returns the rent-type label of a group, or "Unknown Rent Type".
func (r *Repository) GroupLabel(group RentGroup, edition Edition) string {
	s, ok := r.schedules[edition]
	if !ok {
		return unknownRentType
	}
	g, ok := s.Group(group)
	if !ok || g.Label == "" {
		return unknownRentType
	}
	return g.Label
}

const unknownRentType = "Unknown Rent Type"

// NeighborhoodLabel returns the client-friendly area for a ZIP code. It
// never fails; unmapped ZIPs yield AreaNotSpecified.
func (r *Repository) NeighborhoodLabel(zip string) string {
	return r.neighborhoods.Label(zip)
}

// Neighborhoods returns the neighborhood map.
func (r *Repository) Neighborhoods() *NeighborhoodMap {
	return r.neighborhoods
}

var loadDefault = sync.OnceValues(func() (*Repository, error) {
	return loadEmbedded()
})

// Default returns the repository built from the embedded editions. The
// tables are decoded once per process.
func Default() (*Repository, error) {
	return loadDefault()
}
