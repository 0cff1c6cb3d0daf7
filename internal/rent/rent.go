// Package rent resolves the payment standard (rent ceiling) for a unit.
package rent

import (
	"errors"
	"fmt"

	"github.com/sells-group/multifamily-cli/internal/schedule"
)

// Kind classifies why a unit's rent could not be resolved.
type Kind string

const (
	KindInvalidBedroom Kind = "invalid_bedroom"
	KindZIPNotFound    Kind = "zip_not_found"
	KindNoCeiling      Kind = "no_ceiling"
	KindUnknownEdition Kind = "unknown_edition"
)

// Error is a resolution failure. Each Kind is reported separately so callers
// can tell a typo in the unit mix from a ZIP outside the schedule.
type Error struct {
	Kind       Kind
	ZIP        string
	Descriptor string
	Edition    schedule.Edition
	Group      schedule.RentGroup
	Class      schedule.BedroomClass
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidBedroom:
		return fmt.Sprintf("invalid bedroom input %q; use SRO or 0-8 bedrooms", e.Descriptor)
	case KindZIPNotFound:
		return fmt.Sprintf("ZIP code %s not found in the %s payment standards", e.ZIP, e.Edition)
	case KindNoCeiling:
		return fmt.Sprintf("no payment standard for group %d, %s in the %s payment standards", e.Group, e.Class.Label(), e.Edition)
	case KindUnknownEdition:
		return fmt.Sprintf("unknown payment standard edition %q", e.Edition)
	default:
		return "rent resolution failed"
	}
}

// KindOf returns the failure kind of err, or "" if err is not a rent Error.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// Resolution is a resolved unit rent.
type Resolution struct {
	Ceiling    int                   `json:"rent"`
	Group      schedule.RentGroup    `json:"group"`
	GroupLabel string                `json:"group_label"`
	Class      schedule.BedroomClass `json:"bedroom_class"`
}

// Lookup is the subset of schedule.Repository the resolver needs.
type Lookup interface {
	ResolveGroup(zip string, edition schedule.Edition) (schedule.RentGroup, error)
	RentCeiling(group schedule.RentGroup, class schedule.BedroomClass, edition schedule.Edition) (int, error)
	GroupLabel(group schedule.RentGroup, edition schedule.Edition) string
}

// Resolver maps ZIP code and bedroom descriptor to a rent ceiling.
type Resolver struct {
	tables Lookup
}

// NewResolver creates a resolver over the given tables.
func NewResolver(tables Lookup) *Resolver {
	return &Resolver{tables: tables}
}

// Resolve looks up one unit. The bedroom descriptor is checked first, then
// the ZIP code, then the ceiling cell; the first failure is returned as *Error.
func (r *Resolver) Resolve(zip, descriptor string, edition schedule.Edition) (Resolution, error) {
	class, ok := schedule.NormalizeBedroom(descriptor)
	if !ok {
		return Resolution{}, &Error{Kind: KindInvalidBedroom, ZIP: zip, Descriptor: descriptor, Edition: edition}
	}

	group, err := r.tables.ResolveGroup(zip, edition)
	if err != nil {
		kind := KindZIPNotFound
		if errors.Is(err, schedule.ErrUnknownEdition) {
			kind = KindUnknownEdition
		}
		return Resolution{}, &Error{Kind: kind, ZIP: zip, Descriptor: descriptor, Edition: edition, Class: class}
	}

	amount, err := r.tables.RentCeiling(group, class, edition)
	if err != nil {
		return Resolution{}, &Error{Kind: KindNoCeiling, ZIP: zip, Descriptor: descriptor, Edition: edition, Group: group, Class: class}
	}

	return Resolution{
		Ceiling:    amount,
		Group:      group,
		GroupLabel: r.tables.GroupLabel(group, edition),
		Class:      class,
	}, nil
}
