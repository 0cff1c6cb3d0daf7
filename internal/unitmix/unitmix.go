// Package unitmix parses free-form unit mix descriptions such as
// "6x2BR, 4x1BR and 2 x studio" into one record per physical unit.
package unitmix

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/multifamily-cli/internal/schedule"
)

// DefaultMaxUnits bounds how many units one description may expand to.
const DefaultMaxUnits = 1000

var (
	// ErrEmpty is returned for blank input.
	ErrEmpty = eris.New("no unit bedroom counts provided")
	// ErrNoUnits is returned when every group in the input was rejected.
	ErrNoUnits = eris.New("no valid unit groups found after parsing")
)

var (
	separatorRe = regexp.MustCompile(`(?i)[,;]|\band\b`)
	groupRe     = regexp.MustCompile(`^([+-]?\d+)\s*[xX×]\s*(.+)$`)
)

// Options controls parsing policy.
type Options struct {
	// SingleUnitFallback treats a group without a COUNTx multiplier as one
	// unit of that descriptor instead of rejecting it.
	//
	// Deprecated: kept for inputs written against the old calculator; new
	// callers should leave it off so typos surface as warnings.
	SingleUnitFallback bool
	// MaxUnits caps the total expansion; 0 means DefaultMaxUnits.
	MaxUnits int
}

// UnitSpec is one physical unit.
type UnitSpec struct {
	Number     int                   `json:"unit_number"`
	Descriptor string                `json:"bedrooms"`
	Class      schedule.BedroomClass `json:"bedroom_class,omitempty"`
}

// Result is the parsed unit list plus any per-group warnings.
type Result struct {
	Units    []UnitSpec `json:"units"`
	Warnings []string   `json:"warnings,omitempty"`
}

// Parse expands a unit mix description. Groups are separated by commas,
// semicolons, or the word "and"; each group is COUNT x DESCRIPTOR. Rejected
// groups are skipped and reported in Result.Warnings.
//
// A descriptor the bedroom table does not recognize still produces units
// (with an empty Class); rent resolution reports them.
func Parse(text string, opts Options) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return &Result{}, ErrEmpty
	}
	maxUnits := opts.MaxUnits
	if maxUnits <= 0 {
		maxUnits = DefaultMaxUnits
	}

	res := &Result{}
	for _, token := range separatorRe.Split(text, -1) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		count, descriptor, warning := parseGroup(token, opts.SingleUnitFallback)
		if warning != "" {
			res.Warnings = append(res.Warnings, warning)
			continue
		}
		if count > maxUnits-len(res.Units) {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("group %q would exceed the %d unit limit; skipping", token, maxUnits))
			continue
		}

		class, _ := schedule.NormalizeBedroom(descriptor)
		for range count {
			res.Units = append(res.Units, UnitSpec{
				Number:     len(res.Units) + 1,
				Descriptor: descriptor,
				Class:      class,
			})
		}
	}

	if len(res.Units) == 0 {
		return res, ErrNoUnits
	}
	return res, nil
}

// parseGroup returns the unit count and descriptor of one group, or a
// warning explaining why the group was rejected.
func parseGroup(token string, fallback bool) (int, string, string) {
	m := groupRe.FindStringSubmatch(token)
	if m == nil {
		if fallback {
			return 1, strings.ToUpper(token), ""
		}
		return 0, "", fmt.Sprintf("unrecognized unit group %q (expected COUNT x TYPE, e.g. 4x2BR); skipping", token)
	}

	count, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", fmt.Sprintf("invalid count %q in group %q; skipping", m[1], token)
	}
	if count <= 0 {
		return 0, "", fmt.Sprintf("invalid count %q in group %q; count must be positive; skipping", m[1], token)
	}
	return count, strings.ToUpper(strings.TrimSpace(m[2])), ""
}

// Counts tallies units per descriptor in first-seen order.
func (r *Result) Counts() []Count {
	var out []Count
	idx := make(map[string]int)
	for _, u := range r.Units {
		i, ok := idx[u.Descriptor]
		if !ok {
			i = len(out)
			idx[u.Descriptor] = i
			out = append(out, Count{Descriptor: u.Descriptor, Class: u.Class})
		}
		out[i].Units++
	}
	return out
}

// Count is the number of units sharing one descriptor.
type Count struct {
	Descriptor string                `json:"bedrooms"`
	Class      schedule.BedroomClass `json:"bedroom_class,omitempty"`
	Units      int                   `json:"units"`
}

// String renders counts back in COUNTxTYPE form.
func (c Count) String() string {
	return fmt.Sprintf("%dx%s", c.Units, c.Descriptor)
}
