package schedule

// AreaNotSpecified is returned for ZIP codes outside the neighborhood map.
const AreaNotSpecified = "Area Not Specified"

// Neighborhood is a display label and the ZIP codes it covers.
type Neighborhood struct {
	Label string   `json:"label" yaml:"label"`
	ZIPs  []string `json:"zips" yaml:"zips"`
}

// NeighborhoodMap resolves ZIP codes to client-friendly area names. It is
// independent of the schedule edition.
//
// Entries are applied in order. A label defined twice keeps only its last
// definition, and a ZIP listed under several labels resolves to the label
// registered last.
type NeighborhoodMap struct {
	entries []Neighborhood
	byZIP   map[string]string
}

// NewNeighborhoodMap builds a lookup from ordered entries.
func NewNeighborhoodMap(entries []Neighborhood) *NeighborhoodMap {
	var final []Neighborhood
	for _, e := range entries {
		for i := range final {
			if final[i].Label == e.Label {
				final = append(final[:i], final[i+1:]...)
				break
			}
		}
		final = append(final, Neighborhood{Label: e.Label, ZIPs: append([]string(nil), e.ZIPs...)})
	}

	m := &NeighborhoodMap{entries: final, byZIP: make(map[string]string)}
	for _, e := range final {
		for _, zip := range e.ZIPs {
			m.byZIP[zip] = e.Label
		}
	}
	return m
}

// Label returns the neighborhood for a ZIP code, or AreaNotSpecified.
func (m *NeighborhoodMap) Label(zip string) string {
	if m == nil {
		return AreaNotSpecified
	}
	if label, ok := m.byZIP[zip]; ok {
		return label
	}
	return AreaNotSpecified
}

// Entries returns the effective entries in registration order.
func (m *NeighborhoodMap) Entries() []Neighborhood {
	if m == nil {
		return nil
	}
	return append([]Neighborhood(nil), m.entries...)
}
