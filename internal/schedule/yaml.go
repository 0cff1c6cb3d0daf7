package schedule

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed data/neighborhoods.yaml data/editions/*.yaml
var dataFS embed.FS

const effectiveLayout = "2006-01-02"

// editionDoc is the on-disk YAML layout of one edition.
type editionDoc struct {
	Edition   string     `yaml:"edition"`
	Title     string     `yaml:"title"`
	Effective string     `yaml:"effective"`
	Groups    []groupDoc `yaml:"groups"`
}

type groupDoc struct {
	ID        int            `yaml:"id"`
	Label     string         `yaml:"label"`
	Standards map[string]int `yaml:"standards"`
	ZIPs      []string       `yaml:"zips,flow"`
}

type neighborhoodDoc struct {
	Neighborhoods []Neighborhood `yaml:"neighborhoods"`
}

// DecodeYAML parses one edition from YAML. Bedroom keys accept any variant
// NormalizeBedroom understands ("0 BR", "studio").
func DecodeYAML(data []byte) (*Schedule, error) {
	var doc editionDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "schedule: decode yaml")
	}

	var effective time.Time
	if doc.Effective != "" {
		t, err := time.Parse(effectiveLayout, doc.Effective)
		if err != nil {
			return nil, eris.Wrapf(err, "schedule: edition %s: parse effective date", doc.Edition)
		}
		effective = t
	}

	groups := make([]Group, 0, len(doc.Groups))
	zips := make(map[string]RentGroup)
	for _, gd := range doc.Groups {
		ceilings := make(map[BedroomClass]int, len(gd.Standards))
		for key, amount := range gd.Standards {
			class, ok := NormalizeBedroom(key)
			if !ok {
				return nil, eris.Errorf("schedule: edition %s group %d: unknown bedroom key %q", doc.Edition, gd.ID, key)
			}
			ceilings[class] = amount
		}
		groups = append(groups, Group{ID: RentGroup(gd.ID), Label: gd.Label, Ceilings: ceilings})

		for _, zip := range gd.ZIPs {
			if prev, dup := zips[zip]; dup && prev != RentGroup(gd.ID) {
				return nil, eris.Errorf("schedule: edition %s: ZIP %s listed in groups %d and %d", doc.Edition, zip, prev, gd.ID)
			}
			zips[zip] = RentGroup(gd.ID)
		}
	}

	return NewSchedule(Edition(doc.Edition), doc.Title, effective, groups, zips)
}

// EncodeYAML renders an edition in the layout DecodeYAML reads.
func EncodeYAML(s *Schedule) ([]byte, error) {
	doc := editionDoc{
		Edition: string(s.Edition()),
		Title:   s.Title(),
	}
	if !s.Effective().IsZero() {
		doc.Effective = s.Effective().Format(effectiveLayout)
	}

	byGroup := make(map[RentGroup][]string)
	for _, zip := range s.ZIPs() {
		g, _ := s.GroupFor(zip)
		byGroup[g] = append(byGroup[g], zip)
	}

	for _, g := range s.Groups() {
		standards := make(map[string]int, len(g.Ceilings))
		for class, amount := range g.Ceilings {
			standards[string(class)] = amount
		}
		doc.Groups = append(doc.Groups, groupDoc{
			ID:        int(g.ID),
			Label:     g.Label,
			Standards: standards,
			ZIPs:      byGroup[g.ID],
		})
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, eris.Wrap(err, "schedule: encode yaml")
	}
	return out, nil
}

// LoadFile reads a custom edition from a YAML file.
func LoadFile(filename string) (*Schedule, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "schedule: read %s", filename)
	}
	s, err := DecodeYAML(data)
	if err != nil {
		return nil, eris.Wrapf(err, "schedule: load %s", filename)
	}
	return s, nil
}

// DecodeNeighborhoods parses a neighborhood map document.
func DecodeNeighborhoods(data []byte) (*NeighborhoodMap, error) {
	var doc neighborhoodDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "schedule: decode neighborhoods")
	}
	return NewNeighborhoodMap(doc.Neighborhoods), nil
}

func loadEmbedded() (*Repository, error) {
	raw, err := dataFS.ReadFile("data/neighborhoods.yaml")
	if err != nil {
		return nil, eris.Wrap(err, "schedule: read embedded neighborhoods")
	}
	neighborhoods, err := DecodeNeighborhoods(raw)
	if err != nil {
		return nil, err
	}

	names, err := fs.Glob(dataFS, "data/editions/*.yaml")
	if err != nil {
		return nil, eris.Wrap(err, "schedule: list embedded editions")
	}
	sort.Strings(names)

	schedules := make([]*Schedule, 0, len(names))
	for _, name := range names {
		data, err := dataFS.ReadFile(name)
		if err != nil {
			return nil, eris.Wrapf(err, "schedule: read embedded %s", path.Base(name))
		}
		s, err := DecodeYAML(data)
		if err != nil {
			return nil, eris.Wrapf(err, "schedule: embedded %s", path.Base(name))
		}
		schedules = append(schedules, s)
	}

	return NewRepository(neighborhoods, schedules...)
}
