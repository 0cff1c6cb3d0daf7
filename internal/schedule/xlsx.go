package schedule

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Default sheet names of a payment standards workbook.
const (
	StandardsSheet = "standards"
	ZIPSheet       = "zips"
)

// WorkbookOptions describes the edition stored in a workbook. The workbook
// itself only carries the tables.
type WorkbookOptions struct {
	Edition        Edition
	Title          string
	Effective      time.Time
	StandardsSheet string // default "standards"
	ZIPSheet       string // default "zips"
}

func (o *WorkbookOptions) defaults() {
	if o.StandardsSheet == "" {
		o.StandardsSheet = StandardsSheet
	}
	if o.ZIPSheet == "" {
		o.ZIPSheet = ZIPSheet
	}
}

// ReadWorkbook loads an edition from an .xlsx file laid out as two sheets:
//
//	standards: Group | Label | SRO | 0 BR | 1 BR | ... (one row per group)
//	zips:      ZIP | Group (one row per ZIP code)
//
// Blank ceiling cells are left out of the group.
func ReadWorkbook(filename string, opts WorkbookOptions) (*Schedule, error) {
	opts.defaults()

	f, err := xlsx.OpenFile(filename)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	standards, err := sheetRows(f, opts.StandardsSheet)
	if err != nil {
		return nil, err
	}
	groups, err := parseStandardsRows(standards)
	if err != nil {
		return nil, err
	}

	zipRows, err := sheetRows(f, opts.ZIPSheet)
	if err != nil {
		return nil, err
	}
	zips, err := parseZIPRows(zipRows)
	if err != nil {
		return nil, err
	}

	return NewSchedule(opts.Edition, opts.Title, opts.Effective, groups, zips)
}

func parseStandardsRows(rows [][]string) ([]Group, error) {
	if len(rows) == 0 {
		return nil, eris.New("xlsx: standards sheet is empty")
	}
	header := rows[0]
	if len(header) < 3 {
		return nil, eris.Errorf("xlsx: standards header has %d columns, want group, label and bedroom columns", len(header))
	}

	classes := make([]BedroomClass, len(header))
	for i := 2; i < len(header); i++ {
		if strings.TrimSpace(header[i]) == "" {
			continue
		}
		c, ok := NormalizeBedroom(header[i])
		if !ok {
			return nil, eris.Errorf("xlsx: unknown bedroom column %q", header[i])
		}
		classes[i] = c
	}

	var groups []Group
	for n, row := range rows[1:] {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, eris.Wrapf(err, "xlsx: standards row %d: group", n+2)
		}
		g := Group{ID: RentGroup(id), Ceilings: make(map[BedroomClass]int)}
		if len(row) > 1 {
			g.Label = strings.TrimSpace(row[1])
		}
		for i := 2; i < len(row) && i < len(classes); i++ {
			cell := strings.TrimSpace(row[i])
			if cell == "" || classes[i] == "" {
				continue
			}
			amount, err := parseAmount(cell)
			if err != nil {
				return nil, eris.Wrapf(err, "xlsx: standards row %d column %s", n+2, classes[i])
			}
			g.Ceilings[classes[i]] = amount
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func parseZIPRows(rows [][]string) (map[string]RentGroup, error) {
	zips := make(map[string]RentGroup)
	for n, row := range rows {
		if n == 0 || len(row) < 2 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, eris.Wrapf(err, "xlsx: zips row %d: group", n+1)
		}
		zips[strings.TrimSpace(row[0])] = RentGroup(id)
	}
	return zips, nil
}

// parseAmount accepts "1240", "1,240", "$1,240" and "1240.00".
func parseAmount(s string) (int, error) {
	s = strings.NewReplacer("$", "", ",", "").Replace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parse amount %q", s)
	}
	return int(f + 0.5), nil
}

// WriteWorkbook saves an edition in the layout ReadWorkbook expects.
func WriteWorkbook(s *Schedule, filename string) error {
	f := xlsx.NewFile()

	standards, err := f.AddSheet(StandardsSheet)
	if err != nil {
		return eris.Wrap(err, "xlsx: add standards sheet")
	}
	header := standards.AddRow()
	header.AddCell().SetString("Group")
	header.AddCell().SetString("Label")
	for _, c := range Classes {
		header.AddCell().SetString(c.Label())
	}
	for _, g := range s.Groups() {
		row := standards.AddRow()
		row.AddCell().SetInt(int(g.ID))
		row.AddCell().SetString(g.Label)
		for _, c := range Classes {
			cell := row.AddCell()
			if amount, ok := g.Ceilings[c]; ok {
				cell.SetInt(amount)
			}
		}
	}

	zipSheet, err := f.AddSheet(ZIPSheet)
	if err != nil {
		return eris.Wrap(err, "xlsx: add zips sheet")
	}
	zh := zipSheet.AddRow()
	zh.AddCell().SetString("ZIP")
	zh.AddCell().SetString("Group")
	for _, zip := range s.ZIPs() {
		g, _ := s.GroupFor(zip)
		row := zipSheet.AddRow()
		row.AddCell().SetString(zip)
		row.AddCell().SetInt(int(g))
	}

	if err := f.Save(filename); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", filename)
	}
	return nil
}

func sheetRows(f *xlsx.File, name string) ([][]string, error) {
	sheet, ok := f.Sheet[name]
	if !ok {
		return nil, eris.Errorf("xlsx: sheet %q not found", name)
	}
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		rows = append(rows, rowToStrings(row))
	}
	return rows, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
