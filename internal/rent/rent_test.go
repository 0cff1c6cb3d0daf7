package rent

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/multifamily-cli/internal/schedule"
)

func defaultResolver(t *testing.T) *Resolver {
	t.Helper()
	repo, err := schedule.Default()
	require.NoError(t, err)
	return NewResolver(repo)
}

func TestResolve_Success(t *testing.T) {
	r := defaultResolver(t)

	res, err := r.Resolve("19120", "1 bed", "2024")
	require.NoError(t, err)
	assert.Equal(t, Resolution{Ceiling: 1240, Group: 1, GroupLabel: "Traditional Rents", Class: schedule.BR1}, res)

	res, err = r.Resolve("19103", "studio", "2025")
	require.NoError(t, err)
	assert.Equal(t, 2100, res.Ceiling)
	assert.Equal(t, schedule.RentGroup(5), res.Group)
	assert.Equal(t, "High Opportunity Rents", res.GroupLabel)
}

func TestResolve_AllDefaultCombinations(t *testing.T) {
	repo, err := schedule.Default()
	require.NoError(t, err)
	r := NewResolver(repo)

	for _, edition := range repo.Editions() {
		s, err := repo.Schedule(edition)
		require.NoError(t, err)
		for _, zip := range s.ZIPs() {
			want, _ := s.GroupFor(zip)
			for _, class := range schedule.Classes {
				res, err := r.Resolve(zip, string(class), edition)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, res.Ceiling, 0)
				assert.Equal(t, want, res.Group)
			}
		}
	}
}

func TestResolve_FailureKinds(t *testing.T) {
	r := defaultResolver(t)

	tests := []struct {
		name       string
		zip, beds  string
		edition    schedule.Edition
		want       Kind
		msgContain string
	}{
		{"bad bedroom", "19120", "penthouse", "2024", KindInvalidBedroom, "invalid bedroom input"},
		{"bad bedroom wins over bad zip", "00000", "9BR", "2024", KindInvalidBedroom, "invalid bedroom input"},
		{"unknown zip", "10001", "1BR", "2024", KindZIPNotFound, "ZIP code 10001 not found in the 2024"},
		{"unknown edition", "19120", "1BR", "1999", KindUnknownEdition, "unknown payment standard edition"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(tt.zip, tt.beds, tt.edition)
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))
			assert.Contains(t, err.Error(), tt.msgContain)
		})
	}
}

func TestResolve_MissingCeilingCell(t *testing.T) {
	s, err := schedule.NewSchedule("partial", "", time.Time{},
		[]schedule.Group{{ID: 1, Label: "Only", Ceilings: map[schedule.BedroomClass]int{schedule.BR1: 1000}}},
		map[string]schedule.RentGroup{"19120": 1})
	require.NoError(t, err)
	repo, err := schedule.NewRepository(nil, s)
	require.NoError(t, err)
	r := NewResolver(repo)

	_, err = r.Resolve("19120", "2BR", "partial")
	require.Error(t, err)
	assert.Equal(t, KindNoCeiling, KindOf(err))
	assert.Contains(t, err.Error(), "group 1, 2 BR")

	var re *Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, schedule.BR2, re.Class)
}

func TestResolve_EditionsDoNotCrossContaminate(t *testing.T) {
	a, err := schedule.NewSchedule("A", "", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		[]schedule.Group{{ID: 1, Label: "Low", Ceilings: map[schedule.BedroomClass]int{schedule.BR1: 900}}},
		map[string]schedule.RentGroup{"19120": 1})
	require.NoError(t, err)
	b, err := schedule.NewSchedule("B", "", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		[]schedule.Group{{ID: 1, Label: "High", Ceilings: map[schedule.BedroomClass]int{schedule.BR1: 2000}}},
		map[string]schedule.RentGroup{"19103": 1})
	require.NoError(t, err)
	repo, err := schedule.NewRepository(nil, a, b)
	require.NoError(t, err)
	r := NewResolver(repo)

	_, err = r.Resolve("19103", "1BR", "A")
	assert.Equal(t, KindZIPNotFound, KindOf(err))

	res, err := r.Resolve("19103", "1BR", "B")
	require.NoError(t, err)
	assert.Equal(t, 2000, res.Ceiling)
	assert.Equal(t, "High", res.GroupLabel)
}

func TestKindOf_NonRentError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}
