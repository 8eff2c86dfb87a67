package sheetsclient

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSheets struct {
	titles  []string
	values  map[string][][]interface{}
	created []string
	written map[string][][]interface{}
	err     error
}

func (f *fakeSheets) SheetTitles(spreadsheetID string) ([]string, error) {
	return f.titles, f.err
}

func (f *fakeSheets) CreateSheet(spreadsheetID, sheetTitle string) (int64, error) {
	f.created = append(f.created, sheetTitle)
	return 1, nil
}

func (f *fakeSheets) GetValues(spreadsheetID, sheetRange string) ([][]interface{}, error) {
	return f.values[sheetRange], nil
}

func (f *fakeSheets) WriteValues(spreadsheetID, sheetRange string, values [][]interface{}) error {
	if f.written == nil {
		f.written = make(map[string][][]interface{})
	}
	f.written[sheetRange] = values
	return nil
}

func sampleRoster() *PublishedRoster {
	start := time.Date(2025, 8, 24, 11, 0, 0, 0, time.UTC)
	return &PublishedRoster{
		Title: "Sunday lunch",
		Start: start,
		End:   start.Add(3 * time.Hour),
		Rows: []PublishedRosterRow{
			{Position: "Kitchen", Required: 2, Pending: 1, Volunteers: []string{"Alice Smith"}},
			{Position: "Driver", Required: 1, Volunteers: []string{"Bob Jones"}},
		},
	}
}

func TestRosterTabTitle(t *testing.T) {
	start := time.Date(2025, 8, 24, 11, 0, 0, 0, time.UTC)
	assert.Equal(t, "Sun Aug 24 2025 - Sunday lunch", rosterTabTitle(start, "Sunday lunch"))
	assert.Equal(t, "Sun Aug 24 2025 - Lunch (A-B)", rosterTabTitle(start, "Lunch [A/B]"))
}

func TestBuildRosterValues_NewTab(t *testing.T) {
	values := buildRosterValues(sampleRoster(), nil)

	require.Len(t, values, 5)
	assert.Equal(t, []interface{}{"Sunday lunch", "Sun Aug 24 2025 11:00 to 14:00"}, values[0])
	assert.Empty(t, values[1])
	assert.Equal(t, []interface{}{"Position", "Required", "Confirmed", "Pending", "Volunteer 1", "Volunteer 2"}, values[2])
	assert.Equal(t, []interface{}{"Kitchen", 2, 1, 1, "Alice Smith", ""}, values[3])
	assert.Equal(t, []interface{}{"Driver", 1, 1, 0, "Bob Jones", ""}, values[4])
}

func TestBuildRosterValues_PreservesExtraColumns(t *testing.T) {
	existing := [][]interface{}{
		{"Sunday lunch"},
		{},
		{"Position", "Required", "Confirmed", "Pending", "Volunteer 1", "Notes"},
		{"Driver", "1", "0", "0", "", "Van keys at reception"},
		{"Kitchen", "2", "0", "0", "", "Bring aprons"},
		{"Setup", "1", "0", "0", "", "Gone now"},
	}

	values := buildRosterValues(sampleRoster(), existing)

	require.Len(t, values, 6)
	assert.Equal(t, []interface{}{"Position", "Required", "Confirmed", "Pending", "Volunteer 1", "Volunteer 2", "Notes"}, values[2])
	assert.Equal(t, "Bring aprons", values[3][6])
	assert.Equal(t, "Van keys at reception", values[4][6])

	// The row left over from the previous roster is blanked
	for _, cell := range values[5] {
		assert.Equal(t, "", cell)
	}
}

func TestPublishRoster_CreatesMissingTab(t *testing.T) {
	api := &fakeSheets{}

	require.NoError(t, publishRoster(api, "sheet-1", sampleRoster()))

	assert.Equal(t, []string{"Sun Aug 24 2025 - Sunday lunch"}, api.created)
	assert.Contains(t, api.written, "'Sun Aug 24 2025 - Sunday lunch'!A1")
}

func TestPublishRoster_OverwritesExistingTab(t *testing.T) {
	title := "Sun Aug 24 2025 - Sunday lunch"
	api := &fakeSheets{
		titles: []string{"Other", title},
		values: map[string][][]interface{}{
			"'" + title + "'!A1:ZZ": {{"x"}, {}, {"Position", "Notes"}, {"Kitchen", "keep me"}},
		},
	}

	require.NoError(t, publishRoster(api, "sheet-1", sampleRoster()))

	assert.Empty(t, api.created)
	written := api.written["'"+title+"'!A1"]
	require.NotEmpty(t, written)
	assert.Equal(t, "keep me", written[3][len(written[3])-1])
}

func TestPublishRoster_MetadataError(t *testing.T) {
	api := &fakeSheets{err: errors.New("quota exceeded")}

	err := publishRoster(api, "sheet-1", sampleRoster())
	assert.EqualError(t, err, "quota exceeded")
	assert.Empty(t, api.written)
}
