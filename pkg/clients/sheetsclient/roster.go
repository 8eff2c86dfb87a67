package sheetsclient

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// PublishedRosterRow represents one slot of a shift in the published roster
type PublishedRosterRow struct {
	Position   string
	Required   int
	Pending    int
	Volunteers []string // Full names of confirmed volunteers
}

// PublishedRoster represents the complete published roster of one shift
type PublishedRoster struct {
	Title string
	Start time.Time
	End   time.Time
	Rows  []PublishedRosterRow
}

// Rows 1 and 2 hold the shift summary and a gap; the header sits on row 3
const headerRow = 2

var fixedColumns = []string{"Position", "Required", "Confirmed", "Pending"}

// sheetAPI is the subset of Client used to publish a roster
type sheetAPI interface {
	SheetTitles(spreadsheetID string) ([]string, error)
	CreateSheet(spreadsheetID, sheetTitle string) (int64, error)
	GetValues(spreadsheetID, sheetRange string) ([][]interface{}, error)
	WriteValues(spreadsheetID, sheetRange string, values [][]interface{}) error
}

// PublishRoster publishes a shift roster to Google Sheets.
// If the tab doesn't exist it is created with the title "Sun Aug 24 2025 - <shift title>".
// If the tab exists the roster columns are overwritten while any extra columns
// (e.g. "Notes") are kept, matched by position name.
func (c *Client) PublishRoster(spreadsheetID string, roster *PublishedRoster) error {
	return publishRoster(c, spreadsheetID, roster)
}

func publishRoster(api sheetAPI, spreadsheetID string, roster *PublishedRoster) error {
	tabTitle := rosterTabTitle(roster.Start, roster.Title)

	titles, err := api.SheetTitles(spreadsheetID)
	if err != nil {
		return err
	}

	var existing [][]interface{}
	if slices.Contains(titles, tabTitle) {
		existing, err = api.GetValues(spreadsheetID, fmt.Sprintf("%s!A1:ZZ", quoteTab(tabTitle)))
		if err != nil {
			return fmt.Errorf("failed to read existing tab data: %w", err)
		}
	} else {
		if _, err := api.CreateSheet(spreadsheetID, tabTitle); err != nil {
			return fmt.Errorf("failed to create tab: %w", err)
		}
	}

	values := buildRosterValues(roster, existing)
	if err := api.WriteValues(spreadsheetID, fmt.Sprintf("%s!A1", quoteTab(tabTitle)), values); err != nil {
		return fmt.Errorf("failed to write roster: %w", err)
	}

	return nil
}

// rosterTabTitle creates a tab title in the format "Sun Aug 24 2025 - Sunday lunch"
func rosterTabTitle(start time.Time, title string) string {
	// Sheets rejects these characters in tab titles
	clean := strings.NewReplacer("[", "(", "]", ")", "*", "", "?", "", "/", "-", "\\", "-", ":", "").Replace(title)
	return fmt.Sprintf("%s - %s", start.Format("Mon Jan 02 2006"), strings.TrimSpace(clean))
}

func quoteTab(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// buildRosterValues lays out the roster, carrying over extra columns from
// existing when the tab was published before
func buildRosterValues(roster *PublishedRoster, existing [][]interface{}) [][]interface{} {
	maxVolunteers := 0
	for _, row := range roster.Rows {
		maxVolunteers = max(maxVolunteers, len(row.Volunteers), row.Required)
	}

	// Extra columns are everything in the old header that we don't write ourselves
	var extraCols []int
	var extraNames []interface{}
	previous := make(map[string][]interface{})
	if len(existing) > headerRow {
		oldHeader := existing[headerRow]
		for i, cell := range oldHeader {
			name, _ := cell.(string)
			if name == "" || slices.Contains(fixedColumns, name) || strings.HasPrefix(name, "Volunteer ") {
				continue
			}
			extraCols = append(extraCols, i)
			extraNames = append(extraNames, name)
		}

		positionCol := findColumnIndex(oldHeader, "Position")
		if positionCol != -1 {
			for _, oldRow := range existing[headerRow+1:] {
				if positionCol < len(oldRow) {
					if name, ok := oldRow[positionCol].(string); ok && name != "" {
						previous[name] = oldRow
					}
				}
			}
		}
	}

	header := make([]interface{}, 0, len(fixedColumns)+maxVolunteers+len(extraNames))
	for _, name := range fixedColumns {
		header = append(header, name)
	}
	for i := 0; i < maxVolunteers; i++ {
		header = append(header, fmt.Sprintf("Volunteer %d", i+1))
	}
	header = append(header, extraNames...)

	values := [][]interface{}{
		{roster.Title, fmt.Sprintf("%s to %s", roster.Start.Format("Mon Jan 02 2006 15:04"), roster.End.Format("15:04"))},
		{}, // Row 2 (empty)
		header,
	}

	for _, row := range roster.Rows {
		sheetRow := []interface{}{row.Position, row.Required, len(row.Volunteers), row.Pending}
		for i := 0; i < maxVolunteers; i++ {
			if i < len(row.Volunteers) {
				sheetRow = append(sheetRow, row.Volunteers[i])
			} else {
				sheetRow = append(sheetRow, "")
			}
		}

		oldRow := previous[row.Position]
		for _, col := range extraCols {
			if col < len(oldRow) {
				sheetRow = append(sheetRow, oldRow[col])
			} else {
				sheetRow = append(sheetRow, "")
			}
		}
		values = append(values, sheetRow)
	}

	// Blank out rows left over from a longer previous roster
	for i := len(values); i < len(existing); i++ {
		values = append(values, make([]interface{}, len(header)))
		for j := range values[i] {
			values[i][j] = ""
		}
	}

	return values
}

// findColumnIndex finds the index of a column by its header name
func findColumnIndex(header []interface{}, columnName string) int {
	for i, cell := range header {
		if str, ok := cell.(string); ok && str == columnName {
			return i
		}
	}
	return -1
}
