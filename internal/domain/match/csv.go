package match

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Column names of the provider table.
const (
	ColumnID     = "id"
	ColumnTeam1  = "team1"
	ColumnTeam2  = "team2"
	ColumnScore1 = "score1"
	ColumnScore2 = "score2"
	ColumnYear   = "year"
)

var requiredColumns = []string{ColumnTeam1, ColumnTeam2, ColumnScore1, ColumnScore2, ColumnYear}

// ReadCSV parses the raw data provider table. The first row is the header.
// The match id comes from an "id" column, or from an unnamed first column as
// written by dataframe exports; without either, the row position is used.
// Unknown columns are ignored.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return NewTable(nil)
		}
		return nil, fmt.Errorf("%w: header: %w", ErrReadTable, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrReadTable, name)
		}
	}
	idCol := -1
	if i, ok := index[ColumnID]; ok {
		idCol = i
	} else if len(header) > 0 && strings.TrimSpace(header[0]) == "" {
		idCol = 0
	}

	var matches []Match
	for row := 0; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrReadTable, row, err)
		}
		m, err := parseRecord(row, rec, index, idCol)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return NewTable(matches)
}

func parseRecord(row int, rec []string, index map[string]int, idCol int) (Match, error) {
	field := func(name string) string {
		i := index[name]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	number := func(name string) (int, error) {
		v, err := strconv.Atoi(field(name))
		if err != nil {
			return 0, &ValidationError{Row: row, Field: name, Reason: "not an integer"}
		}
		return v, nil
	}

	m := Match{ID: row, Team1: field(ColumnTeam1), Team2: field(ColumnTeam2)}
	if idCol >= 0 && idCol < len(rec) {
		id, err := strconv.Atoi(strings.TrimSpace(rec[idCol]))
		if err != nil {
			return Match{}, &ValidationError{Row: row, Field: ColumnID, Reason: "not an integer"}
		}
		m.ID = id
	}
	var err error
	if m.Score1, err = number(ColumnScore1); err != nil {
		return Match{}, err
	}
	if m.Score2, err = number(ColumnScore2); err != nil {
		return Match{}, err
	}
	if m.Year, err = number(ColumnYear); err != nil {
		return Match{}, err
	}
	return m, nil
}
