package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/service"
)

const (
	colPlayer  = "player"
	colJersey  = "jersey"
	colLabel   = "label"
	colOutcome = "outcome"
	colTeam    = "team"
)

var requiredColumns = []string{colPlayer, colJersey, colLabel}

// ParseCSV reads possession rows from csv with header.
//
// Columns player, jersey and label are required,
// outcome and team are optional. Empty optional
// cells are treated as missing values.
func ParseCSV(r io.Reader) ([]models.PossessionRow, error) {
	const op = "ingest.ParseCSV"

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", op, &service.RowError{Line: 1, Msg: "empty file"})
		}
		return nil, fmt.Errorf("%s: %w", op, csvError(err))
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, ok := columns[name]; !ok {
			columns[name] = i
		}
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%s: %w", op, &service.RowError{Line: 1, Field: name, Msg: "missing column"})
		}
	}

	rows := make([]models.PossessionRow, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, csvError(err))
		}

		line, _ := reader.FieldPos(0)

		cell := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		optional := func(name string) *string {
			if v := cell(name); v != "" {
				return &v
			}
			return nil
		}

		row := models.PossessionRow{
			Line:    line,
			Player:  cell(colPlayer),
			Jersey:  cell(colJersey),
			Label:   cell(colLabel),
			Outcome: optional(colOutcome),
			Team:    optional(colTeam),
		}
		if err := validateRow(row); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func validateRow(row models.PossessionRow) error {
	switch {
	case row.Player == "":
		return &service.RowError{Line: row.Line, Field: colPlayer, Msg: "required"}
	case row.Jersey == "":
		return &service.RowError{Line: row.Line, Field: colJersey, Msg: "required"}
	case row.Label == "":
		return &service.RowError{Line: row.Line, Field: colLabel, Msg: "required"}
	}
	return nil
}

func csvError(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &service.RowError{Line: parseErr.Line, Msg: parseErr.Err.Error()}
	}
	return err
}
