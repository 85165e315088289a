// Package gsheets implements the attendance grid over the Google Sheets
// values API. Rows and columns are 1-based throughout, matching sheet
// coordinates.
package gsheets

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/theimaginaryfoundation/groups-logger/attendance"
)

// Client addresses a single spreadsheet by ID.
type Client struct {
	svc           *sheets.Service
	spreadsheetID string
}

// New authenticates with service-account credentials JSON and binds the
// client to one spreadsheet.
func New(ctx context.Context, credsJSON []byte, spreadsheetID string) (*Client, error) {
	creds, err := google.CredentialsFromJSON(ctx, credsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse sheets credentials: %w", err)
	}
	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// ReadRow returns the cell values of one row, left to right. Trailing
// empty cells are omitted by the API.
func (c *Client) ReadRow(ctx context.Context, sheet string, row int) ([]string, error) {
	rng := fmt.Sprintf("'%s'!%d:%d", sheet, row, row)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s row %d: %w", sheet, row, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	return cellStrings(resp.Values[0]), nil
}

// ReadColumn returns the cell values of one column, top to bottom.
func (c *Client) ReadColumn(ctx context.Context, sheet string, col int) ([]string, error) {
	letter := colLetter(col)
	rng := fmt.Sprintf("'%s'!%s:%s", sheet, letter, letter)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s column %s: %w", sheet, letter, err)
	}
	out := make([]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) == 0 {
			out = append(out, "")
			continue
		}
		out = append(out, cellString(row[0]))
	}
	return out, nil
}

// ReadAllRows returns the sheet's populated cells as a row-major grid.
func (c *Client) ReadAllRows(ctx context.Context, sheet string) ([][]string, error) {
	rng := fmt.Sprintf("'%s'", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}
	out := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		out = append(out, cellStrings(row))
	}
	return out, nil
}

// WriteCell sets one cell. Values are written RAW so the TRUE/FALSE
// literals land as typed exactly.
func (c *Client) WriteCell(ctx context.Context, sheet string, row, col int, value string) error {
	rng := cellRange(sheet, row, col)
	vr := &sheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", rng, err)
	}
	return nil
}

// WriteCellsBatch applies all staged writes to one sheet in a single
// batch request.
func (c *Client) WriteCellsBatch(ctx context.Context, sheet string, writes []attendance.CellWrite) error {
	if len(writes) == 0 {
		return nil
	}
	data := make([]*sheets.ValueRange, 0, len(writes))
	for _, w := range writes {
		data = append(data, &sheets.ValueRange{
			Range:  cellRange(sheet, w.Row, w.Col),
			Values: [][]interface{}{{w.Value}},
		})
	}
	req := &sheets.BatchUpdateValuesRequest{ValueInputOption: "RAW", Data: data}
	_, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("batch write %d cells to %s: %w", len(writes), sheet, err)
	}
	return nil
}

func cellRange(sheet string, row, col int) string {
	return fmt.Sprintf("'%s'!%s%d", sheet, colLetter(col), row)
}

// colLetter converts a 1-based column index to A1 notation (1=A, 27=AA).
func colLetter(col int) string {
	var out []byte
	for col > 0 {
		col--
		out = append([]byte{byte('A' + col%26)}, out...)
		col /= 26
	}
	return string(out)
}

func cellStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = cellString(v)
	}
	return out
}

func cellString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
