// Package sheets reads the reference worksheet (seller directory, policy
// attributes) with a Google service account.
package sheets

import (
	"context"
	"fmt"

	"crm-sync-service/internal/config"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type Reader struct {
	svc           *sheets.Service
	spreadsheetID string
}

func NewReader(ctx context.Context, cfg config.SheetsConfig) (*Reader, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(cfg.KeyfilePath),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Reader{svc: svc, spreadsheetID: cfg.SpreadsheetID}, nil
}

// ReadSheet returns the rows of the sheet at the given zero-based index,
// starting from startRow (1-based, header rows above it are skipped).
func (r *Reader) ReadSheet(ctx context.Context, sheetIndex, startRow int) ([][]string, error) {
	meta, err := r.svc.Spreadsheets.Get(r.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet metadata: %w", err)
	}
	if sheetIndex < 0 || sheetIndex >= len(meta.Sheets) {
		return nil, fmt.Errorf("spreadsheet has no sheet at index %d", sheetIndex)
	}
	title := meta.Sheets[sheetIndex].Properties.Title

	readRange := fmt.Sprintf("'%s'!A%d:Z", title, startRow)
	resp, err := r.svc.Spreadsheets.Values.Get(r.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read range %s: %w", readRange, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, fmt.Sprint(cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}
