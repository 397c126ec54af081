package services

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// WorksheetReader reads rows from one sheet of the reference spreadsheet.
type WorksheetReader interface {
	ReadSheet(ctx context.Context, sheetIndex, startRow int) ([][]string, error)
}

// ReferenceData is the supplementary lookup data for a run: the seller
// directory and the policy-attribute table, both keyed by policy number.
type ReferenceData struct {
	SellerByPolicy map[string]string
	AttbByPolicy   map[string]string
}

func (d *ReferenceData) Empty() bool {
	return d == nil || (len(d.SellerByPolicy) == 0 && len(d.AttbByPolicy) == 0)
}

// Worksheet layout: sellers on sheet 2 from row 2, attributes on sheet 3
// from row 2, both as (policy number, value) pairs.
const (
	sellerSheetIndex = 1
	sellerStartRow   = 2
	attbSheetIndex   = 2
	attbStartRow     = 2
)

// ReferenceLoader fetches the reference data at most once per process and
// hands the same snapshot to every caller afterwards. The data is read-only
// after the one-time load; the once guard makes that safe if a future change
// introduces parallelism.
type ReferenceLoader struct {
	reader WorksheetReader
	once   sync.Once
	data   *ReferenceData
	err    error
}

func NewReferenceLoader(reader WorksheetReader) *ReferenceLoader {
	return &ReferenceLoader{reader: reader}
}

// Get returns the reference snapshot, loading it on the first call. A nil
// reader disables the feature and yields empty data.
func (l *ReferenceLoader) Get(ctx context.Context) (*ReferenceData, error) {
	l.once.Do(func() {
		l.data = &ReferenceData{
			SellerByPolicy: make(map[string]string),
			AttbByPolicy:   make(map[string]string),
		}
		if l.reader == nil {
			return
		}

		sellers, err := l.reader.ReadSheet(ctx, sellerSheetIndex, sellerStartRow)
		if err != nil {
			l.err = err
			return
		}
		fillPairs(l.data.SellerByPolicy, sellers)

		attbs, err := l.reader.ReadSheet(ctx, attbSheetIndex, attbStartRow)
		if err != nil {
			l.err = err
			return
		}
		fillPairs(l.data.AttbByPolicy, attbs)

		slog.Info("Reference data loaded",
			"sellers", len(l.data.SellerByPolicy),
			"attributes", len(l.data.AttbByPolicy))
	})
	return l.data, l.err
}

func fillPairs(dst map[string]string, rows [][]string) {
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		key := strings.TrimSpace(row[0])
		value := strings.TrimSpace(row[1])
		if key == "" || value == "" {
			continue
		}
		dst[key] = value
	}
}
