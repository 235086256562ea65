// Package sheets reads dashboard collections from a Google spreadsheet. Each
// collection lives in its own range whose first row holds the column headers.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	records "github.com/smallbiznis/studioledger/internal/records/domain"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	SourceName = "sheets"

	valueRenderUnformatted = "UNFORMATTED_VALUE"
	dateRenderFormatted    = "FORMATTED_STRING"
)

var (
	ErrSpreadsheetNotConfigured = errors.New("spreadsheet_not_configured")
	ErrRangeNotConfigured       = errors.New("sheet_range_not_configured")
)

// Ranges maps each collection to an A1 range such as "Leads!A:Z".
type Ranges map[records.CollectionName]string

type Client struct {
	svc           *sheets.Service
	spreadsheetID string
	ranges        Ranges
}

// NewClient builds a read-only client from a service-account JSON key file.
func NewClient(ctx context.Context, spreadsheetID, credentialsFile string, ranges Ranges) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, ErrSpreadsheetNotConfigured
	}
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read sheets credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse sheets credentials: %w", err)
	}
	return NewClientWithOptions(ctx, spreadsheetID, ranges, option.WithCredentials(creds))
}

// NewClientWithOptions builds a client with explicit API options.
func NewClientWithOptions(ctx context.Context, spreadsheetID string, ranges Ranges, opts ...option.ClientOption) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, ErrSpreadsheetNotConfigured
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, ranges: ranges}, nil
}

func (c *Client) Name() string { return SourceName }

func (c *Client) Fetch(ctx context.Context, collection records.CollectionName) ([]records.RawRecord, error) {
	rng, ok := c.ranges[collection]
	if !ok || strings.TrimSpace(rng) == "" {
		return nil, fmt.Errorf("%w: %s", ErrRangeNotConfigured, collection)
	}

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption(valueRenderUnformatted).
		DateTimeRenderOption(dateRenderFormatted).
		Context(ctx).
		Do()
	if err != nil {
		return nil, errors.Join(records.ErrSourceUnavailable, err)
	}
	return Rows(resp.Values), nil
}

// Rows turns a values matrix into records keyed by the header row. Columns
// with a blank header are ignored, as are rows with no non-empty cell.
func Rows(values [][]interface{}) []records.RawRecord {
	if len(values) == 0 {
		return []records.RawRecord{}
	}

	header := make([]string, len(values[0]))
	for i, cell := range values[0] {
		header[i] = strings.TrimSpace(fmt.Sprint(cell))
	}

	out := make([]records.RawRecord, 0, len(values)-1)
	for _, row := range values[1:] {
		rec := make(records.RawRecord, len(header))
		for i, cell := range row {
			if i >= len(header) || header[i] == "" || isBlank(cell) {
				continue
			}
			rec[header[i]] = cell
		}
		if len(rec) == 0 {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func isBlank(cell interface{}) bool {
	switch v := cell.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		return false
	}
}
