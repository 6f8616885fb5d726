package sheets

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// GoogleConfig selects the spreadsheet and the service-account credentials.
// Exactly one of CredentialsFile or CredentialsJSON should be set; when both are
// empty Application Default Credentials are used.
type GoogleConfig struct {
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON string
}

// GoogleClient implements Client on the Google Sheets v4 values API.
type GoogleClient struct {
	svc           *sheetsapi.Service
	spreadsheetID string
}

var _ Client = (*GoogleClient)(nil)

func NewGoogleClient(ctx context.Context, cfg GoogleConfig, extra ...option.ClientOption) (*GoogleClient, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}
	opts := []option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsScope)}
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	opts = append(opts, extra...)

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: init service: %w", err)
	}
	return &GoogleClient{svc: svc, spreadsheetID: cfg.SpreadsheetID}, nil
}

func (g *GoogleClient) Values(ctx context.Context, a1 string) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, a1).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = cellString(v)
		}
		out[i] = cells
	}
	return out, nil
}

func (g *GoogleClient) Append(ctx context.Context, a1 string, row []string) error {
	vr := &sheetsapi.ValueRange{Values: [][]interface{}{toCells(row)}}
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, a1, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (g *GoogleClient) Update(ctx context.Context, a1 string, rows [][]string) error {
	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		values[i] = toCells(r)
	}
	vr := &sheetsapi.ValueRange{Range: a1, Values: values}
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, a1, vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	return err
}

func toCells(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
