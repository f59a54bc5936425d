package tracker

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/playlist-sync/internal/commit"
	"github.com/playlist-sync/internal/config"
	"github.com/playlist-sync/internal/models"
	"github.com/playlist-sync/pkg/logger"
)

// SheetColumns defines the column headers for the audit sheet
var SheetColumns = []string{
	"Committed At",
	"Run ID",
	"Playlist",
	"Playlist ID",
	"Video ID",
	"Video Title",
	"Channel ID",
	"Published At",
	"URL",
}

// lastColumn is the letter of the final header column
var lastColumn = string(rune('A' + len(SheetColumns) - 1))

// SheetsTracker appends every committed video to a Google Sheet
type SheetsTracker struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	log           *logger.Logger
}

// NewSheetsTracker creates a new Google Sheets tracker. It returns nil when
// the tracker is disabled.
func NewSheetsTracker(ctx context.Context, cfg config.TrackerConfig, log *logger.Logger) (*SheetsTracker, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var srv *sheets.Service
	var err error

	// Try service account JSON first (for env var injection)
	if cfg.ServiceAccountJSON != "" {
		srv, err = sheets.NewService(ctx, option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)))
	} else if cfg.CredentialsFile != "" {
		srv, err = sheets.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsFile))
	} else {
		return nil, fmt.Errorf("no Google credentials provided: set credentials_file or service_account_json")
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return NewSheetsTrackerWithService(srv, cfg.SpreadsheetID, cfg.SheetName, log), nil
}

// NewSheetsTrackerWithService wraps an existing sheets service
func NewSheetsTrackerWithService(srv *sheets.Service, spreadsheetID, sheetName string, log *logger.Logger) *SheetsTracker {
	if sheetName == "" {
		sheetName = "Commits"
	}
	return &SheetsTracker{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		log:           log.WithComponent("sheets-tracker"),
	}
}

// InitializeSheet creates the sheet and headers if they don't exist
func (t *SheetsTracker) InitializeSheet(ctx context.Context) error {
	if err := t.ensureSheetExists(ctx); err != nil {
		return err
	}

	readRange := fmt.Sprintf("%s!A1:%s1", t.sheetName, lastColumn)
	resp, err := t.service.Spreadsheets.Values.Get(t.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read sheet: %w", err)
	}

	if len(resp.Values) == 0 {
		t.log.Info().Msg("Initializing sheet with headers")
		return t.writeHeaders(ctx)
	}

	t.log.Debug().Msg("Sheet already has headers")
	return nil
}

// ensureSheetExists creates the sheet if it doesn't exist
func (t *SheetsTracker) ensureSheetExists(ctx context.Context) error {
	spreadsheet, err := t.service.Spreadsheets.Get(t.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == t.sheetName {
			t.log.Debug().Str("sheet", t.sheetName).Msg("Sheet already exists")
			return nil
		}
	}

	t.log.Info().Str("sheet", t.sheetName).Msg("Creating new sheet")
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title: t.sheetName,
					},
				},
			},
		},
	}

	_, err = t.service.Spreadsheets.BatchUpdate(t.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	return nil
}

func (t *SheetsTracker) writeHeaders(ctx context.Context) error {
	var headerRow []interface{}
	for _, col := range SheetColumns {
		headerRow = append(headerRow, col)
	}

	writeRange := fmt.Sprintf("%s!A1", t.sheetName)
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{headerRow},
	}

	_, err := t.service.Spreadsheets.Values.Update(t.spreadsheetID, writeRange, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	t.log.Info().Msg("Sheet headers initialized")
	return nil
}

// RecordCommit appends one committed video
func (t *SheetsTracker) RecordCommit(ctx context.Context, rec commit.Record) error {
	row := []interface{}{
		formatTime(rec.CommittedAt),
		rec.RunID,
		rec.PlaylistTitle,
		rec.PlaylistID,
		rec.VideoID,
		rec.VideoTitle,
		string(rec.ChannelID),
		formatTime(rec.PublishedAt),
		"https://www.youtube.com/watch?v=" + rec.VideoID,
	}

	appendRange := fmt.Sprintf("%s!A:%s", t.sheetName, lastColumn)
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{row},
	}

	_, err := t.service.Spreadsheets.Values.Append(t.spreadsheetID, appendRange, valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}

	t.log.Debug().
		Str("video_id", rec.VideoID).
		Str("playlist", rec.PlaylistTitle).
		Msg("Recorded commit")
	return nil
}

// ListCommits reads the audit rows back, oldest first
func (t *SheetsTracker) ListCommits(ctx context.Context) ([]commit.Record, error) {
	readRange := fmt.Sprintf("%s!A2:%s", t.sheetName, lastColumn) // Skip header
	resp, err := t.service.Spreadsheets.Values.Get(t.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read commits: %w", err)
	}

	var records []commit.Record
	for _, row := range resp.Values {
		if rec, ok := parseRow(row); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// parseRow parses a sheet row; rows without a video id are skipped
func parseRow(row []interface{}) (commit.Record, bool) {
	getString := func(i int) string {
		if i < len(row) {
			return fmt.Sprintf("%v", row[i])
		}
		return ""
	}

	getTime := func(i int) time.Time {
		t, _ := time.Parse(time.RFC3339, getString(i))
		return t
	}

	rec := commit.Record{
		CommittedAt:   getTime(0),
		RunID:         getString(1),
		PlaylistTitle: getString(2),
		PlaylistID:    getString(3),
		VideoID:       getString(4),
		VideoTitle:    getString(5),
		ChannelID:     models.ChannelKey(getString(6)),
		PublishedAt:   getTime(7),
	}
	return rec, rec.VideoID != ""
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
