package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"feeledger/internal/core"
	ports "feeledger/internal/sheets"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// RecordHeader is the first row of every records sheet.
var RecordHeader = []any{
	"Record ID", "Date", "Student ID", "Student Name", "Class", "Month",
	"Monthly Fee", "Annual Charges", "Admission Fee", "Received",
	"Payment Method", "Reference", "Remarks", "Academic Year", "Entered At",
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base sheet name without year, e.g. "Fee Records".
	recordsBase string

	// Record ids already present per sheet, refreshed after
	// cacheValidDuration.
	mu                 sync.Mutex
	knownIDs           map[string]map[int64]struct{}
	cacheExpiresAt     map[string]time.Time
	cacheValidDuration time.Duration
}

var _ ports.RecordMirror = (*Client)(nil)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Optional: GOOGLE_SHEET_NAME (default "Fee Records").
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	base := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if base == "" {
		base = "Fee Records"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, base), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, recordsBase string) *Client {
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		recordsBase:        recordsBase,
		knownIDs:           make(map[string]map[int64]struct{}),
		cacheExpiresAt:     make(map[string]time.Time),
		cacheValidDuration: 5 * time.Minute,
	}
}

// newSheetsService initializes a Sheets service with service account
// credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		var err error
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// newHTTPClientWithPooling returns an HTTP client with connection pooling
// and timeouts suited to the Sheets API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// MirrorRecord appends r to "<year> <base>", where year is taken from the
// record's entry time. A record whose id is already in the sheet is left
// alone and its existing reference returned.
func (c *Client) MirrorRecord(ctx context.Context, r core.PaymentRecord) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if r.ID <= 0 {
		return "", fmt.Errorf("%w: record has no id", core.ErrInvalidInput)
	}
	sheet := c.sheetFor(r)

	found, header, err := c.lookup(ctx, sheet, r.ID)
	if err != nil {
		return "", err
	}
	if found {
		slog.InfoContext(ctx, "Record already mirrored", "record_id", r.ID, "sheet", sheet)
		return fmt.Sprintf("%s#%d", sheet, r.ID), nil
	}

	rows := [][]any{recordRow(r)}
	if !header {
		rows = append([][]any{RecordHeader}, rows...)
	}

	rng := fmt.Sprintf("%s!A:O", sheet)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		c.invalidate(sheet)
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	c.remember(sheet, r.ID)
	ref := fmt.Sprintf("%s#%d", sheet, r.ID)
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Record mirrored to sheet", "record_id", r.ID, "range", ref)
	return ref, nil
}

func (c *Client) sheetFor(r core.PaymentRecord) string {
	at := r.EnteredAt
	if at.IsZero() {
		at = r.Date
	}
	if at.IsZero() {
		at = time.Now()
	}
	return yearPrefixedName(c.recordsBase, at.Year())
}

// lookup reports whether id is already in sheet and whether the sheet has
// its header row. Column A is cached for cacheValidDuration. The header is
// remembered as id 0, which no stored record can have.
func (c *Client) lookup(ctx context.Context, sheet string, id int64) (found, header bool, err error) {
	c.mu.Lock()
	ids, ok := c.knownIDs[sheet]
	if ok && time.Now().Before(c.cacheExpiresAt[sheet]) {
		_, found = ids[id]
		_, header = ids[0]
		c.mu.Unlock()
		return found, header, nil
	}
	c.mu.Unlock()

	rng := fmt.Sprintf("%s!A:A", sheet)
	var values [][]any
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	switch {
	case isMissingSheet(err):
		if err := c.addSheet(ctx, sheet); err != nil {
			return false, false, err
		}
	case err != nil:
		return false, false, fmt.Errorf("read %s: %w", rng, err)
	default:
		values = resp.Values
	}
	ids, header = parseIDColumn(values)
	if header {
		ids[0] = struct{}{}
	}
	_, found = ids[id]

	c.mu.Lock()
	c.knownIDs[sheet] = ids
	c.cacheExpiresAt[sheet] = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()
	return found, header, nil
}

// addSheet creates a new tab for a year that has no records yet.
func (c *Client) addSheet(ctx context.Context, sheet string) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: sheet}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	slog.InfoContext(ctx, "Created records sheet", "sheet", sheet)
	return nil
}

// isMissingSheet reports whether err is the API's answer to a range on a
// tab that does not exist.
func isMissingSheet(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "Unable to parse range")
}

func (c *Client) remember(sheet string, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.knownIDs[sheet] == nil {
		c.knownIDs[sheet] = make(map[int64]struct{})
	}
	c.knownIDs[sheet][0] = struct{}{}
	c.knownIDs[sheet][id] = struct{}{}
}

func (c *Client) invalidate(sheet string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.knownIDs, sheet)
	delete(c.cacheExpiresAt, sheet)
}

// recordRow lays out r in RecordHeader order.
func recordRow(r core.PaymentRecord) []any {
	return []any{
		r.ID,
		r.Date.Format("2006-01-02"),
		r.StudentID,
		r.StudentName,
		string(r.Class),
		string(r.Month),
		r.MonthlyFee.Int64(),
		r.AnnualCharges.Int64(),
		r.AdmissionFee.Int64(),
		r.Received.Int64(),
		string(r.Method),
		r.Reference,
		r.Remarks,
		r.AcademicYear,
		r.EnteredAt.Format(time.RFC3339),
	}
}

// parseIDColumn reads record ids from a column A values matrix. Blank and
// non-numeric cells are skipped; header reports whether the first row is
// the "Record ID" header.
func parseIDColumn(values [][]any) (ids map[int64]struct{}, header bool) {
	ids = make(map[int64]struct{}, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(row[0]))
		if i == 0 && strings.EqualFold(v, fmt.Sprint(RecordHeader[0])) {
			header = true
			continue
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids[id] = struct{}{}
	}
	return ids, header
}

// yearPrefixedName returns "<year> <base>" unless base already starts with
// a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
