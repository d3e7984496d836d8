package notion

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gcalnotion/internal/models"
)

func TestNewClientValidation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewClient(logger, "", "db", time.UTC, false)
	require.Error(t, err)

	_, err = NewClient(logger, "secret", "", time.UTC, false)
	require.Error(t, err)

	c, err := NewClient(logger, "secret", "db", time.UTC, false)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestBuildPropertiesTimedEvent(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	ev := models.Summary{
		Name:        "Standup",
		Description: "Daily standup",
		Location:    "Meet",
		Link:        "https://calendar.google.com/event?eid=abc",
		Calendar:    "Work",
		DisplayDate: "9:00am - 9:30am",
		Time: models.TimeFields{
			Start: time.Date(2024, time.March, 1, 14, 0, 0, 0, time.UTC),
			End:   time.Date(2024, time.March, 1, 14, 30, 0, 0, time.UTC),
		},
	}

	props := buildProperties(ev, loc)

	title := props["Name"].(notionapi.TitleProperty)
	require.Len(t, title.Title, 1)
	assert.Equal(t, "Standup", title.Title[0].Text.Content)

	display := props["Display Date"].(notionapi.RichTextProperty)
	require.Len(t, display.RichText, 1)
	assert.Equal(t, "9:00am - 9:30am", display.RichText[0].Text.Content)

	assert.Equal(t, "Daily standup", props["Description"].(notionapi.RichTextProperty).RichText[0].Text.Content)
	assert.Equal(t, "Meet", props["Location"].(notionapi.RichTextProperty).RichText[0].Text.Content)
	assert.Equal(t, "Work", props["Calendar"].(notionapi.RichTextProperty).RichText[0].Text.Content)
	assert.False(t, props["All Day"].(notionapi.CheckboxProperty).Checkbox)
	assert.Equal(t, "https://calendar.google.com/event?eid=abc", props["Link"].(notionapi.URLProperty).URL)

	date := props["Date"].(notionapi.DateProperty)
	require.NotNil(t, date.Date)
	require.NotNil(t, date.Date.Start)
	require.NotNil(t, date.Date.End)

	// The range carries the configured zone so serialization emits its
	// explicit UTC offset.
	start := time.Time(*date.Date.Start)
	end := time.Time(*date.Date.End)
	assert.Equal(t, loc, start.Location())
	assert.True(t, start.Equal(ev.Time.Start))
	assert.True(t, end.Equal(ev.Time.End))
}

// recordingTransport answers the Notion API endpoints ReplaceAll touches and
// records each call in order.
type recordingTransport struct {
	calls      []string
	queryCount int
}

func (rt *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.calls = append(rt.calls, req.Method+" "+req.URL.Path)

	var body string
	switch {
	case req.Method == http.MethodPost && strings.HasSuffix(req.URL.Path, "/query"):
		rt.queryCount++
		if rt.queryCount == 1 {
			body = `{"object":"list","results":[{"object":"page","id":"page-1"},{"object":"page","id":"page-2"}],"has_more":false,"next_cursor":""}`
		} else {
			body = `{"object":"list","results":[],"has_more":false,"next_cursor":""}`
		}
	case req.Method == http.MethodDelete:
		body = `{"object":"block","id":"deleted","type":"paragraph","paragraph":{"rich_text":[]}}`
	default: // page create
		body = `{"object":"page","id":"created"}`
	}

	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}, nil
}

func TestReplaceAllDeletesThenCreates(t *testing.T) {
	transport := &recordingTransport{}
	c := &Client{
		api:        notionapi.NewClient("secret", notionapi.WithHTTPClient(&http.Client{Transport: transport})),
		databaseID: "db123",
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		loc:        time.UTC,
	}

	events := []models.Summary{
		{Name: "First", DisplayDate: "All Day", Time: models.TimeFields{AllDay: true}},
		{
			Name:        "Second",
			DisplayDate: "9:00am - 9:30am",
			Time: models.TimeFields{
				Start: time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC),
				End:   time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC),
			},
		},
	}

	require.NoError(t, c.ReplaceAll(context.Background(), events))

	// Two existing rows and two summaries: both deletes run before any
	// create, with a re-query in between confirming the database is empty.
	assert.Equal(t, []string{
		"POST /v1/databases/db123/query",
		"DELETE /v1/blocks/page-1",
		"DELETE /v1/blocks/page-2",
		"POST /v1/databases/db123/query",
		"POST /v1/pages",
		"POST /v1/pages",
	}, transport.calls)
}

func TestReplaceAllDryRunOnlyQueries(t *testing.T) {
	transport := &recordingTransport{}
	c := &Client{
		api:        notionapi.NewClient("secret", notionapi.WithHTTPClient(&http.Client{Transport: transport})),
		databaseID: "db123",
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		loc:        time.UTC,
		dryRun:     true,
	}

	events := []models.Summary{{Name: "First", DisplayDate: "All Day", Time: models.TimeFields{AllDay: true}}}

	require.NoError(t, c.ReplaceAll(context.Background(), events))
	assert.Equal(t, []string{"POST /v1/databases/db123/query"}, transport.calls)
}

func TestBuildPropertiesAllDayEventOmitsDate(t *testing.T) {
	ev := models.Summary{
		Name:        "Vacation",
		Calendar:    "Personal",
		DisplayDate: "All Day",
		Time:        models.TimeFields{AllDay: true},
	}

	props := buildProperties(ev, time.UTC)

	assert.True(t, props["All Day"].(notionapi.CheckboxProperty).Checkbox)
	assert.Equal(t, "All Day", props["Display Date"].(notionapi.RichTextProperty).RichText[0].Text.Content)

	_, hasDate := props["Date"]
	assert.False(t, hasDate)

	// Absent description/location come through as empty strings, not nils.
	assert.Equal(t, "", props["Description"].(notionapi.RichTextProperty).RichText[0].Text.Content)
	assert.Equal(t, "", props["Location"].(notionapi.RichTextProperty).RichText[0].Text.Content)
}
