package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"gcalnotion/internal/models"
)

const (
	credentialsFile = "credentials.json"
	tokenFile       = "token.json"

	// Each individual API call is bounded so a hung request cannot block a
	// run indefinitely.
	callTimeout = 30 * time.Second
)

// CalendarClient provides read access to the Google Calendar API.
type CalendarClient struct {
	service *calendar.Service
	logger  *slog.Logger
}

// NewClient creates a new Google Calendar client from the locally stored
// token. A missing or unreadable token is a fatal setup error; run the
// 'auth' command first.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret string) (*CalendarClient, error) {
	config, err := getOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("could not load %s: %w. Please run the 'auth' command first", tokenFile, err)
	}

	client := config.Client(ctx, token)
	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &CalendarClient{service: service, logger: logger}, nil
}

// FetchDayEvents returns every event occurring on the calendar day that now
// falls on, across all visible calendars except those whose primary name is
// in exclude. The per-calendar event listings run concurrently; any single
// failure fails the whole fetch.
func (c *CalendarClient) FetchDayEvents(ctx context.Context, exclude map[string]struct{}, now time.Time) ([]models.RawEvent, error) {
	calendars, err := c.listCalendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	kept := filterCalendars(calendars, exclude)
	c.logger.Debug("Filtered calendar list", "total", len(calendars), "kept", len(kept))

	dayStart, dayEnd := dayWindow(now)

	results := make([][]models.RawEvent, len(kept))
	g, gctx := errgroup.WithContext(ctx)
	for i, entry := range kept {
		i, entry := i, entry
		g.Go(func() error {
			items, err := c.listEvents(gctx, entry.Id, dayStart, dayEnd)
			if err != nil {
				return fmt.Errorf("failed to list events for calendar %q: %w", entry.Summary, err)
			}
			events, err := toRawEvents(items, displayName(entry))
			if err != nil {
				return fmt.Errorf("bad event data in calendar %q: %w", entry.Summary, err)
			}
			results[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var flat []models.RawEvent
	for _, events := range results {
		flat = append(flat, events...)
	}

	c.logger.Info("Fetched events from Google Calendar", "count", len(flat), "calendars", len(kept))
	return flat, nil
}

func (c *CalendarClient) listCalendars(ctx context.Context) ([]*calendar.CalendarListEntry, error) {
	tctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	list, err := c.service.CalendarList.List().Context(tctx).Do()
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (c *CalendarClient) listEvents(ctx context.Context, calendarID string, from, to time.Time) ([]*calendar.Event, error) {
	tctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	events, err := c.service.Events.List(calendarID).
		SingleEvents(true).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		OrderBy("startTime").
		Context(tctx).
		Do()
	if err != nil {
		return nil, err
	}
	return events.Items, nil
}

// filterCalendars drops every calendar whose primary summary appears in
// exclude. The override name is deliberately not consulted here; exclusion
// lists are maintained against the calendar's own name.
func filterCalendars(entries []*calendar.CalendarListEntry, exclude map[string]struct{}) []*calendar.CalendarListEntry {
	var kept []*calendar.CalendarListEntry
	for _, entry := range entries {
		if _, skip := exclude[entry.Summary]; skip {
			continue
		}
		kept = append(kept, entry)
	}
	return kept
}

// displayName prefers the user's renamed label over the calendar's own name.
func displayName(entry *calendar.CalendarListEntry) string {
	if entry.SummaryOverride != "" {
		return entry.SummaryOverride
	}
	return entry.Summary
}

// dayWindow returns [start of day, end of day) around now, in now's location.
func dayWindow(now time.Time) (time.Time, time.Time) {
	year, month, day := now.Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}

// toRawEvents converts Google Calendar event resources to the internal raw
// event model, tagging each with the owning calendar's display name.
func toRawEvents(items []*calendar.Event, calendarName string) ([]models.RawEvent, error) {
	var events []models.RawEvent
	for _, item := range items {
		start, err := toBoundary(item.Start)
		if err != nil {
			return nil, fmt.Errorf("event %q start: %w", item.Summary, err)
		}
		end, err := toBoundary(item.End)
		if err != nil {
			return nil, fmt.Errorf("event %q end: %w", item.Summary, err)
		}

		events = append(events, models.RawEvent{
			Title:       item.Summary,
			Description: item.Description,
			Location:    item.Location,
			Link:        item.HtmlLink,
			Calendar:    calendarName,
			Start:       start,
			End:         end,
		})
	}
	return events, nil
}

// toBoundary maps an EventDateTime to a boundary. A missing DateTime means
// the provider supplied only a date, which is how all-day events arrive.
func toBoundary(edt *calendar.EventDateTime) (models.Boundary, error) {
	if edt == nil || edt.DateTime == "" {
		return models.Boundary{DateOnly: true}, nil
	}
	instant, err := time.Parse(time.RFC3339, edt.DateTime)
	if err != nil {
		return models.Boundary{}, fmt.Errorf("unparseable dateTime %q: %w", edt.DateTime, err)
	}
	return models.Boundary{Instant: instant}, nil
}

// GetOAuthConfigForAuthFlow is used by the auth command to get the config for the web flow.
func GetOAuthConfigForAuthFlow(clientID, clientSecret string) (*oauth2.Config, error) {
	return getOAuthConfig(clientID, clientSecret)
}

// getOAuthConfig reads credentials and returns an OAuth2 config.
// It prioritizes environment variables over a local credentials.json file.
func getOAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{calendar.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("credentials.json not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or place credentials.json in the root directory")
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob" // For desktop app flow
	return config, nil
}

// TokenFromWeb is called by the auth flow to retrieve a token.
func TokenFromWeb(config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(context.Background(), authCode)
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// TokenPath is where the auth command stores the credential and where
// NewClient expects to find it.
func TokenPath() string { return tokenFile }

// tokenFromFile retrieves a token from a local file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}
