package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gcalnotion/internal/event"
	"gcalnotion/internal/models"
)

// CalendarSource yields the raw events for the day now falls on, minus the
// excluded calendars.
type CalendarSource interface {
	FetchDayEvents(ctx context.Context, exclude map[string]struct{}, now time.Time) ([]models.RawEvent, error)
}

// TableStore replaces the destination's rows with the given summaries.
type TableStore interface {
	ReplaceAll(ctx context.Context, events []models.Summary) error
}

// Syncer orchestrates one run: fetch today's events, normalize them, and
// replace the destination's contents.
type Syncer struct {
	logger  *slog.Logger
	source  CalendarSource
	store   TableStore
	exclude map[string]struct{}
	loc     *time.Location
	now     func() time.Time
}

// NewSyncer creates a new Syncer.
func NewSyncer(logger *slog.Logger, source CalendarSource, store TableStore, exclude map[string]struct{}, loc *time.Location) *Syncer {
	return &Syncer{
		logger:  logger,
		source:  source,
		store:   store,
		exclude: exclude,
		loc:     loc,
		now:     time.Now,
	}
}

// Sync performs a full fetch-normalize-replace cycle. Any failure aborts the
// run; a fetch failure happens before the destination is touched, a store
// failure may leave it partially updated.
func (s *Syncer) Sync(ctx context.Context) error {
	runID := uuid.NewString()
	logger := s.logger.With("runID", runID)

	now := s.now()
	logger.Info("Starting sync run", "day", now.In(s.loc).Format(time.DateOnly))

	raw, err := s.source.FetchDayEvents(ctx, s.exclude, now)
	if err != nil {
		return fmt.Errorf("failed to fetch events: %w", err)
	}

	summaries := s.summarize(logger, raw, now)

	if err := s.store.ReplaceAll(ctx, summaries); err != nil {
		return fmt.Errorf("failed to replace destination rows: %w", err)
	}

	logger.Info("Sync run finished", "events", len(summaries))
	return nil
}

// summarize normalizes each raw event into its display-ready form.
func (s *Syncer) summarize(logger *slog.Logger, raw []models.RawEvent, now time.Time) []models.Summary {
	summaries := make([]models.Summary, 0, len(raw))
	for _, r := range raw {
		if event.MixedBoundaries(r.Start, r.End) {
			// Providers should never send one timed and one date-only
			// boundary; fall back to all-day but make it visible.
			logger.Warn("Event has mixed boundaries, treating as all day", "title", r.Title, "calendar", r.Calendar)
		}
		fields := event.Normalize(r.Start, r.End, now, s.loc)
		summaries = append(summaries, models.Summary{
			Name:        r.Title,
			Description: r.Description,
			Location:    r.Location,
			Link:        r.Link,
			Calendar:    r.Calendar,
			Time:        fields,
			DisplayDate: event.DisplayDate(fields),
		})
	}
	return summaries
}
