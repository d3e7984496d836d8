package notion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jomei/notionapi"

	"gcalnotion/internal/models"
)

const (
	// queryPageSize matches the Notion API maximum.
	queryPageSize = 100

	callTimeout = 30 * time.Second
)

// Client writes event summaries into a single Notion database.
type Client struct {
	api        *notionapi.Client
	databaseID notionapi.DatabaseID
	logger     *slog.Logger
	loc        *time.Location
	dryRun     bool
}

// NewClient creates a client bound to one database. The location is used to
// render the start/end date range with an explicit UTC offset.
func NewClient(logger *slog.Logger, token, databaseID string, loc *time.Location, dryRun bool) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("notion token is empty")
	}
	if databaseID == "" {
		return nil, fmt.Errorf("notion database ID is empty")
	}

	return &Client{
		api:        notionapi.NewClient(notionapi.Token(token)),
		databaseID: notionapi.DatabaseID(databaseID),
		logger:     logger,
		loc:        loc,
		dryRun:     dryRun,
	}, nil
}

// ReplaceAll wipes every existing row in the database and inserts one row per
// summary. Deletes and creates run strictly sequentially; the Notion API
// rate-limits write bursts and sequential ordering keeps the run
// deterministic. Not transactional: a failure mid-way leaves the database
// partially updated.
func (c *Client) ReplaceAll(ctx context.Context, events []models.Summary) error {
	deleted, err := c.deleteAllRows(ctx)
	if err != nil {
		return fmt.Errorf("failed to wipe database: %w", err)
	}
	c.logger.Info("Deleted previous rows", "count", deleted)

	for _, ev := range events {
		if c.dryRun {
			c.logger.Info("[DRY RUN] Would add event to database", "name", ev.Name, "displayDate", ev.DisplayDate)
			continue
		}
		if err := c.createRow(ctx, ev); err != nil {
			return fmt.Errorf("failed to create row for %q: %w", ev.Name, err)
		}
		c.logger.Info("Added event to database", "name", ev.Name)
	}
	return nil
}

// deleteAllRows removes existing rows page by page until the database is
// empty. Re-querying without a cursor after each page avoids holding a
// cursor across deletions.
func (c *Client) deleteAllRows(ctx context.Context) (int, error) {
	deleted := 0
	for {
		pages, err := c.queryPage(ctx)
		if err != nil {
			return deleted, err
		}
		if len(pages) == 0 {
			return deleted, nil
		}
		if c.dryRun {
			c.logger.Info("[DRY RUN] Would delete rows", "count", len(pages))
			return deleted, nil
		}
		for _, page := range pages {
			if err := c.deleteRow(ctx, page.ID); err != nil {
				return deleted, fmt.Errorf("failed to delete row %s: %w", page.ID, err)
			}
			deleted++
		}
	}
}

func (c *Client) queryPage(ctx context.Context) ([]notionapi.Page, error) {
	tctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	resp, err := c.api.Database.Query(tctx, c.databaseID, &notionapi.DatabaseQueryRequest{
		PageSize: queryPageSize,
	})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) deleteRow(ctx context.Context, id notionapi.ObjectID) error {
	tctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	_, err := c.api.Block.Delete(tctx, notionapi.BlockID(id))
	return err
}

func (c *Client) createRow(ctx context.Context, ev models.Summary) error {
	tctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	_, err := c.api.Page.Create(tctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: c.databaseID,
		},
		Properties: buildProperties(ev, c.loc),
	})
	return err
}

// buildProperties maps one summary onto the database's fixed columns. The
// Date range is only set for events with real clock times; all-day rows carry
// the flag and the display label instead.
func buildProperties(ev models.Summary, loc *time.Location) notionapi.Properties {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: richText(ev.Name),
		},
		"Description": notionapi.RichTextProperty{
			RichText: richText(ev.Description),
		},
		"Location": notionapi.RichTextProperty{
			RichText: richText(ev.Location),
		},
		"Calendar": notionapi.RichTextProperty{
			RichText: richText(ev.Calendar),
		},
		"Display Date": notionapi.RichTextProperty{
			RichText: richText(ev.DisplayDate),
		},
		"All Day": notionapi.CheckboxProperty{
			Checkbox: ev.Time.AllDay,
		},
		"Link": notionapi.URLProperty{
			URL: ev.Link,
		},
	}

	if !ev.Time.AllDay {
		start := notionapi.Date(ev.Time.Start.In(loc))
		end := notionapi.Date(ev.Time.End.In(loc))
		props["Date"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: &start,
				End:   &end,
			},
		}
	}

	return props
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{Text: &notionapi.Text{Content: content}},
	}
}
