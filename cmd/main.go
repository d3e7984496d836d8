package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"gcalnotion/internal/config"
	"gcalnotion/internal/google"
	"gcalnotion/internal/notion"
	"gcalnotion/internal/syncer"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "gcalnotion",
		Usage: "Mirror today's Google Calendar events into a Notion database.",
		Commands: []*cli.Command{
			authCommand(),
			syncCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			oauthConfig, err := google.GetOAuthConfigForAuthFlow(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			if err := google.SaveToken(google.TokenPath(), token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", google.TokenPath())
			return nil
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Replace the Notion database with today's calendar events.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be synced without making changes."},
			&cli.StringFlag{Name: "cron", Usage: "Stay resident and run on this cron schedule (e.g. '0 6 * * *')."},
		},
		Action: func(c *cli.Context) error {
			logLevel := os.Getenv("LOG_LEVEL")
			if logLevel == "" {
				logLevel = "info"
			}
			logger := setupLogger(logLevel)

			if c.Bool("dry-run") {
				logger.Info("Performing a dry run. No changes will be made.")
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			exclude, err := config.LoadExcluded(cfg.ExcludePath)
			if err != nil {
				return fmt.Errorf("failed to load exclusion list: %w", err)
			}
			logger.Info("Loaded exclusion list.", "file", cfg.ExcludePath, "count", len(exclude))

			gClient, err := google.NewClient(c.Context, logger, cfg.GoogleClientID, cfg.GoogleClientSecret)
			if err != nil {
				return fmt.Errorf("failed to create google client: %w", err)
			}

			nClient, err := notion.NewClient(logger, cfg.NotionToken, cfg.NotionDatabaseID, loc, c.Bool("dry-run"))
			if err != nil {
				return fmt.Errorf("failed to create notion client: %w", err)
			}

			s := syncer.NewSyncer(logger, gClient, nClient, exclude, loc)

			if expr := c.String("cron"); expr != "" {
				return runScheduled(c.Context, logger, s, expr)
			}

			logger.Info("Running a single sync cycle.")
			if err := s.Sync(c.Context); err != nil {
				return fmt.Errorf("sync cycle failed: %w", err)
			}
			return nil
		},
	}
}

// runScheduled keeps the process resident and triggers a sync run on the
// given cron schedule until interrupted. Individual run failures are logged
// and do not stop the schedule.
func runScheduled(ctx context.Context, logger *slog.Logger, s *syncer.Syncer, expr string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := cron.New()
	_, err := scheduler.AddFunc(expr, func() {
		if err := s.Sync(ctx); err != nil {
			logger.Error("Sync cycle failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	logger.Info("Starting scheduler.", "cron", expr)
	scheduler.Start()
	<-ctx.Done()

	logger.Info("Shutting down scheduler.")
	<-scheduler.Stop().Done()
	return nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
