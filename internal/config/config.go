package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const defaultExcludePath = "exclude.json"

// Config holds the per-run settings, read from the environment. The .env
// file is loaded by the entrypoint before this runs.
type Config struct {
	// Timezone is the IANA zone all day-boundary comparisons use.
	Timezone string

	NotionToken      string
	NotionDatabaseID string

	// ExcludePath points at the JSON file listing calendars to skip.
	ExcludePath string

	// GoogleClientID/Secret may be empty, in which case the Google client
	// falls back to a local credentials.json.
	GoogleClientID     string
	GoogleClientSecret string
}

// Load reads the configuration from the environment and validates the
// required values.
func Load() (*Config, error) {
	cfg := &Config{
		Timezone:           os.Getenv("TIMEZONE"),
		NotionToken:        os.Getenv("NOTION_TOKEN"),
		NotionDatabaseID:   os.Getenv("NOTION_DB_ID"),
		ExcludePath:        os.Getenv("EXCLUDE_PATH"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
	}

	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.ExcludePath == "" {
		cfg.ExcludePath = defaultExcludePath
	}
	if cfg.NotionToken == "" {
		return nil, fmt.Errorf("NOTION_TOKEN environment variable not set")
	}
	if cfg.NotionDatabaseID == "" {
		return nil, fmt.Errorf("NOTION_DB_ID environment variable not set")
	}

	return cfg, nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// excludeFile is the on-disk shape of the exclusion list:
//
//	{"exclude": ["Birthdays", "Holidays"]}
type excludeFile struct {
	Exclude []string `json:"exclude"`
}

// LoadExcluded reads the exclusion list into a set of calendar names. A
// missing or malformed file is a fatal setup error.
func LoadExcluded(path string) (map[string]struct{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read exclude file: %w", err)
	}

	var file excludeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse exclude file %s: %w", path, err)
	}

	exclude := make(map[string]struct{}, len(file.Exclude))
	for _, name := range file.Exclude {
		exclude[name] = struct{}{}
	}
	return exclude, nil
}
