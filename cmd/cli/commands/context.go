package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/volts/internal/config"
	"github.com/jakechorley/volts/pkg/clients/sheetsclient"
	"github.com/jakechorley/volts/pkg/db"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Env          string
	Cfg          *config.Config
	Database     db.Database
	Logger       *zap.Logger
	Ctx          context.Context
	ActingUserID string

	sheetsClient *sheetsclient.Client
}

// SheetsClient returns the Google Sheets client, running the OAuth flow on first use
func (app *AppContext) SheetsClient() (*sheetsclient.Client, error) {
	if app.sheetsClient != nil {
		return app.sheetsClient, nil
	}

	app.Logger.Info("Loading OAuth client configuration")
	oauthCfg, err := config.LoadOAuthClientWithEnv(app.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to load OAuth client config: %w", err)
	}

	app.Logger.Info("Initializing sheets client")
	client, err := sheetsclient.NewClient(app.Ctx, oauthCfg, app.Env, app.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	app.Logger.Debug("Sheets client initialized successfully")

	app.sheetsClient = client
	return client, nil
}

// Actor returns the acting user id set with --as or actAs
func (app *AppContext) Actor() (string, error) {
	if app.ActingUserID == "" {
		return "", errors.New("no acting user: pass --as <user_id> or run actAs <user_id>")
	}
	return app.ActingUserID, nil
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// parseTimeArg parses a command line timestamp. Times without an offset are read as UTC.
func parseTimeArg(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q, expected RFC3339 or YYYY-MM-DD HH:MM", s)
}

func formatTime(t time.Time) string {
	return t.UTC().Format("Mon 02 Jan 2006 15:04")
}

// orDash renders empty values as a dash
func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
