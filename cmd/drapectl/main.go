// Command drapectl talks to a running Drape backend: product search, outfit
// suggestions and a live view of dashboard updates.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/drape/backend/config"
	"github.com/drape/backend/internal/infrastructure/apiclient"
	"github.com/drape/backend/internal/infrastructure/logging"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "drapectl:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "drapectl",
		Usage: "query a Drape backend from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "backend base URL", EnvVars: []string{"DRAPE_DASHBOARD_BASE_URL"}},
			&cli.StringFlag{Name: "token", Usage: "session token", EnvVars: []string{"DRAPE_DASHBOARD_TOKEN"}},
			&cli.StringFlag{Name: "user", Usage: "user id for dashboard updates", EnvVars: []string{"DRAPE_DASHBOARD_USER_ID"}},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "per-request timeout"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "debug logging"},
		},
		Commands: []*cli.Command{
			searchCommand(),
			suggestCommand(),
			watchCommand(),
		},
	}
}

// session bundles what every subcommand needs
type session struct {
	cfg    *config.Config
	client *apiclient.Client
	logger zerolog.Logger
}

// newSession merges flags over the loaded configuration and builds the API client
func newSession(c *cli.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if v := c.String("url"); v != "" {
		cfg.Dashboard.BaseURL = v
	}
	if v := c.String("token"); v != "" {
		cfg.Dashboard.Token = v
	}
	if v := c.String("user"); v != "" {
		cfg.Dashboard.UserID = v
	}

	level := "warn"
	if c.Bool("verbose") {
		level = "debug"
	}
	logger := logging.New("development", level)

	client, err := apiclient.New(apiclient.Options{
		BaseURL: cfg.Dashboard.BaseURL,
		Tokens:  apiclient.StaticToken(cfg.Dashboard.Token),
		UserID:  cfg.Dashboard.UserID,
		OnUnauthorized: func() {
			fmt.Fprintln(os.Stderr, "session expired, sign in again and pass a new --token")
		},
	}, logger)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, client: client, logger: logger}, nil
}
