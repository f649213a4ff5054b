package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/drape/backend/internal/domain"
	"github.com/drape/backend/internal/usecase"
	"github.com/urfave/cli/v2"
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "search products across retailers",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "search text (or pass it as an argument)"},
			&cli.IntFlag{Name: "max", Value: domain.DefaultMaxResults, Usage: "maximum results"},
			&cli.StringFlag{Name: "sort", Usage: "relevance, price or rating"},
			&cli.Float64Flag{Name: "min-price", Usage: "minimum price in rupees"},
			&cli.Float64Flag{Name: "max-price", Usage: "maximum price in rupees"},
			&cli.StringFlag{Name: "gender", Usage: "men, women or unisex"},
			&cli.StringFlag{Name: "category", Usage: "category filter, e.g. jeans"},
		},
		Action: func(c *cli.Context) error {
			query := c.String("query")
			if query == "" {
				query = strings.Join(c.Args().Slice(), " ")
			}
			if strings.TrimSpace(query) == "" {
				return cli.Exit("search needs a query", 2)
			}
			s, err := newSession(c)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			products, err := s.client.SearchProducts(ctx, query, searchOptions(c))
			if err != nil {
				return err
			}
			printProducts(c.App.Writer, products)
			return nil
		},
	}
}

// searchOptions maps search flags to domain options; unset price flags stay nil
func searchOptions(c *cli.Context) domain.ProductSearchOptions {
	opts := domain.ProductSearchOptions{
		MaxResults: c.Int("max"),
		SortBy:     domain.SortBy(c.String("sort")),
		Gender:     domain.Gender(c.String("gender")),
		Category:   c.String("category"),
	}
	if c.IsSet("min-price") {
		v := c.Float64("min-price")
		opts.MinPrice = &v
	}
	if c.IsSet("max-price") {
		v := c.Float64("max-price")
		opts.MaxPrice = &v
	}
	return opts
}

func printProducts(w io.Writer, products []domain.RealProductResult) {
	if len(products) == 0 {
		fmt.Fprintln(w, "no products found")
		return
	}
	for i, p := range products {
		rating := "-"
		if p.Rating != nil {
			rating = fmt.Sprintf("%.1f", *p.Rating)
		}
		fmt.Fprintf(w, "%2d. [%s] %s (%s) Rs %d  rating %s\n    %s\n", i+1, p.Platform, p.Name, p.Brand, p.Price, rating, p.ProductURL)
	}
}

func suggestCommand() *cli.Command {
	return &cli.Command{
		Name:  "suggest",
		Usage: "ask for an outfit suggestion",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "body-type", Required: true},
			&cli.StringFlag{Name: "occasion", Required: true},
			&cli.StringFlag{Name: "gender", Required: true},
			&cli.StringFlag{Name: "budget"},
			&cli.StringFlag{Name: "season"},
			&cli.StringSliceFlag{Name: "color", Usage: "preferred color, repeatable"},
		},
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			suggestion, err := s.client.SuggestOutfit(ctx, outfitRequest(c))
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, suggestion)
		},
	}
}

func outfitRequest(c *cli.Context) domain.OutfitRequest {
	return domain.OutfitRequest{
		BodyType:         c.String("body-type"),
		Occasion:         c.String("occasion"),
		Gender:           c.String("gender"),
		Budget:           c.String("budget"),
		Season:           c.String("season"),
		ColorPreferences: c.StringSlice("color"),
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "poll dashboard updates until interrupted",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "interval", Usage: "poll interval (defaults to the configured dashboard interval)"},
		},
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}
			if s.cfg.Dashboard.UserID == "" {
				return cli.Exit("watch needs --user or DRAPE_DASHBOARD_USER_ID", 2)
			}

			interval := c.Duration("interval")
			if interval <= 0 {
				interval = s.cfg.Dashboard.PollInterval
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			poller := usecase.NewDashboardPoller(s.client, s.logger)
			unsubscribe := poller.OnUpdate(func(update domain.DashboardUpdate) {
				printUpdate(c.App.Writer, update)
			})
			defer unsubscribe()

			fmt.Fprintf(c.App.Writer, "watching updates for %s every %s\n", s.cfg.Dashboard.UserID, interval)
			poller.StartPolling(interval)
			<-ctx.Done()
			poller.StopPolling()
			return nil
		},
	}
}

func printUpdate(w io.Writer, update domain.DashboardUpdate) {
	for _, n := range update.Notifications {
		fmt.Fprintf(w, "%s  %-16s %s: %s\n", n.CreatedAt.Local().Format(time.Kitchen), n.Type, n.Title, n.Body)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
