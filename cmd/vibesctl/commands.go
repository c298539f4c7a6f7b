package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	vibesfeature "github.com/dalemusser/positivevibes/internal/app/features/vibes"
	"github.com/dalemusser/positivevibes/internal/app/store/audit"
	themestore "github.com/dalemusser/positivevibes/internal/app/store/themes"
	userstore "github.com/dalemusser/positivevibes/internal/app/store/users"
	vibestore "github.com/dalemusser/positivevibes/internal/app/store/vibes"
	"github.com/dalemusser/positivevibes/internal/app/system/auditlog"
	"github.com/dalemusser/positivevibes/internal/app/system/indexes"
	"github.com/dalemusser/positivevibes/internal/app/system/timeouts"
	"github.com/dalemusser/positivevibes/internal/app/system/validators"
	"github.com/dalemusser/positivevibes/internal/domain/badges"
	"github.com/dalemusser/positivevibes/internal/domain/weeks"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var ErrThemeRequired = errors.New("THEME argument required")

const weekLayout = "2006-01-02"

func (d *deps) audit() *auditlog.Logger {
	return auditlog.New(audit.New(d.db), d.logger, auditlog.Config{Admin: "all"})
}

func indexesCommand(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "indexes",
		Usage: "Manage collection validators and indexes",
		Commands: []*cli.Command{
			{
				Name:  "ensure",
				Usage: "Apply validators and reconcile indexes (idempotent)",
				Action: d.withDB(func(ctx context.Context, _ *cli.Command) error {
					ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
					defer cancel()

					if err := validators.EnsureAll(ctx, d.db); err != nil {
						return fmt.Errorf("validators: %w", err)
					}
					if err := indexes.EnsureAll(ctx, d.db); err != nil {
						return fmt.Errorf("indexes: %w", err)
					}
					d.logger.Info("schema ensured", zap.String("database", d.db.Name()))
					return nil
				}),
			},
		},
	}
}

func streaksCommand(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "streaks",
		Usage: "Maintain user streaks",
		Commands: []*cli.Command{
			{
				Name:  "sweep",
				Usage: "Reset current streaks of users who missed the previous week",
				Action: d.withDB(func(ctx context.Context, _ *cli.Command) error {
					ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
					defer cancel()

					svc := vibesfeature.NewService(userstore.New(d.db), vibestore.New(d.db), nil, nil, d.audit(), d.logger)
					n, err := svc.SweepStaleStreaks(ctx, time.Now(), "cli")
					if err != nil {
						return err
					}
					d.logger.Info("streak sweep complete", zap.Int64("reset", n))
					return nil
				}),
			},
		},
	}
}

func themeCommand(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "theme",
		Usage: "Manage weekly themes",
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Set the theme for a week",
				ArgsUsage: "THEME",
				Description: `Set the theme shown from the start of a week until a later theme takes over.

Examples:
  vibesctl theme set "Gratitude" -s "Thank a friend" -s "Write a note"
  vibesctl theme set "Kindness" --week 2024-05-13`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "week",
						Aliases: []string{"w"},
						Usage:   "Any date (YYYY-MM-DD) in the target week; defaults to the current week",
					},
					&cli.StringSliceFlag{
						Name:    "suggestion",
						Aliases: []string{"s"},
						Usage:   "Suggested action (repeatable)",
					},
				},
				Action: d.withDB(func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return ErrThemeRequired
					}
					start := time.Now()
					if w := c.String("week"); w != "" {
						t, err := time.Parse(weekLayout, w)
						if err != nil {
							return fmt.Errorf("invalid --week %q: %w", w, err)
						}
						start = t
					}

					ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
					defer cancel()

					t, err := themestore.New(d.db).Upsert(ctx, start, c.Args().First(), c.StringSlice("suggestion"))
					if err != nil {
						return err
					}
					d.audit().ThemeSet(ctx, t.StartDate.Format(weekLayout), t.Theme)
					d.logger.Info("theme set",
						zap.String("week_start", t.StartDate.Format(weekLayout)),
						zap.String("theme", t.Theme),
						zap.Strings("suggestions", t.Suggestions))
					return nil
				}),
			},
			{
				Name:  "current",
				Usage: "Print the theme in effect this week",
				Action: d.withDB(func(ctx context.Context, _ *cli.Command) error {
					ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
					defer cancel()

					t, err := themestore.New(d.db).Current(ctx, time.Now())
					if errors.Is(err, themestore.ErrNotFound) {
						fmt.Printf("no theme set on or before the week of %s\n", weeks.StartOfWeek(time.Now()).Format(weekLayout))
						return nil
					}
					if err != nil {
						return err
					}
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(t)
				}),
			},
		},
	}
}

func badgesCommand(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "badges",
		Usage: "Inspect awarded badges",
		Commands: []*cli.Command{
			{
				Name:  "counts",
				Usage: "Print how many users hold each badge, in tier order",
				Action: d.withDB(func(ctx context.Context, _ *cli.Command) error {
					ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
					defer cancel()

					counts, err := userstore.New(d.db).CountByBadge(ctx)
					if err != nil {
						return err
					}
					for _, tier := range badges.Tiers() {
						fmt.Printf("%3d weeks  %-28s %d\n", tier.Weeks, tier.Name, counts[tier.Name])
					}
					return nil
				}),
			},
		},
	}
}
