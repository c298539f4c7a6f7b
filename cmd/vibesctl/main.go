// Command vibesctl performs operator tasks against the Positive Vibes
// database: index setup, manual streak sweeps and weekly themes.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dalemusser/positivevibes/internal/app/system/timeouts"
	"github.com/urfave/cli/v3"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	d := &deps{logger: logger}
	defer d.close()

	app := &cli.Command{
		Name:  "vibesctl",
		Usage: "Positive Vibes operator tool",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "mongo-uri",
				Value: envOr("VIBES_MONGO_URI", "mongodb://localhost:27017"),
				Usage: "MongoDB connection URI (env VIBES_MONGO_URI)",
			},
			&cli.StringFlag{
				Name:  "db",
				Value: envOr("VIBES_MONGO_DATABASE", "positiveVibesDB"),
				Usage: "MongoDB database name (env VIBES_MONGO_DATABASE)",
			},
		},
		Commands: []*cli.Command{
			indexesCommand(d),
			streaksCommand(d),
			themeCommand(d),
			badgesCommand(d),
		},
	}

	return app.Run(ctx, os.Args)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// deps holds the connection shared by every subcommand. Connecting is
// deferred until an action runs so that --help works without a database.
type deps struct {
	logger *zap.Logger
	client *mongo.Client
	db     *mongo.Database
}

func (d *deps) connect(ctx context.Context, c *cli.Command) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.String("mongo-uri")).SetAppName("vibesctl"))
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("mongo ping: %w", err)
	}
	d.client = client
	d.db = client.Database(c.String("db"))
	return nil
}

// withDB connects before running action.
func (d *deps) withDB(action cli.ActionFunc) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if err := d.connect(ctx, c); err != nil {
			return err
		}
		return action(ctx, c)
	}
}

func (d *deps) close() {
	if d.client != nil {
		_ = d.client.Disconnect(context.Background())
	}
}
