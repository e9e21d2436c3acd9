// apctl reports on and exports tracker data straight from the database.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"ap-tracker/internal/config"
	"ap-tracker/internal/storage"
	"ap-tracker/internal/tracker"

	"github.com/alecthomas/kong"
)

// CLI is the apctl command line.
type CLI struct {
	DB          string `help:"SQLite database path." default:"./data/ap.db" env:"DB_PATH"`
	DatabaseURL string `help:"Postgres connection URL. Overrides --db." env:"DATABASE_URL"`
	TimeZone    string `help:"IANA time zone for day and week windows." default:"Local" env:"TIME_ZONE"`
	WeekStart   string `help:"First day of the week window (monday or sunday)." enum:"monday,sunday" default:"monday" env:"WEEK_START"`

	Status StatusCmd `cmd:"" help:"Show balance, totals and spend gates for a user."`
	Export ExportCmd `cmd:"" help:"Export a user's settings, quests, presets and ledger."`
}

// Context is passed to every command's Run method.
type Context struct {
	Ctx context.Context
	DB  *storage.DB
	Svc *tracker.Service
	Out io.Writer
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, opts ...kong.Option) error {
	var cli CLI
	opts = append([]kong.Option{
		kong.Name("apctl"),
		kong.Description("Activity Point tracker admin tool"),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
	}, opts...)
	parser, err := kong.New(&cli, opts...)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	loc, err := time.LoadLocation(cli.TimeZone)
	if err != nil {
		return fmt.Errorf("invalid time zone %q: %w", cli.TimeZone, err)
	}
	weekStart, err := config.Config{WeekStart: cli.WeekStart}.WeekStartDay()
	if err != nil {
		return err
	}

	db, err := storage.OpenURL(ctx, cli.DatabaseURL, cli.DB)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return kctx.Run(&Context{
		Ctx: ctx,
		DB:  db,
		Svc: tracker.NewService(db, tracker.WithLocation(loc), tracker.WithWeekStart(weekStart)),
		Out: stdout,
	})
}
