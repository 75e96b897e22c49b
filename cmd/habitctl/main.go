// Command habitctl runs one-off maintenance tasks against the habit
// database: applying migrations and loading the factor/habit catalog.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"

	"github.com/iliyamo/habit-coach/internal/catalog"
	"github.com/iliyamo/habit-coach/internal/config"
	"github.com/iliyamo/habit-coach/internal/database"
	"github.com/iliyamo/habit-coach/internal/logger"
	"github.com/iliyamo/habit-coach/internal/middleware"
	"github.com/iliyamo/habit-coach/internal/repository"
)

// DBFlags are shared by every command.  They default to the same
// environment variables the server reads.
type DBFlags struct {
	User string `help:"Database user." env:"DB_USER" required:""`
	Pass string `help:"Database password." env:"DB_PASS"`
	Host string `help:"Database host." env:"DB_HOST" default:"127.0.0.1"`
	Port string `help:"Database port." env:"DB_PORT" default:"3306"`
	Name string `help:"Database name." env:"DB_NAME" required:""`
}

func (f DBFlags) open(ctx context.Context) (*sql.DB, error) {
	return database.Open(ctx, database.Options{
		User: f.User, Pass: f.Pass, Host: f.Host, Port: f.Port, Name: f.Name, MaxConns: 2,
	})
}

// Env carries what the commands share at run time.
type Env struct {
	Ctx context.Context
	Log *logger.Logger
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(env *Env) error {
	db, err := CLI.DB.open(env.Ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(env.Ctx, db); err != nil {
		return err
	}
	env.Log.Info("migrations applied")
	return nil
}

type SeedCmd struct {
	File    string `help:"Catalog YAML file." type:"existingfile" default:"seed/catalog.yaml"`
	DryRun  bool   `help:"Validate the catalog without writing it."`
	NoPurge bool   `help:"Leave cached catalog responses in Redis."`
}

func (c *SeedCmd) Run(env *Env) error {
	factors, habits, err := catalog.Load(c.File)
	if err != nil {
		return err
	}
	env.Log.Info("catalog parsed", "factors", len(factors), "habits", len(habits))
	if c.DryRun {
		return nil
	}

	db, err := CLI.DB.open(env.Ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := repository.NewHabitRepo(db).Seed(env.Ctx, factors, habits); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	env.Log.Info("catalog seeded")

	if c.NoPurge {
		return nil
	}
	rdb := config.NewRedisClient(env.Ctx)
	if rdb == nil {
		env.Log.Warn("redis unavailable, cached catalog responses expire on their own")
		return nil
	}
	defer rdb.Close()
	n, err := middleware.PurgeCache(env.Ctx, rdb, config.LoadCacheConfig().Prefix)
	if err != nil {
		return fmt.Errorf("purge cache: %w", err)
	}
	env.Log.Info("response cache purged", "keys", n)
	return nil
}

var CLI struct {
	Env string  `help:"Logging environment." env:"APP_ENV" default:"dev"`
	DB  DBFlags `embed:"" prefix:"db-"`

	Migrate MigrateCmd `cmd:"" help:"Apply database migrations."`
	Seed    SeedCmd    `cmd:"" help:"Load factors and habits from a catalog file."`
}

func main() {
	config.LoadDotEnv()

	kctx := kong.Parse(&CLI,
		kong.Name("habitctl"),
		kong.Description("Maintenance commands for the habit coach service"),
		kong.UsageOnError(),
	)

	log, err := logger.New(CLI.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := kctx.Run(&Env{Ctx: ctx, Log: log}); err != nil {
		log.Error("command failed", "command", kctx.Command(), "error", err)
		os.Exit(1)
	}
}
