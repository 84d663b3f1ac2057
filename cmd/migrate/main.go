package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/znwiqn/anidao/internal/config"
	"github.com/znwiqn/anidao/internal/database"
	"github.com/znwiqn/anidao/migrations"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, using process environment")
	}

	app := cli.NewApp()
	app.Name = "migrate"
	app.Usage = "ANI DAO database management"
	app.Commands = []cli.Command{
		{
			Name:    "up",
			Aliases: []string{"u"},
			Usage:   "Creates the schema",
			Action:  withDB(migrateUp),
		},
		{
			Name:    "down",
			Aliases: []string{"d"},
			Usage:   "Drops every application table",
			Action:  withDB(migrateDown),
		},
		{
			Name:  "seed-admin",
			Usage: "Registers a Telegram user as a bot operator",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "telegram-id", Usage: "numeric Telegram user id"},
			},
			Action: withDB(seedAdmin),
		},
		{
			Name:  "promote",
			Usage: "Grants site administration to a registered user",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "username", Usage: "account to promote"},
				cli.BoolFlag{Name: "revoke", Usage: "remove administration instead"},
			},
			Action: withDB(promote),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("migration failed")
	}
}

func withDB(run func(c *cli.Context, db *sql.DB) error) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		db, err := database.Connect(config.Load().DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		return run(c, db)
	}
}

func migrateUp(_ *cli.Context, db *sql.DB) error {
	log.Info("applying schema")
	if _, err := db.Exec(migrations.InitialSchema); err != nil {
		return errors.Wrap(err, "failed to execute migration")
	}
	log.Info("migration completed")
	return nil
}

func migrateDown(_ *cli.Context, db *sql.DB) error {
	for _, table := range migrations.Tables {
		log.WithField("table", table).Info("dropping table")
		if _, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)); err != nil {
			return errors.Wrapf(err, "failed to drop table %s", table)
		}
	}
	log.Info("migration rolled back")
	return nil
}

func seedAdmin(c *cli.Context, db *sql.DB) error {
	id := c.String("telegram-id")
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return errors.Errorf("--telegram-id must be a numeric Telegram user id, got %q", id)
	}
	if err := database.NewAdminStore(db).Add(context.Background(), id); err != nil {
		return err
	}
	log.WithField("telegram_id", id).Info("bot operator registered")
	return nil
}

func promote(c *cli.Context, db *sql.DB) error {
	username := c.String("username")
	if username == "" {
		return errors.New("--username is required")
	}
	admin := !c.Bool("revoke")
	if err := database.NewUserStore(db).SetAdmin(context.Background(), username, admin); err != nil {
		return err
	}
	log.WithFields(log.Fields{"username": username, "is_admin": admin}).Info("user updated")
	return nil
}
