// Package main provides operator utilities for the intentions bot store.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"intentionsbot/internal/database"
	"intentionsbot/internal/models"
	"intentionsbot/internal/repository"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load()
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "intentions-admin"
	app.Usage = "inspect and repair the intentions bot store"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "redis-url",
			Value:   "localhost:6379",
			EnvVars: []string{"REDIS_URL"},
		},
	}
	app.Commands = []*cli.Command{
		banInfoCmd,
		unbanCmd,
		bansCmd,
		outboxCmd,
	}
	return app
}

// exitFor maps input errors to distinct exit codes: 2 for bad input, 1 for
// a missing record. Other errors pass through.
func exitFor(err error) error {
	switch {
	case models.HasCode(err, models.CodeValidation):
		return cli.Exit(err.Error(), 2)
	case models.HasCode(err, models.CodeNotFound):
		return cli.Exit(err.Error(), 1)
	}
	return err
}

func connect(cctx *cli.Context) (*redis.Client, error) {
	return database.Connect(cctx.Context, cctx.String("redis-url"))
}

var banInfoCmd = &cli.Command{
	Name:      "baninfo",
	Usage:     "print the record behind a ban token",
	ArgsUsage: "<token>",
	Action: func(cctx *cli.Context) error {
		token := cctx.Args().First()
		if token == "" {
			return cli.Exit("missing token", 2)
		}
		rdb, err := connect(cctx)
		if err != nil {
			return err
		}
		defer rdb.Close()

		rec, err := repository.NewBanRepository(rdb).GetBanRecord(cctx.Context, token)
		if err != nil {
			return exitFor(err)
		}
		if rec == nil {
			return exitFor(models.NewNotFoundError("ban token", token))
		}

		b, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cctx.App.Writer, string(b))
		return nil
	},
}

var unbanCmd = &cli.Command{
	Name:      "unban",
	Usage:     "lift the ban identified by a token",
	ArgsUsage: "<token>",
	Action: func(cctx *cli.Context) error {
		token := cctx.Args().First()
		if token == "" {
			return cli.Exit("missing token", 2)
		}
		rdb, err := connect(cctx)
		if err != nil {
			return err
		}
		defer rdb.Close()

		removed, err := repository.NewBanRepository(rdb).Unban(cctx.Context, token)
		if err != nil {
			return exitFor(err)
		}
		if !removed {
			return exitFor(models.NewNotFoundError("ban token", token))
		}
		fmt.Fprintf(cctx.App.Writer, "✅ Ban %s lifted\n", token)
		return nil
	},
}

var bansCmd = &cli.Command{
	Name:  "bans",
	Usage: "ban statistics",
	Subcommands: []*cli.Command{
		{
			Name:  "count",
			Usage: "print the number of active bans",
			Action: func(cctx *cli.Context) error {
				rdb, err := connect(cctx)
				if err != nil {
					return err
				}
				defer rdb.Close()

				n, err := repository.NewBanRepository(rdb).Count(cctx.Context)
				if err != nil {
					return err
				}
				fmt.Fprintln(cctx.App.Writer, n)
				return nil
			},
		},
	},
}

var outboxCmd = &cli.Command{
	Name:  "outbox",
	Usage: "inspect or reset the active outbox",
	Subcommands: []*cli.Command{
		{
			Name:  "show",
			Usage: "print the active outbox chat id",
			Action: func(cctx *cli.Context) error {
				rdb, err := connect(cctx)
				if err != nil {
					return err
				}
				defer rdb.Close()

				chatID, active, err := repository.NewOutboxRepository(rdb).Get(cctx.Context)
				if err != nil {
					return err
				}
				if !active {
					fmt.Fprintln(cctx.App.Writer, "inactive")
					return nil
				}
				fmt.Fprintln(cctx.App.Writer, chatID)
				return nil
			},
		},
		{
			Name:  "reset",
			Usage: "deactivate the outbox; the next group to send the password takes over",
			Action: func(cctx *cli.Context) error {
				rdb, err := connect(cctx)
				if err != nil {
					return err
				}
				defer rdb.Close()

				if err := repository.NewOutboxRepository(rdb).Clear(cctx.Context); err != nil {
					return err
				}
				fmt.Fprintln(cctx.App.Writer, "✅ Outbox cleared")
				return nil
			},
		},
	},
}
