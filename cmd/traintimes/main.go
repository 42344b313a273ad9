package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	if os.Getenv("TRAINTIMES_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("TRAINTIMES_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	// Specify the path to the .env file
	if err := godotenv.Load(".env"); err != nil {
		log.Debug().Msg("no .env file loaded - if using docker ignore this")
	}

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:        "traintimes",
		Usage:       "UK rail departure boards from the National Rail Darwin feed",
		Description: "Polls Darwin LDBWS departure boards and serves them as a live dashboard",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file",
				EnvVars: []string{"TRAINTIMES_CONFIG"},
			},
		},

		Commands: []*cli.Command{
			serveCommand(),
			boardCommand(),
			validateCommand(),
		},
	}
}
