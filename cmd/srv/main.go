package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var server srv

func main() {
	app := &cli.App{
		Name:  "questforge",
		Usage: "Quest task verification and reward attestation engine",
		Commands: []*cli.Command{
			{
				Name:   "api",
				Usage:  "Run the api server",
				Action: server.startApi,
			},
			{
				Name:   "migrate",
				Usage:  "Migrate the database to the latest version",
				Action: server.migrate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
