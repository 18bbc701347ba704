package main

import (
	"os"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/adapters/driving/cli"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/app"
)

func main() {
	// The error has already been printed as a JSON line.
	if err := cli.Execute(app.Wire); err != nil {
		os.Exit(1)
	}
}
