package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/filedrop/internal/client/cli"
	"github.com/dmitrijs2005/filedrop/internal/client/config"
	"github.com/dmitrijs2005/filedrop/internal/flagx"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	paths := flagx.PositionalArgs(os.Args[1:], config.ValueFlags)

	app, err := cli.NewApp(cfg, os.Stdout, os.Stderr)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	if _, err := app.Run(ctx, paths); err != nil {
		if errors.Is(err, cli.ErrNoFiles) {
			fmt.Fprintf(os.Stderr, "usage: %s [flags] FILE...\n", os.Args[0])
			os.Exit(2)
		}
		os.Exit(1)
	}

}
