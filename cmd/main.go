package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"rummage/api"
	"rummage/client"
	"rummage/config"
	"rummage/db/kvdb"
	"rummage/db/searchdb"
	"rummage/logger"
	"rummage/services/index"
)

func main() {
	godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %s\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "serve":
		err = api.Run(ctx, cfg)
	case "index":
		if len(os.Args) < 3 {
			usage()
			fmt.Fprintln(os.Stderr, "no folder provided for the index subcommand")
			os.Exit(1)
		}
		err = runIndex(ctx, cfg, os.Args[2], os.Args[3:])
	case "stats":
		err = runStats(cfg)
	case "query":
		baseURL := fmt.Sprintf("http://localhost:%s", cfg.GetPort())
		if len(os.Args) > 2 {
			baseURL = os.Args[2]
		}
		err = runQuery(ctx, baseURL)
	default:
		usage()
		fmt.Fprintf(os.Stderr, "unknown subcommand %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: rummage <subcommand> [options]")
	fmt.Fprintln(os.Stderr, "Subcommands:")
	fmt.Fprintln(os.Stderr, "    serve                         start the HTTP search server")
	fmt.Fprintln(os.Stderr, "    index <folder> [exclude...]   index the folder, updating the saved index")
	fmt.Fprintln(os.Stderr, "    stats                         print how many documents the index contains")
	fmt.Fprintln(os.Stderr, "    query [base-url]              search interactively against a running server")
}

func runIndex(ctx context.Context, cfg *config.Config, folder string, excludeFolders []string) error {
	log := logger.New()

	kvDB, err := kvdb.New(log, cfg)
	if err != nil {
		return err
	}
	defer kvDB.Close()

	searchDB, err := searchdb.New(log, cfg)
	if err != nil {
		return err
	}
	defer searchDB.Close()

	service := index.New(ctx, log, searchDB, kvDB)
	return service.BuildSync(ctx, folder, excludeFolders, uuid.New().String())
}

func runStats(cfg *config.Config) error {
	searchDB, err := searchdb.New(logger.New(), cfg)
	if err != nil {
		return err
	}
	defer searchDB.Close()

	count, err := searchDB.GetDocCount()
	if err != nil {
		return err
	}

	fmt.Printf("index contains %d documents\n", count)
	return nil
}

func runQuery(ctx context.Context, baseURL string) error {
	dispatcher, err := client.NewDispatcher(logger.New(), client.New(baseURL), client.NewTerminalRenderer(os.Stdout))
	if err != nil {
		return err
	}

	go func() {
		errColor := color.New(color.FgRed)
		for searchErr := range dispatcher.Errors() {
			errColor.Fprintf(os.Stderr, "search failed: %s\n", searchErr)
		}
	}()

	fmt.Printf("connected to %s, type a query and press Enter\n", baseURL)
	return client.RunQueryLoop(ctx, os.Stdin, dispatcher)
}
