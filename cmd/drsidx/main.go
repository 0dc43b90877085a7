package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"

	"github.com/CalverLabs/drsidx/client"
	"github.com/CalverLabs/drsidx/config"
	"github.com/CalverLabs/drsidx/internal/runtable"
	"github.com/CalverLabs/drsidx/service"
)

var (
	logger     *slog.Logger
	configPath string
	flatten    bool
	includeETL bool
	verbose    bool
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to an optional yaml configuration file")
	flag.BoolVar(&flatten, "flatten", false, "Place every output file under a single DRS_Import directory")
	flag.BoolVar(&includeETL, "etl", false, "Include ETL results in idx lookups")
	flag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
}

func loadConfig(path string) (*config.Tool, error) {
	if path == "" {
		return config.Default(), nil
	}
	logger.Info("Loading configuration", "path", path)
	return config.Load(path)
}

// outputPaths derives the two output table locations from the input path,
// keeping the extension: table.csv -> table_updated.csv / table_online.csv.
func outputPaths(input string) (string, string) {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(input, ext)
	return stem + "_updated" + ext, stem + "_online" + ext
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if flatten {
		cfg.Flatten = true
	}
	if includeETL {
		cfg.IncludeETL = true
	}

	inputPath := flag.Arg(0)

	c, err := client.NewClient(&client.Config{
		BaseURL:    cfg.BaseURL,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Timeout:    cfg.Timeout,
		IncludeETL: cfg.IncludeETL,
		Flatten:    cfg.Flatten,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer c.Close()

	table, err := runtable.Read(inputPath)
	if err != nil {
		return err
	}

	logger.Info("Starting DRS acquisition", "input", inputPath, "rows", len(table.Rows()))

	full, online, err := service.NewProcessor(c, logger).Process(ctx, table)
	if err != nil {
		return err
	}

	updatedPath, onlinePath := outputPaths(inputPath)
	if err := full.Write(updatedPath); err != nil {
		return err
	}
	if err := online.Write(onlinePath); err != nil {
		return err
	}

	fmt.Printf("%s %d rows audited, %d online blobs\n",
		color.GreenString("done:"), len(full.Rows()), len(online.Rows()))
	fmt.Printf("%s %s\n", color.YellowString("audit table:"), updatedPath)
	fmt.Printf("%s %s\n", color.YellowString("online table:"), onlinePath)
	return nil
}

func main() {
	flag.Parse()

	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
	logger = slog.New(handler)

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: drsidx [flags] <SraRunTable.csv>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(); err != nil {
		logger.Error("Run failed", "error", err)
		os.Exit(1)
	}
}
