// Command migrate copies every collection from one document store into the
// configured one, for example db.json into postgres.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"cmsadmin/internal/bootstrap"
	"cmsadmin/internal/config"
	"cmsadmin/internal/models"
	"cmsadmin/internal/repository"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	fromDriver := flag.String("from", "json", "Source store driver: json, sqlite or postgres")
	fromPath := flag.String("from-path", "db.json", "Source file for the json driver")
	fromURL := flag.String("from-url", "", "Source DSN for the sqlite and postgres drivers")
	replace := flag.Bool("replace", false, "Truncate destination collections before copying")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	srcCfg := *cfg
	srcCfg.StoreDriver = *fromDriver
	srcCfg.DBPath = *fromPath
	srcCfg.DatabaseURL = *fromURL
	if srcCfg.StoreDriver == cfg.StoreDriver && srcCfg.DBPath == cfg.DBPath && srcCfg.DatabaseURL == cfg.DatabaseURL {
		return fmt.Errorf("source and destination are the same %s store", cfg.StoreDriver)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := bootstrap.OpenRepository(&srcCfg)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	dst, err := bootstrap.OpenRepository(cfg)
	if err != nil {
		return fmt.Errorf("open destination: %w", err)
	}
	defer dst.Close()

	stats, err := repository.Copy(ctx, dst, src, *replace)
	if err != nil {
		return err
	}
	for _, collection := range models.Collections {
		log.Printf("%-10s %d records", collection, stats[collection])
	}
	log.Printf("copied %s store into %s store", srcCfg.StoreDriver, cfg.StoreDriver)
	return nil
}
