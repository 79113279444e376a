package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"photodb/config"
	"photodb/database"
	"photodb/exifmeta"
	"photodb/geocode"
	"photodb/journal"
	"photodb/logging"
	"photodb/scanner"
	"photodb/signalhandler"
	"photodb/utils"
)

const version = "0.1.1"

func main() {
	args := utils.ParseArguments()

	if _, ok := args["version"]; ok {
		fmt.Println(version)
		return
	}

	command, hasCommand := args["command"]
	if !hasCommand {
		utils.PrintUsage()
		os.Exit(1)
	}

	cfgPath := config.DefaultPath
	explicit := false
	if custom, ok := args["config"]; ok && custom != "" {
		cfgPath = custom
		explicit = true
	}
	cfg, err := config.Load(cfgPath, explicit)
	if err != nil {
		log.Fatalf("Cannot read configuration %s: %v", cfgPath, err)
	}

	// Flag overrides
	if customDB, ok := args["database"]; ok && customDB != "" {
		cfg.DatabasePath = customDB
	} else if customDB, ok := args["db"]; ok && customDB != "" {
		// Allow --db as an alias for --database
		cfg.DatabasePath = customDB
	}
	if jp, ok := args["journal"]; ok && jp != "" {
		cfg.JournalPath = jp
	}
	if el, ok := args["errorlog"]; ok && el != "" {
		cfg.ErrorLogPath = el
	}

	if err := logging.SetupErrorLog(cfg.ErrorLogPath); err != nil {
		fmt.Printf("Warning: Failed to open error log: %v\n", err)
	}
	defer logging.Close()

	debugMode := false
	if _, ok := args["debug"]; ok {
		debugMode = true
		logPath := "photodb.log"
		if customLogPath, ok := args["logfile"]; ok && customLogPath != "" {
			logPath = customLogPath
		}
		if err := logging.SetupDebugLog(logPath); err != nil {
			fmt.Printf("Warning: Failed to setup logging: %v\n", err)
		} else {
			fmt.Printf("Debug mode enabled. Logging to: %s\n", logPath)
		}
	}

	ctx, stop := signalhandler.Context()
	defer stop()

	// Handlers return their error so deferred cleanup inside them (cache
	// save, extractor shutdown) runs before the process exits.
	var cmdErr error
	switch command {
	case "initdb":
		cmdErr = handleInitDB(cfg)
	case "scan":
		cmdErr = handleScan(ctx, cfg, args, debugMode)
	case "add":
		cmdErr = handleAdd(ctx, cfg, args, debugMode)
	case "extract":
		cmdErr = handleExtract(cfg, args)
	case "replay":
		cmdErr = handleReplay(cfg, args)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		utils.PrintUsage()
		os.Exit(1)
	}

	if cmdErr != nil {
		logging.Error("%v", cmdErr)
		stop()
		logging.Close()
		os.Exit(1)
	}
}

// openIndexedDB opens the database and verifies the schema exists. The
// schema is only ever created by the explicit initdb command.
func openIndexedDB(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("cannot open database %s: %v", cfg.DatabasePath, err)
	}
	if err := database.VerifySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// buildPipeline assembles the scan pipeline: extractor, cached resolver,
// database and journal. The returned cleanup saves the geocode cache and
// releases the extractor.
func buildPipeline(cfg *config.Config, db *sql.DB) (*scanner.Pipeline, func()) {
	cache := geocode.NewCache(cfg.QuantizePrecision)
	if err := cache.Load(cfg.GeocodeCachePath); err != nil {
		logging.Warning("could not load geocode cache: %v", err)
	}

	var resolver scanner.PlaceResolver
	if cfg.OpenCageKey != "" {
		resolver = geocode.NewResolver(cache, geocode.NewClient(cfg.OpenCageKey))
	} else {
		logging.Warning("no OpenCage API key configured; places will not be resolved")
	}

	extractor := exifmeta.New()

	pipeline := &scanner.Pipeline{
		DB:        db,
		Extractor: extractor,
		Resolver:  resolver,
		Journal:   journal.New(cfg.JournalPath),
	}

	cleanup := func() {
		extractor.Close()
		if err := cache.Save(cfg.GeocodeCachePath); err != nil {
			logging.Warning("could not save geocode cache: %v", err)
		}
	}
	return pipeline, cleanup
}

func handleInitDB(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("cannot open database %s: %v", cfg.DatabasePath, err)
	}
	defer db.Close()

	fmt.Printf("Setting up database %s\n", cfg.DatabasePath)
	if err := database.InitSchema(db); err != nil {
		return fmt.Errorf("cannot initialize database: %v", err)
	}
	fmt.Printf("Database %s ready.\n", cfg.DatabasePath)
	return nil
}

func handleScan(ctx context.Context, cfg *config.Config, args map[string]string, debugMode bool) error {
	folderPath, hasFolder := args["folder"]
	if !hasFolder || folderPath == "" {
		return errors.New("missing folder path (use --folder=PATH)")
	}

	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("folder path does not exist: %s", folderPath)
		}
		return fmt.Errorf("cannot access folder path %s: %v", folderPath, err)
	}
	if !folderInfo.IsDir() {
		return fmt.Errorf("path is not a directory: %s", folderPath)
	}

	db, err := openIndexedDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, cleanup := buildPipeline(cfg, db)
	defer cleanup()

	_, force := args["force"]
	opts := scanner.Options{
		FolderPath: folderPath,
		Force:      force,
		Debug:      debugMode,
		MaxWorkers: signalhandler.GetOptimalProcs(),
	}

	fmt.Printf("Starting photo indexing in %s...\n", folderPath)
	fmt.Printf("Force rewrite mode: %v\n", force)

	startTime := time.Now()
	summary, scanErr := pipeline.ScanFolder(ctx, opts)
	scanner.PrintSummary(summary, time.Since(startTime))

	if scanErr != nil {
		return fmt.Errorf("scan aborted: %v", scanErr)
	}
	fmt.Printf("Database: %s\nJournal: %s\n", cfg.DatabasePath, cfg.JournalPath)
	return nil
}

func handleAdd(ctx context.Context, cfg *config.Config, args map[string]string, debugMode bool) error {
	picture, hasPicture := args["picture"]
	if !hasPicture || picture == "" {
		return errors.New("missing picture path (use --picture=PATH)")
	}
	if _, err := os.Stat(picture); os.IsNotExist(err) {
		return fmt.Errorf("picture does not exist: %s", picture)
	}

	db, err := openIndexedDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, cleanup := buildPipeline(cfg, db)
	defer cleanup()

	result, err := pipeline.AddFile(ctx, picture)
	if err != nil {
		return fmt.Errorf("cannot index %s: %v", picture, err)
	}
	switch result.Status {
	case scanner.StatusSkipped:
		fmt.Printf("Record %s already in database.\n", result.Path)
	default:
		fmt.Printf("Indexed %s.\n", result.Path)
	}
	return nil
}

func handleExtract(cfg *config.Config, args map[string]string) error {
	out, hasOut := args["out"]
	if !hasOut || out == "" {
		return errors.New("missing output file (use --out=FILE)")
	}

	jr := journal.New(cfg.JournalPath)
	recs, err := jr.Extract()
	if err != nil {
		return fmt.Errorf("cannot extract journal: %v", err)
	}
	if err := journal.WriteSnapshot(out, recs); err != nil {
		return fmt.Errorf("cannot write snapshot: %v", err)
	}
	fmt.Printf("Extracted %d records from %s to %s.\n", len(recs), cfg.JournalPath, out)
	return nil
}

func handleReplay(cfg *config.Config, args map[string]string) error {
	in, hasIn := args["in"]
	if !hasIn || in == "" {
		return errors.New("missing input file (use --in=FILE)")
	}

	recs, err := journal.ReadSnapshot(in)
	if err != nil {
		return fmt.Errorf("cannot read snapshot: %v", err)
	}

	db, err := openIndexedDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	committed, err := journal.Replay(db, recs)
	fmt.Printf("Replayed %d of %d records into %s.\n", committed, len(recs), cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("replay finished with errors: %v", err)
	}
	return nil
}
