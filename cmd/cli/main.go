//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/himanishpuri/MeasureDNA/pkg/logger"
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna"
)

// errUsage reports bad arguments after the usage text has been printed.
var errUsage = errors.New("invalid arguments")

// Global flags
var (
	dbPath     string
	configPath string
)

func init() {
	// Global flags go before the command
	flag.StringVar(&dbPath, "db", getEnvOrDefault("MEASURE_DB_PATH", "measuredna.sqlite3"), "Path to the SQLite database file")
	flag.StringVar(&configPath, "config", os.Getenv("MEASURE_CONFIG"), "Path to a YAML config file")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// options builds service and session options from the config file and flags.
// An explicit --db wins over the file.
func options() ([]measuredna.Option, error) {
	log := logger.GetLogger()
	var opts []measuredna.Option

	if configPath != "" {
		fc, err := measuredna.LoadConfigFile(configPath)
		if err != nil {
			fmt.Printf("❌ Failed to load config: %v\n", err)
			log.Errorf("Config load failed: %v", err)
			return nil, err
		}
		if level, ok := logger.ParseLevel(fc.LogLevel); ok {
			log.SetLevel(level)
		}
		opts = append(opts, fc.Options()...)
	}

	dbSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "db" {
			dbSet = true
		}
	})
	if dbSet || len(opts) == 0 {
		opts = append(opts, measuredna.WithDBPath(dbPath))
	}
	return opts, nil
}

// createService creates a new MeasureDNA service with configured options
func createService() (measuredna.Service, error) {
	log := logger.GetLogger()

	opts, err := options()
	if err != nil {
		return nil, err
	}
	svc, err := measuredna.NewService(opts...)
	if err != nil {
		fmt.Printf("❌ Failed to create service: %v\n", err)
		log.Errorf("Service initialization failed: %v", err)
		return nil, err
	}
	return svc, nil
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	log := logger.GetLogger()
	printBanner()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	log.Infof("Executing command: %s", command)

	// Handlers return instead of exiting so their deferred cleanup runs.
	var err error
	switch command {
	case "add":
		err = handleAdd(args[1:])
	case "list":
		err = handleList()
	case "delete":
		err = handleDelete(args[1:])
	case "analyze":
		err = handleAnalyze(args[1:])
	case "hover":
		err = handleHover(args[1:])
	case "watch":
		err = handleWatch(args[1:])
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		err = errUsage
	}
	if err != nil {
		log.Debugf("Command %s failed: %v", command, err)
		os.Exit(1)
	}
}

func printBanner() {
	banner := `
 __  __                                 ____  _   _    _    
|  \/  | ___  __ _ ___ _   _ _ __ ___  |  _ \| \ | |  / \   
| |\/| |/ _ \/ _' / __| | | | '__/ _ \ | | | |  \| | / _ \  
| |  | |  __/ (_| \__ \ |_| | | |  __/ | |_| | |\  |/ ___ \ 
|_|  |_|\___|\__,_|___/\__,_|_|  \___| |____/|_| \_/_/   \_\
                                                            
          Repeated Measure Finder for MusicXML
`
	fmt.Println(banner)
}

// splitArgs separates leading positional arguments from trailing flags.
func splitArgs(args []string) (positional, flags []string) {
	for i, arg := range args {
		if strings.HasPrefix(arg, "-") {
			return positional, args[i:]
		}
		positional = append(positional, arg)
	}
	return positional, nil
}

func handleAdd(args []string) error {
	log := logger.GetLogger()

	positional, flagArgs := splitArgs(args)
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	title := addCmd.String("title", "", "Score title (defaults to the document's title)")
	addCmd.Parse(flagArgs)

	if len(positional) != 1 {
		fmt.Println("Error: score file path required")
		fmt.Println("Usage: measureDNA add <score.musicxml|score.mxl> [--title <title>]")
		return errUsage
	}
	scorePath := positional[0]
	log.Infof("Adding score from file: %s", scorePath)

	fmt.Println("\n🔧 Initializing service...")
	svc, err := createService()
	if err != nil {
		return err
	}
	defer svc.Close()

	fmt.Println("🎼 Parsing and analyzing score...")
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	scoreID, err := svc.AddScore(ctx, scorePath, *title)
	if err != nil {
		fmt.Printf("\n❌ Failed to add score: %v\n", err)
		log.Errorf("AddScore failed: %v", err)
		return err
	}

	sc, err := svc.GetScoreByID(scoreID)
	if err != nil {
		fmt.Printf("\n❌ Failed to read back score: %v\n", err)
		log.Errorf("GetScoreByID failed: %v", err)
		return err
	}

	fmt.Println("\n✅ Successfully added score to database!")
	fmt.Printf("   ID:       %s\n", sc.ID)
	fmt.Printf("   Title:    %s\n", sc.Title)
	if sc.Composer != "" {
		fmt.Printf("   Composer: %s\n", sc.Composer)
	}
	fmt.Printf("   Measures: %d\n", sc.MeasureCount)
	log.Infof("Successfully added score ID=%s", scoreID)
	return nil
}

func handleList() error {
	log := logger.GetLogger()

	svc, err := createService()
	if err != nil {
		return err
	}
	defer svc.Close()

	scores, err := svc.ListScores()
	if err != nil {
		fmt.Printf("❌ Failed to list scores: %v\n", err)
		log.Errorf("ListScores failed: %v", err)
		return err
	}

	if len(scores) == 0 {
		fmt.Println("\n📭 No scores in database")
		log.Info("No scores in database")
		return nil
	}

	fmt.Printf("\n📚 Found %d score(s):\n\n", len(scores))
	for i, sc := range scores {
		fmt.Printf("%d. \"%s\"", i+1, sc.Title)
		if sc.Composer != "" {
			fmt.Printf(" by %s", sc.Composer)
		}
		fmt.Printf(" (ID: %s)\n", sc.ID)
		fmt.Printf("   %d measures | %s | added %s\n",
			sc.MeasureCount, humanize.Bytes(uint64(sc.SizeBytes)), humanize.Time(sc.CreatedAt))
		fmt.Println()
	}
	log.Infof("Listed %d scores", len(scores))
	return nil
}

func handleDelete(args []string) error {
	log := logger.GetLogger()

	if len(args) < 1 {
		fmt.Println("Usage: measureDNA delete <score_id>")
		return errUsage
	}

	scoreID := args[0]
	if _, err := uuid.Parse(scoreID); err != nil {
		fmt.Printf("❌ Invalid score ID: %v\n", err)
		log.Errorf("Invalid score ID: %v", err)
		return err
	}

	svc, err := createService()
	if err != nil {
		return err
	}
	defer svc.Close()

	// Get score info before deletion
	sc, err := svc.GetScoreByID(scoreID)
	if err != nil {
		fmt.Printf("❌ Score not found (ID: %s)\n", scoreID)
		log.Warnf("Score %s not found: %v", scoreID, err)
		return err
	}

	if err := svc.DeleteScore(scoreID); err != nil {
		fmt.Printf("❌ Failed to delete score: %v\n", err)
		log.Errorf("DeleteScore failed: %v", err)
		return err
	}

	fmt.Printf("\n✅ Successfully deleted score:\n")
	fmt.Printf("   ID:    %s\n", sc.ID)
	fmt.Printf("   Title: %s\n", sc.Title)
	log.Infof("Deleted score ID=%s ('%s')", sc.ID, sc.Title)
	return nil
}

func printUsage() {
	fmt.Println("MeasureDNA - Repeated Measure Finder CLI")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --db <path>        Path to SQLite database (env: MEASURE_DB_PATH, default: measuredna.sqlite3)")
	fmt.Println("  --config <path>    YAML config file (env: MEASURE_CONFIG)")
	fmt.Println("\nUsage:")
	fmt.Println("  measureDNA [global-options] add <score_file> [--title <title>]")
	fmt.Println("  measureDNA [global-options] list")
	fmt.Println("  measureDNA [global-options] delete <score_id>")
	fmt.Println("  measureDNA [global-options] analyze <score_id|score_file> [--fingerprints]")
	fmt.Println("  measureDNA [global-options] hover <score_id|score_file> <measure>...")
	fmt.Println("  measureDNA [global-options] watch <score_file> [--measure <n>]")
	fmt.Println("\nExamples:")
	fmt.Println("  # Add a score")
	fmt.Println("  measureDNA --db mydb.sqlite3 add minuet.mxl --title \"Minuet in G\"")
	fmt.Println()
	fmt.Println("  # Show which measures repeat")
	fmt.Println("  measureDNA analyze minuet.musicxml")
	fmt.Println()
	fmt.Println("  # Simulate hovering over measures 1 and 5")
	fmt.Println("  measureDNA hover 6f1c2d9e-0b7a-4a8e-9a57-3f0d1c2b4e6a 1 5")
}
