//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/himanishpuri/MeasureDNA/pkg/logger"
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna"
)

var (
	port           int
	dbPath         string
	configPath     string
	allowedOrigins string
	verbose        bool
)

func init() {
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("MEASURE_DB_PATH", "measuredna.sqlite3"), "Path to SQLite database")
	flag.StringVar(&configPath, "config", os.Getenv("MEASURE_CONFIG"), "Path to a YAML config file")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
	flag.BoolVar(&verbose, "verbose", false, "Log every request")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseOrigins(list string) []string {
	if list == "*" {
		return []string{"*"}
	}
	origins := strings.Split(list, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}

func main() {
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	origins := parseOrigins(allowedOrigins)
	var opts []measuredna.Option

	// Flags given on the command line win over the config file.
	if configPath != "" {
		fc, err := measuredna.LoadConfigFile(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if level, ok := logger.ParseLevel(fc.LogLevel); ok {
			logger.SetLevel(level)
		}
		opts = append(opts, fc.Options()...)
		if fc.DBPath != "" && !set["db"] {
			dbPath = fc.DBPath
		}
		if fc.Server.Port != 0 && !set["port"] {
			port = fc.Server.Port
		}
		if len(fc.Server.Origins) > 0 && !set["origins"] {
			origins = fc.Server.Origins
		}
	}
	opts = append(opts, measuredna.WithDBPath(dbPath))

	service, err := measuredna.NewService(opts...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	config := &ServerConfig{
		Port:           port,
		DBPath:         dbPath,
		AllowedOrigins: origins,
		SessionOptions: opts,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := NewServer(service, config)
	if err := server.Run(ctx, verbose); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
