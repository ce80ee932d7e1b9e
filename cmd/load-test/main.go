package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/courtside/refassign/internal/loadtest"
)

// Default configuration constants.
const (
	defaultNumGames    = 200
	defaultNumReferees = 80
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultAcceptRate  = 0.9
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numGames    = flag.Int("games", defaultNumGames, "Number of games to generate")
		numReferees = flag.Int("referees", defaultNumReferees, "Number of referees to generate")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		acceptRate  = flag.Float64("accept", defaultAcceptRate, "Fraction of offers the simulated referees accept")
		outputFile  = flag.String("output", "", "Output file for the generated season (default: generated_season_TIMESTAMP.json)")
		logFile     = flag.String("log", "", "Log file for test output (default: loadtest_log_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	// Setup logging
	if err := loadtest.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &loadtest.Config{
		BaseURL:     *baseURL,
		NumGames:    *numGames,
		NumReferees: *numReferees,
		Workers:     *workers,
		Timeout:     *timeout,
		AcceptRate:  *acceptRate,
		OutputFile:  *outputFile,
		LogFile:     *logFile,
		Verbose:     *verbose,
	}

	// Run the test
	if err := loadtest.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Load test failed: " + err.Error() + "\n")
		return
	}
}
