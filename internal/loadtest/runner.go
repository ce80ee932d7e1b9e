package loadtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/courtside/refassign/internal/domain/model"
	"github.com/courtside/refassign/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete scheduling load test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting refassign load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("games", config.NumGames),
		logger.Int("referees", config.NumReferees),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Float64("acceptRate", config.AcceptRate),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate a synthetic season
	sc, err := generateContext(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("context generation failed: %w", err)
	}

	// Step 3: Submit the scheduling run
	result, err := submitRun(ctx, config, sc, stats)
	if err != nil {
		return fmt.Errorf("run submission failed: %w", err)
	}

	// Step 4: Drive the offer/response lifecycle concurrently
	if err := driveLifecycle(ctx, config, result, stats); err != nil {
		return fmt.Errorf("lifecycle drive failed: %w", err)
	}

	// Step 5: Verify results
	if err := verifyResults(config, sc, result, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 6: Save the generated season to file
	if err := saveContextToFile(ctx, config, sc); err != nil {
		logger.Get().Warn(ctx, "failed to save context to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "load test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveContextToFile saves the generated season to a JSON file so a run can be
// replayed against another build.
func saveContextToFile(ctx context.Context, config *Config, sc *model.SchedulingContext) error {
	if len(sc.Games) == 0 {
		return fmt.Errorf("no games to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_season_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	jsonData, err := marshalJSON(sc)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}

	if err := os.WriteFile(filename, jsonData, logFilePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "season saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var coverageRate, acceptRate float64

	if stats.SlotsRequested > 0 {
		coverageRate = float64(stats.SlotsAssigned) / float64(stats.SlotsRequested) * PercentageMultiplier
	}
	if stats.OffersSent > 0 {
		acceptRate = float64(stats.OffersAccepted) / float64(stats.OffersSent) * PercentageMultiplier
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("gamesGenerated", stats.GamesGenerated),
		logger.Int("refereesGenerated", stats.RefereesGenerated),
		logger.Int("slotsRequested", stats.SlotsRequested),
		logger.Int("slotsAssigned", stats.SlotsAssigned),
		logger.Int("slotsUnassigned", stats.SlotsUnassigned),
		logger.Int("offersSent", stats.OffersSent),
		logger.Int("offersAccepted", stats.OffersAccepted),
		logger.Int("offersDeclined", stats.OffersDeclined),
		logger.Int("actionsFailed", stats.ActionsFailed),
		logger.Int("conflictsReported", stats.ConflictsReported),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("coverageRate", coverageRate),
		logger.Float64("acceptRate", acceptRate))
}
