package loadtest

import "time"

// Config holds configuration for the scheduling load test
type Config struct {
	BaseURL     string        // Base URL of the service
	NumGames    int           // Number of games to generate
	NumReferees int           // Number of referees to generate
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	AcceptRate  float64       // Fraction of offers the simulated referees accept
	OutputFile  string        // Output file for the generated context
	LogFile     string        // Log file for test output
	Verbose     bool          // Enable verbose logging
}

// Stats holds test statistics
type Stats struct {
	GamesGenerated    int
	RefereesGenerated int
	SlotsRequested    int
	SlotsAssigned     int
	SlotsUnassigned   int
	OffersSent        int
	OffersAccepted    int
	OffersDeclined    int
	ActionsFailed     int
	ConflictsReported int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
