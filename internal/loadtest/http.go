package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/courtside/refassign/internal/domain/model"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(url string) (*http.Response, error) {
	return c.client.Get(url)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(url string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON unmarshals JSON to a struct
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitRun posts the generated context to /runs and decodes the result.
func submitRun(ctx context.Context, config *Config, sc *model.SchedulingContext, stats *Stats) (*model.SchedulingResult, error) {
	log.Printf("📤 Submitting scheduling run (%d games, %d referees)...",
		len(sc.Games), len(sc.Referees))

	client := newHTTPClient(config.Timeout)
	resp, err := client.Post(config.BaseURL+"/runs", sc)
	if err != nil {
		return nil, fmt.Errorf("run submission failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read run response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("run rejected with status %d: %s", resp.StatusCode, string(body))
	}

	var result model.SchedulingResult
	if err := unmarshalJSON(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode run result: %w", err)
	}

	stats.SlotsAssigned = len(result.Assignments)
	stats.SlotsUnassigned = len(result.UnassignedGames)
	stats.ConflictsReported = len(result.Conflicts)

	log.Printf(`✅ Run %s completed:
   Assigned: %d
   Unassigned: %d
   Coverage: %.1f%%
   Conflicts: %d
`, result.RunID, stats.SlotsAssigned, stats.SlotsUnassigned,
		result.Metrics.CoverageRate*PercentageMultiplier, stats.ConflictsReported)

	return &result, nil
}

// driveLifecycle walks every assignment through offer and response
// concurrently, accepting a configured fraction and declining the rest.
func driveLifecycle(ctx context.Context, config *Config, result *model.SchedulingResult, stats *Stats) error {
	log.Printf("📨 Driving offer/response lifecycle for %d assignments with %d workers...",
		len(result.Assignments), config.Workers)

	client := newHTTPClient(config.Timeout)

	// Counters for statistics
	var (
		offered  int64
		accepted int64
		declined int64
		failed   int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	assignmentChan := make(chan model.Assignment, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for a := range assignmentChan {
				select {
				case <-ctx.Done():
					return
				default:
					accept := getRandomFloat() < config.AcceptRate
					switch driveSingleAssignment(client, config.BaseURL, a, accept) {
					case "accepted":
						atomic.AddInt64(&offered, 1)
						atomic.AddInt64(&accepted, 1)
					case "declined":
						atomic.AddInt64(&offered, 1)
						atomic.AddInt64(&declined, 1)
					case "failed":
						atomic.AddInt64(&failed, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						off := atomic.LoadInt64(&offered)
						acc := atomic.LoadInt64(&accepted)
						dec := atomic.LoadInt64(&declined)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("📊 Progress: %d/%d offered (accepted: %d, declined: %d, failed: %d)",
								off, len(result.Assignments), acc, dec, fail)
						} else {
							fmt.Printf("\r📨 Offered: %d/%d (accepted: %d, declined: %d, failed: %d)",
								off, len(result.Assignments), acc, dec, fail)
						}
					}
				}
			}
		}()
	}

	// Send assignments to workers
	go func() {
		defer close(assignmentChan)
		for _, a := range result.Assignments {
			select {
			case <-ctx.Done():
				return
			case assignmentChan <- a:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	// Update stats
	stats.OffersSent = int(atomic.LoadInt64(&offered))
	stats.OffersAccepted = int(atomic.LoadInt64(&accepted))
	stats.OffersDeclined = int(atomic.LoadInt64(&declined))
	stats.ActionsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`✅ Lifecycle drive completed:
   Accepted: %d
   Declined: %d
   Failed: %d
`, stats.OffersAccepted, stats.OffersDeclined, stats.ActionsFailed)

	return nil
}

// driveSingleAssignment offers one assignment and submits the referee's
// response using the version returned by the offer.
func driveSingleAssignment(client *HTTPClient, baseURL string, a model.Assignment, accept bool) string {
	offerURL := baseURL + "/assignments/" + a.ID + "/offer"
	resp, err := client.Post(offerURL, struct{}{})
	if err != nil {
		return "failed"
	}
	body, err := readResponseBody(resp)
	if err != nil || resp.StatusCode != StatusOK {
		return "failed"
	}

	var offeredAssignment model.Assignment
	if err := unmarshalJSON(body, &offeredAssignment); err != nil {
		return "failed"
	}

	response := "DECLINED"
	if accept {
		response = "ACCEPTED"
	}

	respondURL := baseURL + "/assignments/" + a.ID + "/response"
	payload := map[string]interface{}{
		"response": response,
		"version":  offeredAssignment.Version,
	}
	resp, err = client.Post(respondURL, payload)
	if err != nil {
		return "failed"
	}
	if _, err := readResponseBody(resp); err != nil || resp.StatusCode != StatusOK {
		return "failed"
	}

	if accept {
		return "accepted"
	}
	return "declined"
}

// fetchAssignment reads one assignment back for verification.
func fetchAssignment(client *HTTPClient, baseURL, id string) (*model.Assignment, error) {
	resp, err := client.Get(baseURL + "/assignments/" + id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assignment %s: %w", id, err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read assignment %s: %w", id, err)
	}
	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("assignment %s fetch failed with status %d", id, resp.StatusCode)
	}

	var a model.Assignment
	if err := unmarshalJSON(body, &a); err != nil {
		return nil, fmt.Errorf("failed to decode assignment %s: %w", id, err)
	}
	return &a, nil
}
