// main.go - Load testing tool for the document ingestion API
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"
	"text/tabwriter"
	"time"

	"log/slog"
)

// LoadConfig holds the configuration for the load test
type LoadConfig struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	DocsPerSec  int
	BatchSize   int
	Timeout     time.Duration
}

// LoadStats holds statistics about the load test
type LoadStats struct {
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	TotalDuration      time.Duration
	MinLatency         time.Duration
	MaxLatency         time.Duration
	TotalLatency       time.Duration
	StatusCodes        map[int]int64
	StatusCodesMutex   sync.Mutex
	StartTime          time.Time
	EndTime            time.Time
	DatabaseBusyErrors int64
	ResponseTimes      []time.Duration
	ResponseTimesMutex sync.Mutex
}

// Result captures the result of a single request
type Result struct {
	Duration   time.Duration
	StatusCode int
	Error      error
}

func main() {
	baseURL := flag.String("url", "http://localhost:3000", "Base URL of the API")
	concurrency := flag.Int("c", 10, "Number of concurrent clients")
	duration := flag.Duration("d", 30*time.Second, "Duration of the test")
	docsPerSec := flag.Int("rate", 0, "Target requests per second (0 = unlimited)")
	batchSize := flag.Int("batch", 1, "Tracking documents per request")
	timeout := flag.Duration("timeout", 10*time.Second, "Request timeout")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	config := &LoadConfig{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		DocsPerSec:  *docsPerSec,
		BatchSize:   *batchSize,
		Timeout:     *timeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigChan
		fmt.Printf("Received signal %v, shutting down...\n", sig)
		cancel()
	}()

	fmt.Printf("Starting load test with %d concurrent clients for %v\n", config.Concurrency, config.Duration)
	fmt.Printf("Target URL: %s/x/api/v1/tracking (batch size %d)\n", config.BaseURL, config.BatchSize)
	if config.DocsPerSec > 0 {
		fmt.Printf("Target rate: %d requests/second\n", config.DocsPerSec)
	} else {
		fmt.Println("Target rate: unlimited")
	}

	stats := &LoadStats{
		StatusCodes: make(map[int]int64),
		StartTime:   time.Now(),
	}

	testCtx, testCancel := context.WithTimeout(ctx, config.Duration)
	defer testCancel()

	resultChan := runTest(testCtx, config, logger)
	for result := range resultChan {
		processResult(result, stats)
	}

	stats.EndTime = time.Now()
	stats.TotalDuration = stats.EndTime.Sub(stats.StartTime)

	printResults(stats)
}

// runTest starts the load test and returns a channel for results
func runTest(ctx context.Context, config *LoadConfig, logger *slog.Logger) <-chan Result {
	resultChan := make(chan Result, config.Concurrency*10)
	var wg sync.WaitGroup

	requestsPerSecPerWorker := 0.0
	if config.DocsPerSec > 0 {
		requestsPerSecPerWorker = float64(config.DocsPerSec) / float64(config.Concurrency)
		logger.Info("Rate limiting enabled",
			slog.Int("totalRequestsPerSec", config.DocsPerSec),
			slog.Float64("requestsPerSecPerWorker", requestsPerSecPerWorker))
	}

	for i := 0; i < config.Concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{Timeout: config.Timeout}

			var ticker *time.Ticker
			if requestsPerSecPerWorker > 0 {
				interval := time.Duration(float64(time.Second) / requestsPerSecPerWorker)
				ticker = time.NewTicker(interval)
				defer ticker.Stop()
			}

			for {
				select {
				case <-ctx.Done():
					return
				default:
					if ticker != nil {
						select {
						case <-ticker.C:
						case <-ctx.Done():
							return
						}
					}

					resultChan <- sendRequest(client, config, workerID)

					// Small cooldown to reduce write contention on SQLite
					cooldownMs := 2 + (config.Concurrency / 20)
					time.Sleep(time.Duration(cooldownMs) * time.Millisecond)
				}
			}
		}(i)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	return resultChan
}

// sendRequest posts one batch of tracking documents
func sendRequest(client *http.Client, config *LoadConfig, workerID int) Result {
	docs := make([]map[string]any, config.BatchSize)
	for i := range docs {
		docs[i] = generateTrackingDoc(workerID)
	}

	var payload any = docs
	if config.BatchSize == 1 {
		payload = docs[0]
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return Result{Error: fmt.Errorf("failed to marshal JSON: %w", err)}
	}

	req, err := http.NewRequest("POST", config.BaseURL+"/x/api/v1/tracking", bytes.NewBuffer(jsonData))
	if err != nil {
		return Result{Error: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", randomUserAgent())

	startTime := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		return Result{Duration: duration, Error: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return Result{Duration: duration, StatusCode: resp.StatusCode}
}

// generateTrackingDoc creates a random session document
func generateTrackingDoc(workerID int) map[string]any {
	countries := []string{"US", "DE", "GB", "FR", "NL", "ES", "JP"}
	now := time.Now().UTC()
	sessionTime := now.Add(-time.Duration(rand.Intn(12*60)) * time.Minute)

	viewCount := 1 + rand.Intn(5)
	views := make([]map[string]any, viewCount)
	var cart []map[string]any
	for i := 0; i < viewCount; i++ {
		itemID := fmt.Sprintf("load-sku-%03d", rand.Intn(60))
		eventTime := sessionTime.Add(time.Duration(i*45) * time.Second)
		views[i] = map[string]any{
			"itemId":    itemID,
			"createdAt": eventTime.Format(time.RFC3339),
		}
		if rand.Float64() < 0.3 {
			cart = append(cart, map[string]any{
				"itemId":    itemID,
				"add":       1,
				"createdAt": eventTime.Add(20 * time.Second).Format(time.RFC3339),
			})
		}
	}

	doc := map[string]any{
		"_id":         fmt.Sprintf("load-session-%d-%d", workerID, rand.Intn(1_000_000)),
		"visitorId":   fmt.Sprintf("load-visitor-%d-%d", workerID, rand.Intn(1000)),
		"countryCode": countries[rand.Intn(len(countries))],
		"date":        sessionTime.Format(time.RFC3339),
		"views":       views,
	}
	if len(cart) > 0 {
		doc["cart"] = cart
	}
	return doc
}

func randomUserAgent() string {
	userAgents := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
		"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36",
	}
	return userAgents[rand.Intn(len(userAgents))]
}

// processResult processes the result of a single request
func processResult(result Result, stats *LoadStats) {
	atomic.AddInt64(&stats.TotalRequests, 1)

	if result.Error != nil {
		atomic.AddInt64(&stats.FailedRequests, 1)
		return
	}

	stats.ResponseTimesMutex.Lock()
	stats.ResponseTimes = append(stats.ResponseTimes, result.Duration)
	stats.ResponseTimesMutex.Unlock()

	stats.StatusCodesMutex.Lock()
	stats.StatusCodes[result.StatusCode]++
	stats.StatusCodesMutex.Unlock()

	if result.StatusCode == http.StatusOK || result.StatusCode == http.StatusAccepted {
		atomic.AddInt64(&stats.SuccessfulRequests, 1)
	} else {
		atomic.AddInt64(&stats.FailedRequests, 1)
		if result.StatusCode == 599 {
			atomic.AddInt64(&stats.DatabaseBusyErrors, 1)
		}
	}

	atomic.AddInt64((*int64)(&stats.TotalLatency), int64(result.Duration))

	if stats.MinLatency == 0 || result.Duration < stats.MinLatency {
		stats.MinLatency = result.Duration
	}
	if result.Duration > stats.MaxLatency {
		stats.MaxLatency = result.Duration
	}
}

// printResults displays the test results in a formatted table
func printResults(stats *LoadStats) {
	fmt.Println("\nLoad Test Results:")
	fmt.Printf("Test Duration: %v\n", stats.TotalDuration.Round(time.Millisecond))

	requestsPerSecond := float64(stats.TotalRequests) / stats.TotalDuration.Seconds()
	fmt.Printf("Requests Per Second: %.2f\n", requestsPerSecond)

	var avgLatency time.Duration
	if stats.TotalRequests > 0 {
		avgLatency = time.Duration(int64(stats.TotalLatency) / stats.TotalRequests)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "\n%s\t%s\n", "METRIC", "VALUE")
	fmt.Fprintf(w, "%s\t%s\n", "------", "-----")
	fmt.Fprintf(w, "Total Requests\t%d\n", stats.TotalRequests)
	if stats.TotalRequests > 0 {
		fmt.Fprintf(w, "Successful Requests\t%d (%.2f%%)\n", stats.SuccessfulRequests, 100*float64(stats.SuccessfulRequests)/float64(stats.TotalRequests))
		fmt.Fprintf(w, "Failed Requests\t%d (%.2f%%)\n", stats.FailedRequests, 100*float64(stats.FailedRequests)/float64(stats.TotalRequests))
	}
	if stats.DatabaseBusyErrors > 0 {
		fmt.Fprintf(w, "Database Busy Errors\t%d\n", stats.DatabaseBusyErrors)
	}
	fmt.Fprintf(w, "Min Latency\t%v\n", stats.MinLatency)
	fmt.Fprintf(w, "Max Latency\t%v\n", stats.MaxLatency)
	fmt.Fprintf(w, "Avg Latency\t%v\n", avgLatency)
	w.Flush()

	printPercentiles(stats)
	printStatusCodes(stats)
}

func printPercentiles(stats *LoadStats) {
	stats.ResponseTimesMutex.Lock()
	times := make([]time.Duration, len(stats.ResponseTimes))
	copy(times, stats.ResponseTimes)
	stats.ResponseTimesMutex.Unlock()

	if len(times) == 0 {
		return
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	percentile := func(p float64) time.Duration {
		idx := int(p * float64(len(times)-1))
		return times[idx]
	}

	fmt.Println("\nLatency Percentiles:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "p50\t%v\n", percentile(0.50))
	fmt.Fprintf(w, "p90\t%v\n", percentile(0.90))
	fmt.Fprintf(w, "p95\t%v\n", percentile(0.95))
	fmt.Fprintf(w, "p99\t%v\n", percentile(0.99))
	w.Flush()
}

func printStatusCodes(stats *LoadStats) {
	if len(stats.StatusCodes) == 0 {
		return
	}

	fmt.Println("\nStatus Code Distribution:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", "STATUS CODE", "COUNT")
	fmt.Fprintf(w, "%s\t%s\n", "-----------", "-----")

	var codes []int
	for code := range stats.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "%d\t%d\n", code, stats.StatusCodes[code])
	}
	w.Flush()
}
