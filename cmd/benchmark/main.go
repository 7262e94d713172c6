// Benchmark tool for testing QValley against labeled scam-message data.
//
// Usage:
//   go run cmd/benchmark/main.go -csv /path/to/messages.csv -url http://localhost:8080
//
// This tool:
//   1. Reads labeled chat messages (with scam labels)
//   2. Sends each message to QValley for scoring
//   3. Compares QValley's verdict (FRAUD/SUSPICIOUS vs SAFE) with labels
//   4. Calculates precision, recall, F1-score, and confusion matrix
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LabeledMessage represents a row from the labeled message dataset:
// message,upi,amount,relationship,history,isscam
type LabeledMessage struct {
	Message      string
	UPI          string
	Amount       float64
	Relationship string
	History      int
	IsScam       bool
}

// ChatRequest is the QValley API request format
type ChatRequest struct {
	Message      string  `json:"message"`
	UPI          string  `json:"upi,omitempty"`
	Amount       float64 `json:"amount,omitempty"`
	Relationship string  `json:"relationship,omitempty"`
	History      int     `json:"history,omitempty"`
}

// ChatResponse is the QValley API response format
type ChatResponse struct {
	Trust   int      `json:"trust"`
	Verdict string   `json:"verdict"` // SAFE, SUSPICIOUS, FRAUD
	Reasons []string `json:"reasons"`
	Action  string   `json:"action"`
}

// Metrics tracks benchmark results
type Metrics struct {
	TruePositives  int64 // Scam flagged as FRAUD/SUSPICIOUS
	FalsePositives int64 // Clean flagged as FRAUD/SUSPICIOUS
	TrueNegatives  int64 // Clean scored SAFE
	FalseNegatives int64 // Scam scored SAFE (missed!)

	TotalProcessed int64
	TotalScam      int64
	TotalClean     int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

func main() {
	// Parse flags
	csvPath := flag.String("csv", "", "Path to labeled message CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "QValley base URL")
	limit := flag.Int("limit", 10000, "Maximum messages to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	scamOnly := flag.Bool("scam-only", false, "Only test scam messages")
	strict := flag.Bool("strict", false, "Count only FRAUD (not SUSPICIOUS) as a positive")
	verbose := flag.Bool("verbose", false, "Print each message result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/messages.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║         QVALLEY BENCHMARK - Scam Message Detection            ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nCSV File:    %s\n", *csvPath)
	fmt.Printf("QValley URL: %s\n", *baseURL)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Limit:       %d\n", *limit)
	fmt.Printf("Scam Only:   %v\n", *scamOnly)
	fmt.Printf("Strict:      %v\n", *strict)
	fmt.Println()

	// Check QValley is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: QValley not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure QValley is running:")
		fmt.Println("  go run cmd/qvalley/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ QValley is healthy")

	// Read labeled data
	fmt.Printf("\nReading labeled messages from %s...\n", *csvPath)
	messages, err := readLabeledCSV(*csvPath, *limit, *scamOnly)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d messages\n", len(messages))

	scamCount := 0
	for _, m := range messages {
		if m.IsScam {
			scamCount++
		}
	}
	fmt.Printf("  - Scam:  %d (%.2f%%)\n", scamCount, 100*float64(scamCount)/float64(len(messages)))
	fmt.Printf("  - Clean: %d (%.2f%%)\n", len(messages)-scamCount, 100*float64(len(messages)-scamCount)/float64(len(messages)))

	// Run benchmark
	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(messages, *baseURL, *workers, *strict, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func readLabeledCSV(path string, limit int, scamOnly bool) ([]LabeledMessage, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Read header
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Map column indices
	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(col)] = i
	}

	var messages []LabeledMessage

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}

		isScam := record[colIndex["isscam"]] == "1"
		if scamOnly && !isScam {
			continue
		}

		amount, _ := strconv.ParseFloat(record[colIndex["amount"]], 64)
		history, _ := strconv.Atoi(record[colIndex["history"]])

		messages = append(messages, LabeledMessage{
			Message:      record[colIndex["message"]],
			UPI:          record[colIndex["upi"]],
			Amount:       amount,
			Relationship: record[colIndex["relationship"]],
			History:      history,
			IsScam:       isScam,
		})

		if limit > 0 && len(messages) >= limit {
			break
		}
	}

	return messages, nil
}

func runBenchmark(messages []LabeledMessage, baseURL string, numWorkers int, strict, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan LabeledMessage, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for msg := range work {
				start := time.Now()
				result, err := scoreMessage(client, baseURL, msg)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %.40s -> %v\n", msg.Message, err)
					}
					continue
				}

				if msg.IsScam {
					atomic.AddInt64(&metrics.TotalScam, 1)
				} else {
					atomic.AddInt64(&metrics.TotalClean, 1)
				}

				predicted := result.Verdict == "FRAUD"
				if !strict {
					predicted = predicted || result.Verdict == "SUSPICIOUS"
				}
				actual := msg.IsScam

				if predicted && actual {
					atomic.AddInt64(&metrics.TruePositives, 1)
				} else if predicted && !actual {
					atomic.AddInt64(&metrics.FalsePositives, 1)
				} else if !predicted && !actual {
					atomic.AddInt64(&metrics.TrueNegatives, 1)
				} else { // !predicted && actual
					atomic.AddInt64(&metrics.FalseNegatives, 1)
				}

				if verbose {
					status := "✓"
					if predicted != actual {
						status = "✗"
					}
					fmt.Printf("%s %-10s trust=%-3d %.50s\n", status, result.Verdict, result.Trust, msg.Message)
				}
			}
		}()
	}

	for _, msg := range messages {
		work <- msg
	}
	close(work)
	wg.Wait()

	return metrics
}

func scoreMessage(client *http.Client, baseURL string, msg LabeledMessage) (*ChatResponse, error) {
	req := ChatRequest{
		Message:      msg.Message,
		UPI:          msg.UPI,
		Amount:       msg.Amount,
		Relationship: msg.Relationship,
		History:      msg.History,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	resp, err := client.Post(baseURL+"/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	tp := float64(m.TruePositives)
	fp := float64(m.FalsePositives)
	fn := float64(m.FalseNegatives)

	precision := 0.0
	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	recall := 0.0
	if tp+fn > 0 {
		recall = tp / (tp + fn)
	}
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	avgMs := float64(0)
	if m.TotalProcessed > 0 {
		avgMs = float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                        RESULTS                                ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nProcessed:   %d messages in %s (%d errors)\n", m.TotalProcessed, duration.Round(time.Millisecond), m.TotalErrors)
	fmt.Printf("Throughput:  %.1f msg/s\n", float64(m.TotalProcessed)/duration.Seconds())
	fmt.Printf("Avg latency: %.1f ms\n", avgMs)
	fmt.Println("\nConfusion matrix:")
	fmt.Printf("  True positives:  %d\n", m.TruePositives)
	fmt.Printf("  False positives: %d\n", m.FalsePositives)
	fmt.Printf("  True negatives:  %d\n", m.TrueNegatives)
	fmt.Printf("  False negatives: %d\n", m.FalseNegatives)
	fmt.Println()
	fmt.Printf("Precision: %.3f\n", precision)
	fmt.Printf("Recall:    %.3f\n", recall)
	fmt.Printf("F1-score:  %.3f\n", f1)
	fmt.Println()
}
