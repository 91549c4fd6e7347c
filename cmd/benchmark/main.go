// Benchmark tool for testing Harrier against labeled fraud data.
//
// Usage:
//   go run cmd/benchmark/main.go -csv /path/to/labeled.csv -url http://localhost:8080
//
// This tool:
//  1. Reads labeled request data (identity, IP, amount, fraud label)
//  2. Sends each request to Harrier for assessment
//  3. Compares Harrier's action (allow/challenge/block) with the labels
//  4. Calculates precision, recall, F1-score, and confusion matrix
//
// Expected CSV columns (header names, case-insensitive):
//   identityid, sessionid, email, ip, country, useragent, amount,
//   currency, isfraud
// Missing columns are treated as empty fields; isfraud is required.
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

// LabeledRequest is one row of the benchmark dataset.
type LabeledRequest struct {
	IdentityID string
	SessionID  string
	Email      string
	IP         string
	Country    string
	UserAgent  string
	Amount     float64
	Currency   string
	IsFraud    bool
}

// AssessRequest is the Harrier API request format.
type AssessRequest struct {
	SessionID  string  `json:"sessionId,omitempty"`
	IdentityID string  `json:"identityId,omitempty"`
	Email      string  `json:"email,omitempty"`
	IPAddress  string  `json:"ipAddress"`
	UserAgent  string  `json:"userAgent"`
	Amount     float64 `json:"amount,omitempty"`
	Currency   string  `json:"currency,omitempty"`
	Country    string  `json:"country,omitempty"`
}

// AssessResponse is the Harrier API response format.
type AssessResponse struct {
	ID        string   `json:"id"`
	RiskScore int      `json:"riskScore"`
	RiskLevel string   `json:"riskLevel"`
	Action    string   `json:"action"`
	Reasons   []string `json:"reasons"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	TruePositives  int64 // Fraud that was flagged
	FalsePositives int64 // Non-fraud that was flagged
	TrueNegatives  int64 // Non-fraud that was allowed
	FalseNegatives int64 // Fraud that was allowed (missed fraud!)

	TotalProcessed int64
	TotalFraud     int64
	TotalNonFraud  int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

func main() {
	// Parse flags
	csvPath := flag.String("csv", "", "Path to labeled CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "Harrier base URL")
	limit := flag.Int("limit", 10000, "Maximum requests to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	fraudOnly := flag.Bool("fraud-only", false, "Only test fraud rows")
	flagOn := flag.String("flag-on", "challenge", "Action that counts as flagged: challenge (challenge or block) or block (block only)")
	sampleRate := flag.Float64("sample", 1.0, "Sample rate for non-fraud (0.0-1.0)")
	verbose := flag.Bool("verbose", false, "Print each request result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/labeled.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *flagOn != "challenge" && *flagOn != "block" {
		fmt.Println("ERROR: -flag-on must be challenge or block")
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║           HARRIER BENCHMARK - Fraud Detection                 ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nCSV File:    %s\n", *csvPath)
	fmt.Printf("Harrier URL: %s\n", *baseURL)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Limit:       %d\n", *limit)
	fmt.Printf("Flag On:     %s\n", *flagOn)
	fmt.Printf("Fraud Only:  %v\n", *fraudOnly)
	fmt.Printf("Sample Rate: %.2f\n", *sampleRate)
	fmt.Println()

	// Check Harrier is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Harrier not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Harrier is running:")
		fmt.Println("  go run cmd/harrier/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Harrier is healthy")

	// Read labeled data
	fmt.Printf("\nReading labeled data from %s...\n", *csvPath)
	requests, err := readLabeledCSV(*csvPath, *limit, *fraudOnly, *sampleRate)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d requests\n", len(requests))

	// Count fraud vs non-fraud
	fraudCount := 0
	for _, r := range requests {
		if r.IsFraud {
			fraudCount++
		}
	}
	fmt.Printf("  - Fraud:     %d (%.2f%%)\n", fraudCount, 100*float64(fraudCount)/float64(len(requests)))
	fmt.Printf("  - Non-fraud: %d (%.2f%%)\n", len(requests)-fraudCount, 100*float64(len(requests)-fraudCount)/float64(len(requests)))

	// Run benchmark
	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(requests, *baseURL, *flagOn, *workers, *verbose)
	duration := time.Since(startTime)

	// Print results
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

func readLabeledCSV(path string, limit int, fraudOnly bool, sampleRate float64) ([]LabeledRequest, error) {
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
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}
	if _, ok := colIndex["isfraud"]; !ok {
		return nil, fmt.Errorf("missing required isfraud column")
	}

	field := func(record []string, name string) string {
		idx, ok := colIndex[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	var requests []LabeledRequest
	sampleCounter := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}

		isFraud := field(record, "isfraud") == "1"

		// Apply filters
		if fraudOnly && !isFraud {
			continue
		}

		// Sample non-fraud rows
		if !isFraud && sampleRate < 1.0 {
			sampleCounter++
			if float64(sampleCounter%100)/100.0 >= sampleRate {
				continue
			}
		}

		amount, _ := strconv.ParseFloat(field(record, "amount"), 64)

		req := LabeledRequest{
			IdentityID: field(record, "identityid"),
			SessionID:  field(record, "sessionid"),
			Email:      field(record, "email"),
			IP:         field(record, "ip"),
			Country:    field(record, "country"),
			UserAgent:  field(record, "useragent"),
			Amount:     amount,
			Currency:   field(record, "currency"),
			IsFraud:    isFraud,
		}

		requests = append(requests, req)

		if limit > 0 && len(requests) >= limit {
			break
		}
	}

	return requests, nil
}

func runBenchmark(requests []LabeledRequest, baseURL, flagOn string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	// Create work channel
	work := make(chan LabeledRequest, 100)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for r := range work {
				start := time.Now()
				result, err := assessRequest(client, baseURL, r)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", r.IdentityID, err)
					}
					continue
				}

				// Track actual labels
				if r.IsFraud {
					atomic.AddInt64(&metrics.TotalFraud, 1)
				} else {
					atomic.AddInt64(&metrics.TotalNonFraud, 1)
				}

				// Calculate confusion matrix
				predicted := result.Action == "block"
				if flagOn == "challenge" {
					predicted = result.Action != "allow"
				}
				actual := r.IsFraud

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
					if (predicted && !actual) || (!predicted && actual) {
						status = "✗"
					}
					name := r.IdentityID
					if len(name) > 10 {
						name = name[:10]
					}
					fmt.Printf("%s %-10s | Amount: $%10.2f | Fraud: %-5v | Harrier: %-9s (score %3d) | %s\n",
						status,
						name,
						r.Amount,
						r.IsFraud,
						result.Action,
						result.RiskScore,
						strings.Join(result.Reasons, "; "),
					)
				}
			}
		}()
	}

	// Send work
	for _, r := range requests {
		work <- r
	}
	close(work)

	// Wait for completion
	wg.Wait()

	return metrics
}

func assessRequest(client *http.Client, baseURL string, r LabeledRequest) (*AssessResponse, error) {
	req := AssessRequest{
		SessionID:  r.SessionID,
		IdentityID: r.IdentityID,
		Email:      r.Email,
		IPAddress:  r.IP,
		UserAgent:  r.UserAgent,
		Amount:     r.Amount,
		Currency:   r.Currency,
		Country:    r.Country,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/assess", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result AssessResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Total Fraud:      %d\n", m.TotalFraud)
	fmt.Printf("   Total Non-Fraud:  %d\n", m.TotalNonFraud)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\n📈 CONFUSION MATRIX\n")
	fmt.Println("                        Predicted")
	fmt.Println("                  Flagged     Allowed")
	fmt.Println("              ┌──────────┬──────────┐")
	fmt.Printf("   Actual  F  │ %8d │ %8d │  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Println("              ├──────────┼──────────┤")
	fmt.Printf("          NF  │ %8d │ %8d │  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
	fmt.Println("              └──────────┴──────────┘")

	// Calculate metrics
	precision := float64(0)
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}

	recall := float64(0)
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}

	accuracy := float64(0)
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total > 0 {
		accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}

	fmt.Printf("\n🎯 DETECTION METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of flagged requests, how many were actual fraud)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of fraud, how many did we catch)\n", recall)
	fmt.Printf("   F1-Score:   %.4f  (harmonic mean of precision & recall)\n", f1)
	fmt.Printf("   Accuracy:   %.4f  (overall correct predictions)\n", accuracy)

	// Detection rate analysis
	fmt.Printf("\n🔍 DETECTION ANALYSIS\n")
	if m.TotalFraud > 0 {
		detectionRate := float64(m.TruePositives) / float64(m.TotalFraud) * 100
		missRate := float64(m.FalseNegatives) / float64(m.TotalFraud) * 100
		fmt.Printf("   Fraud Detected:    %d / %d (%.2f%%)\n", m.TruePositives, m.TotalFraud, detectionRate)
		fmt.Printf("   Fraud Missed:      %d / %d (%.2f%%) ⚠️\n", m.FalseNegatives, m.TotalFraud, missRate)
	}
	if m.TotalNonFraud > 0 {
		falseAlarmRate := float64(m.FalsePositives) / float64(m.TotalNonFraud) * 100
		fmt.Printf("   False Alarms:      %d / %d (%.2f%%)\n", m.FalsePositives, m.TotalNonFraud, falseAlarmRate)
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		rps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f req/sec\n", rps)
	}

	// Interpretation
	fmt.Printf("\n💡 INTERPRETATION\n")
	if recall >= 0.9 {
		fmt.Println("   ✅ Excellent recall - catching most fraud")
	} else if recall >= 0.7 {
		fmt.Println("   ⚠️  Good recall - but missing some fraud")
	} else if recall >= 0.5 {
		fmt.Println("   ⚠️  Moderate recall - significant fraud being missed")
	} else {
		fmt.Println("   ❌ Poor recall - most fraud is being missed!")
	}

	if precision >= 0.5 {
		fmt.Println("   ✅ Good precision - alerts are meaningful")
	} else if precision >= 0.2 {
		fmt.Println("   ⚠️  Low precision - many false alarms")
	} else {
		fmt.Println("   ❌ Very low precision - mostly false alarms")
	}

	fmt.Println()
}
