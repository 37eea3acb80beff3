// Benchmark tool for measuring Harrier against a labelled document corpus.
//
// Usage:
//
//	go run ./cmd/benchmark -csv /path/to/corpus.csv -url http://localhost:8080
//
// The corpus is a CSV file with a header row and at least the columns
// "text" and "is_fraud" (1/0 or true/false). Each document is posted to
// POST /analyze and the returned risk tier is compared with the label:
// a document is predicted fraudulent when its tier reaches -tier.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
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

// Document is one labelled row of the corpus.
type Document struct {
	Row     int
	Text    string
	IsFraud bool
}

// AnalyzeRequest is the Harrier API request format.
type AnalyzeRequest struct {
	Text       string `json:"text"`
	DocumentID string `json:"documentId,omitempty"`
}

// AnalyzeResponse is the subset of the Harrier response the benchmark reads.
type AnalyzeResponse struct {
	AnalysisID        string   `json:"analysisId"`
	FraudScore        float64  `json:"fraudScore"`
	RiskLevel         string   `json:"riskLevel"`
	Reasons           []string `json:"reasons"`
	DegradedDetectors []string `json:"degradedDetectors"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	TruePositives  int64 // Fraud predicted at or above the tier
	FalsePositives int64
	TrueNegatives  int64
	FalseNegatives int64 // Missed fraud

	TotalProcessed int64
	TotalFraud     int64
	TotalNonFraud  int64
	TotalErrors    int64
	TotalDegraded  int64

	ProcessingTimeMs int64
}

var tierRank = map[string]int{
	"LOW":      0,
	"MEDIUM":   1,
	"HIGH":     2,
	"CRITICAL": 3,
}

func main() {
	csvPath := flag.String("csv", "", "Path to labelled CSV corpus")
	baseURL := flag.String("url", "http://localhost:8080", "Harrier base URL")
	tier := flag.String("tier", "HIGH", "Lowest risk tier counted as a fraud prediction")
	limit := flag.Int("limit", 1000, "Maximum documents to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	verbose := flag.Bool("verbose", false, "Print each document result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/corpus.csv [-url http://localhost:8080] [-tier HIGH]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	threshold, ok := tierRank[strings.ToUpper(*tier)]
	if !ok {
		fmt.Printf("ERROR: unknown tier %q (want LOW, MEDIUM, HIGH or CRITICAL)\n", *tier)
		os.Exit(1)
	}

	fmt.Println("HARRIER BENCHMARK - labelled document corpus")
	fmt.Printf("\nCSV File:    %s\n", *csvPath)
	fmt.Printf("Harrier URL: %s\n", *baseURL)
	fmt.Printf("Tier:        %s\n", strings.ToUpper(*tier))
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Limit:       %d\n", *limit)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Harrier not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Harrier is running:")
		fmt.Println("  go run ./cmd/harrier serve")
		os.Exit(1)
	}
	fmt.Println("Harrier is healthy")

	docs, err := readCorpus(*csvPath, *limit)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		fmt.Println("ERROR: corpus is empty")
		os.Exit(1)
	}

	fraudCount := 0
	for _, d := range docs {
		if d.IsFraud {
			fraudCount++
		}
	}
	fmt.Printf("Loaded %d documents\n", len(docs))
	fmt.Printf("  - Fraud:     %d (%.2f%%)\n", fraudCount, 100*float64(fraudCount)/float64(len(docs)))
	fmt.Printf("  - Non-fraud: %d (%.2f%%)\n", len(docs)-fraudCount, 100*float64(len(docs)-fraudCount)/float64(len(docs)))

	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(docs, *baseURL, threshold, *workers, *verbose)
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

func readCorpus(path string, limit int) ([]Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}
	textCol, ok := colIndex["text"]
	if !ok {
		return nil, errors.New("missing text column")
	}
	labelCol, ok := colIndex["is_fraud"]
	if !ok {
		return nil, errors.New("missing is_fraud column")
	}

	var docs []Document
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil || len(record) <= textCol || len(record) <= labelCol {
			continue // Skip malformed rows
		}

		isFraud, err := strconv.ParseBool(strings.TrimSpace(record[labelCol]))
		if err != nil || strings.TrimSpace(record[textCol]) == "" {
			continue
		}

		docs = append(docs, Document{Row: row, Text: record[textCol], IsFraud: isFraud})
		if limit > 0 && len(docs) >= limit {
			break
		}
	}

	return docs, nil
}

func runBenchmark(docs []Document, baseURL string, threshold, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan Document, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 30 * time.Second}

			for doc := range work {
				start := time.Now()
				result, err := analyzeDocument(client, baseURL, doc)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: row %d -> %v\n", doc.Row, err)
					}
					continue
				}

				if doc.IsFraud {
					atomic.AddInt64(&metrics.TotalFraud, 1)
				} else {
					atomic.AddInt64(&metrics.TotalNonFraud, 1)
				}
				if len(result.DegradedDetectors) > 0 {
					atomic.AddInt64(&metrics.TotalDegraded, 1)
				}

				predicted := tierRank[result.RiskLevel] >= threshold
				actual := doc.IsFraud

				switch {
				case predicted && actual:
					atomic.AddInt64(&metrics.TruePositives, 1)
				case predicted && !actual:
					atomic.AddInt64(&metrics.FalsePositives, 1)
				case !predicted && !actual:
					atomic.AddInt64(&metrics.TrueNegatives, 1)
				default:
					atomic.AddInt64(&metrics.FalseNegatives, 1)
				}

				if verbose {
					status := "ok  "
					if predicted != actual {
						status = "MISS"
					}
					fmt.Printf("%s row %-6d | Fraud: %-5v | Harrier: %-8s (%.2f) | %s\n",
						status,
						doc.Row,
						doc.IsFraud,
						result.RiskLevel,
						result.FraudScore,
						strings.Join(result.Reasons, "; "),
					)
				}
			}
		}()
	}

	for _, doc := range docs {
		work <- doc
	}
	close(work)

	wg.Wait()

	return metrics
}

func analyzeDocument(client *http.Client, baseURL string, doc Document) (*AnalyzeResponse, error) {
	body, err := json.Marshal(AnalyzeRequest{
		Text:       doc.Text,
		DocumentID: "benchmark-row-" + strconv.Itoa(doc.Row),
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/analyze", bytes.NewReader(body))
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

	var result AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\nBENCHMARK RESULTS")

	fmt.Printf("\nDATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Total Fraud:      %d\n", m.TotalFraud)
	fmt.Printf("   Total Non-Fraud:  %d\n", m.TotalNonFraud)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)
	fmt.Printf("   Degraded:         %d\n", m.TotalDegraded)

	fmt.Printf("\nCONFUSION MATRIX\n")
	fmt.Println("                   Predicted")
	fmt.Println("                 FRAUD      CLEAN")
	fmt.Printf("   Actual  F  | %8d | %8d |  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Printf("          NF  | %8d | %8d |  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)

	precision, recall, f1, accuracy := scores(m)

	fmt.Printf("\nDETECTION METRICS\n")
	fmt.Printf("   Precision:  %.4f\n", precision)
	fmt.Printf("   Recall:     %.4f\n", recall)
	fmt.Printf("   F1-Score:   %.4f\n", f1)
	fmt.Printf("   Accuracy:   %.4f\n", accuracy)

	fmt.Printf("\nPERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		dps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f docs/sec\n", dps)
	}
	fmt.Println()
}

func scores(m *Metrics) (precision, recall, f1, accuracy float64) {
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total > 0 {
		accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}
	return precision, recall, f1, accuracy
}
