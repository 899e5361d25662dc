// Benchmark tool for load-testing the comparison pipeline.
//
// Usage:
//
//	go run cmd/benchmark/main.go -url http://localhost:8080 -policies 200 -surveys 50
//
// This tool:
//  1. Seeds randomized policies and surveys over the HTTP API
//  2. Runs concurrent /compare requests across the seeded surveys
//  3. Reports throughput, latency percentiles, and the score distribution
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// SurveyRequest mirrors the API request for creating a survey.
type SurveyRequest struct {
	InsuranceType string         `json:"insuranceType"`
	Preferences   map[string]any `json:"preferences"`
}

// PolicyRequest mirrors the API request for creating a policy.
type PolicyRequest struct {
	Name           string         `json:"name"`
	Organization   string         `json:"organization,omitempty"`
	InsuranceType  string         `json:"insuranceType"`
	BasePremium    float64        `json:"basePremium"`
	CoverageAmount float64        `json:"coverageAmount"`
	Features       map[string]any `json:"features,omitempty"`
}

// CompareRequest mirrors the API request for running a comparison.
type CompareRequest struct {
	SurveyID string `json:"surveyId"`
	Force    bool   `json:"force"`
}

// CompareResponse is the subset of the comparison response we track.
type CompareResponse struct {
	SurveyID    string `json:"surveyId"`
	ResultCount int    `json:"resultCount"`
	Results     []struct {
		ScorePercent float64 `json:"scorePercent"`
		Category     string  `json:"category"`
	} `json:"results"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	TotalCompares int64
	TotalResults  int64
	TotalErrors   int64

	mu         sync.Mutex
	latencies  []time.Duration
	categories map[string]int64
}

func (m *Metrics) record(latency time.Duration, resp *CompareResponse) {
	atomic.AddInt64(&m.TotalCompares, 1)
	atomic.AddInt64(&m.TotalResults, int64(resp.ResultCount))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies = append(m.latencies, latency)
	for _, r := range resp.Results {
		m.categories[r.Category]++
	}
}

func (m *Metrics) percentile(p float64) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

func main() {
	// Parse flags
	baseURL := flag.String("url", "http://localhost:8080", "Pholli Compare base URL")
	insuranceType := flag.String("type", "FUNERAL", "Insurance type to benchmark (HEALTH or FUNERAL)")
	policyCount := flag.Int("policies", 100, "Number of policies to seed")
	surveyCount := flag.Int("surveys", 25, "Number of surveys to seed")
	rounds := flag.Int("rounds", 10, "Comparison rounds per survey")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	seed := flag.Int64("seed", 42, "Random seed for generated data")
	verbose := flag.Bool("verbose", false, "Print each comparison result")
	flag.Parse()

	if *insuranceType != "HEALTH" && *insuranceType != "FUNERAL" {
		fmt.Println("type must be HEALTH or FUNERAL")
		os.Exit(1)
	}

	fmt.Println("+---------------------------------------------------------------+")
	fmt.Println("|         PHOLLI COMPARE BENCHMARK - Comparison Pipeline        |")
	fmt.Println("+---------------------------------------------------------------+")
	fmt.Printf("\nServer URL:  %s\n", *baseURL)
	fmt.Printf("Type:        %s\n", *insuranceType)
	fmt.Printf("Policies:    %d\n", *policyCount)
	fmt.Printf("Surveys:     %d\n", *surveyCount)
	fmt.Printf("Rounds:      %d\n", *rounds)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Println()

	// Check the server is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: server not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Pholli Compare is running:")
		fmt.Println("  go run cmd/pholli/main.go")
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))
	client := &http.Client{Timeout: 30 * time.Second}

	// Seed policies
	fmt.Printf("Seeding %d policies...\n", *policyCount)
	for i := 0; i < *policyCount; i++ {
		if err := createPolicy(client, *baseURL, *insuranceType, i, rng); err != nil {
			fmt.Printf("ERROR: failed to seed policy %d: %v\n", i, err)
			os.Exit(1)
		}
	}

	// Seed surveys
	fmt.Printf("Seeding %d surveys...\n", *surveyCount)
	surveyIDs := make([]string, 0, *surveyCount)
	for i := 0; i < *surveyCount; i++ {
		id, err := createSurvey(client, *baseURL, *insuranceType, rng)
		if err != nil {
			fmt.Printf("ERROR: failed to seed survey %d: %v\n", i, err)
			os.Exit(1)
		}
		surveyIDs = append(surveyIDs, id)
	}

	// Build the work queue: every survey gets the requested number of rounds.
	// The first round per survey computes, later rounds force a recompute.
	type job struct {
		surveyID string
		force    bool
	}
	jobs := make(chan job, len(surveyIDs)*(*rounds))
	for round := 0; round < *rounds; round++ {
		for _, id := range surveyIDs {
			jobs <- job{surveyID: id, force: round > 0}
		}
	}
	close(jobs)

	metrics := &Metrics{categories: make(map[string]int64)}
	start := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				reqStart := time.Now()
				resp, err := compare(client, *baseURL, j.surveyID, j.force)
				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if *verbose {
						fmt.Printf("compare %s failed: %v\n", j.surveyID, err)
					}
					continue
				}
				metrics.record(time.Since(reqStart), resp)
				if *verbose {
					fmt.Printf("compare %s: %d results\n", j.surveyID, resp.ResultCount)
				}
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)
	printReport(metrics, elapsed)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

func createPolicy(client *http.Client, baseURL, insuranceType string, n int, rng *rand.Rand) error {
	var features map[string]any
	var coverage float64

	if insuranceType == "FUNERAL" {
		coverage = float64(rng.Intn(19)+2) * 5000 // 10k..100k
		features = map[string]any{
			"coverAmount":      coverage,
			"monthlyNetIncome": float64(rng.Intn(40)+5) * 1000,
		}
	} else {
		coverage = float64(rng.Intn(20)+5) * 50000 // 250k..1.2M
		features = map[string]any{
			"annualLimitPerMember":          coverage,
			"annualLimitPerFamily":          coverage * 2,
			"ambulanceCoverage":             rng.Intn(2) == 0,
			"inHospitalBenefit":             rng.Intn(3) > 0,
			"outHospitalBenefit":            rng.Intn(2) == 0,
			"chronicMedicationAvailability": rng.Intn(2) == 0,
		}
	}

	req := PolicyRequest{
		Name:           fmt.Sprintf("Benchmark %s Plan %03d", insuranceType, n),
		Organization:   "Benchmark Org",
		InsuranceType:  insuranceType,
		BasePremium:    float64(rng.Intn(400) + 100),
		CoverageAmount: coverage,
		Features:       features,
	}

	return postJSON(client, baseURL+"/policies", req, http.StatusCreated, nil)
}

func createSurvey(client *http.Client, baseURL, insuranceType string, rng *rand.Rand) (string, error) {
	var prefs map[string]any
	if insuranceType == "FUNERAL" {
		prefs = map[string]any{
			"cover_amount":       float64(rng.Intn(19)+2) * 5000,
			"monthly_net_income": float64(rng.Intn(40)+5) * 1000,
		}
	} else {
		prefs = map[string]any{
			"annual_limit_per_member":         float64(rng.Intn(20)+5) * 50000,
			"ambulance_coverage":              rng.Intn(2) == 0,
			"in_hospital_benefit":             true,
			"chronic_medication_availability": rng.Intn(2) == 0,
		}
	}

	req := SurveyRequest{
		InsuranceType: insuranceType,
		Preferences:   prefs,
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := postJSON(client, baseURL+"/surveys", req, http.StatusCreated, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

func compare(client *http.Client, baseURL, surveyID string, force bool) (*CompareResponse, error) {
	var resp CompareResponse
	if err := postJSON(client, baseURL+"/compare", CompareRequest{SurveyID: surveyID, Force: force}, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func postJSON(client *http.Client, url string, body any, wantStatus int, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := client.Post(url, "application/json", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(raw))
	}
	if out != nil {
		return json.Unmarshal(raw, out)
	}
	return nil
}

func printReport(m *Metrics, elapsed time.Duration) {
	fmt.Println()
	fmt.Println("+---------------------------------------------------------------+")
	fmt.Println("|                       BENCHMARK RESULTS                       |")
	fmt.Println("+---------------------------------------------------------------+")
	fmt.Println()
	fmt.Printf("Compares:    %d\n", m.TotalCompares)
	fmt.Printf("Results:     %d\n", m.TotalResults)
	fmt.Printf("Errors:      %d\n", m.TotalErrors)
	fmt.Printf("Elapsed:     %s\n", elapsed.Round(time.Millisecond))
	if elapsed > 0 && m.TotalCompares > 0 {
		fmt.Printf("Throughput:  %.1f compares/sec\n", float64(m.TotalCompares)/elapsed.Seconds())
	}
	fmt.Println()
	fmt.Printf("Latency p50: %s\n", m.percentile(0.50).Round(time.Microsecond))
	fmt.Printf("Latency p95: %s\n", m.percentile(0.95).Round(time.Microsecond))
	fmt.Printf("Latency p99: %s\n", m.percentile(0.99).Round(time.Microsecond))
	fmt.Println()

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.categories) > 0 {
		fmt.Println("Category distribution:")
		keys := make([]string, 0, len(m.categories))
		for k := range m.categories {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %-16s %d\n", k, m.categories[k])
		}
	}
	fmt.Println()
}
