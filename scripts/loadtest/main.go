// Loadtest drives concurrent requests through the BFF and reports how they
// ended: answered, rate limited, or turned into the 502 contract.
//
// Usage:
//
//	go run ./scripts/loadtest -url http://localhost:4321/api/greetings -concurrency 10 -requests 1000
//	go run ./scripts/loadtest -method POST -body '{"name":"hi"}' -out summary.json
//
// Latency percentiles are reported per outcome so retried calls (slow 2xx)
// and exhausted calls (slow 502) can be told apart from fast answers.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type outcomeStats struct {
	Count     int32
	Latencies []time.Duration
}

type outcomeSummary struct {
	Total int32   `json:"total"`
	P50   float64 `json:"p50_ms"`
	P90   float64 `json:"p90_ms"`
	P95   float64 `json:"p95_ms"`
	P99   float64 `json:"p99_ms"`
}

func main() {
	var (
		url         = flag.String("url", "http://localhost:4321/api/greetings", "Target URL")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 100, "Total number of requests to send")
		method      = flag.String("method", "GET", "HTTP method")
		body        = flag.String("body", "", "Request body")
		contentType = flag.String("content-type", "application/json", "Content-Type header")
		timeout     = flag.Duration("timeout", 60*time.Second, "Per-request client timeout")
	)

	outJSON := flag.String("out", "", "Write JSON summary to this file (optional)")
	verbose := flag.Bool("v", false, "Verbose per-request logging to stdout")
	flag.Parse()

	client := &http.Client{Timeout: *timeout}

	jobs := make(chan int)
	var wg sync.WaitGroup

	var total int32
	stats := make(map[string]*outcomeStats)
	var statsMu sync.Mutex

	record := func(outcome string, dur time.Duration) {
		statsMu.Lock()
		defer statsMu.Unlock()
		s, ok := stats[outcome]
		if !ok {
			s = &outcomeStats{}
			stats[outcome] = s
		}
		s.Count++
		s.Latencies = append(s.Latencies, dur)
	}

	testStart := time.Now()

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobs {
				atomic.AddInt32(&total, 1)
				start := time.Now()

				var reqBody io.Reader
				if *body != "" {
					reqBody = bytes.NewBufferString(*body)
				}
				req, err := http.NewRequest(*method, *url, reqBody)
				if err != nil {
					record("client_error", 0)
					continue
				}
				if reqBody != nil {
					req.Header.Set("Content-Type", *contentType)
				}
				req.Header.Set("X-Request-ID", fmt.Sprintf("loadtest-%d", idx))

				resp, err := client.Do(req)
				dur := time.Since(start)
				if err != nil {
					record("transport_error", dur)
					if *verbose {
						fmt.Printf("[%d] idx=%d error=%v\n", workerID, idx, err)
					}
					continue
				}

				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				record(classify(resp.StatusCode), dur)
				if *verbose {
					fmt.Printf("[%d] idx=%d status=%d dur=%v\n", workerID, idx, resp.StatusCode, dur)
				}
			}
		}(i)
	}

	go func() {
		for i := 0; i < *requests; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	wg.Wait()
	totalDuration := time.Since(testStart)
	throughput := float64(total) / totalDuration.Seconds()

	fmt.Println("--- Load Test Summary ---")
	fmt.Printf("Target: %s %s\n", *method, *url)
	fmt.Printf("Requests: %d  Concurrency: %d\n", *requests, *concurrency)
	fmt.Printf("Duration: %v  Throughput: %.2f req/s\n", totalDuration, throughput)

	summaries := make(map[string]outcomeSummary, len(stats))
	var outcomes []string
	for k := range stats {
		outcomes = append(outcomes, k)
	}
	sort.Strings(outcomes)

	fmt.Println("\nOutcomes:")
	for _, k := range outcomes {
		s := stats[k]
		sum := summarize(s)
		summaries[k] = sum
		fmt.Printf("  %-16s total=%d p50=%.0fms p90=%.0fms p95=%.0fms p99=%.0fms\n",
			k, sum.Total, sum.P50, sum.P90, sum.P95, sum.P99)
	}

	fmt.Printf("\nGOMAXPROCS=%d  NumGoroutine=%d\n", runtime.GOMAXPROCS(0), runtime.NumGoroutine())

	if *outJSON != "" {
		report := map[string]any{
			"target":         *url,
			"method":         *method,
			"requests":       *requests,
			"concurrency":    *concurrency,
			"total_sent":     total,
			"duration_ms":    totalDuration.Milliseconds(),
			"throughput_rps": throughput,
			"outcomes":       summaries,
		}

		f, err := os.Create(*outJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create json file: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
		f.Close()
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	// non-zero when anything came back as the 502 contract or never came back
	if stats["unavailable"] != nil || stats["transport_error"] != nil {
		os.Exit(2)
	}
}

func classify(status int) string {
	switch {
	case status >= 200 && status <= 299:
		return "ok"
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status == http.StatusBadGateway:
		return "unavailable"
	case status >= 400 && status <= 499:
		return "upstream_4xx"
	default:
		return "other"
	}
}

func summarize(s *outcomeStats) outcomeSummary {
	sum := outcomeSummary{Total: s.Count}
	if len(s.Latencies) == 0 {
		return sum
	}

	tmp := make([]time.Duration, len(s.Latencies))
	copy(tmp, s.Latencies)
	sort.Slice(tmp, func(i, j int) bool { return tmp[i] < tmp[j] })
	pick := func(p float64) float64 {
		return float64(tmp[int(float64(len(tmp)-1)*p)].Microseconds()) / 1000
	}

	sum.P50 = pick(0.50)
	sum.P90 = pick(0.90)
	sum.P95 = pick(0.95)
	sum.P99 = pick(0.99)
	return sum
}
