// Command postingsload drives a running postingsd with a mix of posting
// writes and boolean searches, then prints latency and status summaries.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/ingest"
	"golang.org/x/sync/errgroup"
)

var vocabulary = []string{
	"go", "rust", "kafka", "redis", "postgres", "index", "query", "merge",
	"union", "intersect", "shard", "cache", "latency", "search", "posting",
}

type loadConfig struct {
	baseURL     string
	concurrency int
	duration    time.Duration
	writeRatio  float64
	maxDocID    int
}

func main() {
	var cfg loadConfig
	flag.StringVar(&cfg.baseURL, "url", "http://localhost:8080", "base URL of postingsd")
	flag.IntVar(&cfg.concurrency, "concurrency", 10, "number of concurrent workers")
	flag.DurationVar(&cfg.duration, "duration", 30*time.Second, "test duration")
	flag.Float64Var(&cfg.writeRatio, "write-ratio", 0.2, "fraction of requests that post events")
	flag.IntVar(&cfg.maxDocID, "docs", 10000, "document ids are drawn from [0, docs)")
	flag.Parse()

	fmt.Printf("target %s, %d workers, %s, write ratio %.2f\n\n",
		cfg.baseURL, cfg.concurrency, cfg.duration, cfg.writeRatio)

	stats := NewStats()
	start := time.Now()
	if err := run(cfg, stats); err != nil {
		fmt.Fprintf(os.Stderr, "load test failed: %v\n", err)
		os.Exit(1)
	}
	stats.Report(os.Stdout, time.Since(start))
	if stats.Total() == 0 {
		fmt.Fprintln(os.Stderr, "no requests completed; is postingsd running?")
		os.Exit(1)
	}
}

func run(cfg loadConfig, stats *Stats) error {
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.concurrency * 2,
			MaxIdleConnsPerHost: cfg.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for w := range cfg.concurrency {
		rng := rand.New(rand.NewPCG(uint64(w), uint64(time.Now().UnixNano())))
		g.Go(func() error {
			for ctx.Err() == nil {
				var req *http.Request
				var endpoint string
				var err error
				if rng.Float64() < cfg.writeRatio {
					endpoint = "POST /api/v1/postings"
					req, err = postRequest(ctx, cfg, randomEvent(rng, cfg.maxDocID))
				} else {
					endpoint = "GET /api/v1/search"
					req, err = http.NewRequestWithContext(ctx, http.MethodGet,
						cfg.baseURL+"/api/v1/search?q="+url.QueryEscape(randomQuery(rng)), nil)
				}
				if err != nil {
					return err
				}
				begin := time.Now()
				resp, err := client.Do(req)
				if ctx.Err() != nil {
					return nil
				}
				if err != nil {
					stats.Record(endpoint, time.Since(begin), 0, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.Record(endpoint, time.Since(begin), resp.StatusCode, nil)
			}
			return nil
		})
	}
	return g.Wait()
}

func postRequest(ctx context.Context, cfg loadConfig, e ingest.PostingEvent) (*http.Request, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.baseURL+"/api/v1/postings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// randomEvent is mostly adds, with removals to keep lists from only growing.
func randomEvent(rng *rand.Rand, maxDocID int) ingest.PostingEvent {
	e := ingest.PostingEvent{
		Op:    ingest.OpAdd,
		Term:  vocabulary[rng.IntN(len(vocabulary))],
		DocID: rng.IntN(maxDocID),
	}
	switch n := rng.IntN(10); {
	case n == 0:
		e.Op = ingest.OpRemove
	case n == 1:
		e.Op = ingest.OpRemoveDoc
		e.Term = ""
	}
	return e
}

func randomQuery(rng *rand.Rand) string {
	a := vocabulary[rng.IntN(len(vocabulary))]
	b := vocabulary[rng.IntN(len(vocabulary))]
	c := vocabulary[rng.IntN(len(vocabulary))]
	switch rng.IntN(3) {
	case 0:
		return a + " AND " + b
	case 1:
		return a + " OR " + b
	default:
		return a + " OR " + b + " NOT " + c
	}
}
