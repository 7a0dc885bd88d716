// Command loadgen drives staged load against the order API and reports
// request count and p95 latency.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	domain "github.com/Ben-Nachmanson/Fill-Flow/internal/domain/order/v1"
	"github.com/Ben-Nachmanson/Fill-Flow/internal/pricing"
)

type stage struct {
	duration time.Duration
	vus      int
}

type recorder struct {
	mu        sync.Mutex
	latencies []time.Duration
	errors    int
}

func (r *recorder) record(latency time.Duration, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latencies = append(r.latencies, latency)
	if failed {
		r.errors++
	}
}

func (r *recorder) report() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.latencies) == 0 {
		fmt.Println("No requests recorded.")
		return
	}

	sorted := make([]time.Duration, len(r.latencies))
	copy(sorted, r.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(float64(len(sorted))*0.95) - 1
	if idx < 0 {
		idx = 0
	}

	fmt.Printf("Requests: %d\n", len(sorted))
	fmt.Printf("Errors: %d\n", r.errors)
	fmt.Printf("P95 latency (ms): %.2f\n", float64(sorted[idx].Microseconds())/1000)
}

func main() {
	var (
		baseURL   = flag.String("base-url", "http://localhost:8080", "API base URL")
		stage1Dur = flag.Duration("stage1-dur", 30*time.Second, "stage 1 duration")
		stage1VUs = flag.Int("stage1-vus", 50, "stage 1 virtual users")
		stage2Dur = flag.Duration("stage2-dur", 60*time.Second, "stage 2 duration")
		stage2VUs = flag.Int("stage2-vus", 50, "stage 2 virtual users")
		stage3Dur = flag.Duration("stage3-dur", 20*time.Second, "cooldown duration")
		stage3VUs = flag.Int("stage3-vus", 0, "cooldown virtual users")
		sleep     = flag.Duration("request-sleep", 50*time.Millisecond, "pause between requests per virtual user")
	)
	flag.Parse()

	stages := []stage{
		{*stage1Dur, *stage1VUs},
		{*stage2Dur, *stage2VUs},
		{*stage3Dur, *stage3VUs},
	}

	feed := pricing.NewRandomWalkFeed(nil)
	symbols := feed.Symbols()
	if len(symbols) == 0 {
		fmt.Fprintln(os.Stderr, "price feed has no symbols")
		os.Exit(1)
	}

	rec := &recorder{}
	client := &http.Client{Timeout: 10 * time.Second}

	for _, st := range stages {
		fmt.Printf("Running stage: %d VUs for %s\n", st.vus, st.duration)
		runStage(client, *baseURL, st, feed, symbols, rec, *sleep)
	}

	rec.report()
}

func runStage(client *http.Client, baseURL string, st stage, feed *pricing.RandomWalkFeed, symbols []string, rec *recorder, sleep time.Duration) {
	if st.vus <= 0 {
		time.Sleep(st.duration)
		return
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < st.vus; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vuLoop(client, baseURL, feed, symbols, rec, stop, sleep)
		}()
	}

	time.Sleep(st.duration)
	close(stop)
	wg.Wait()
}

func vuLoop(client *http.Client, baseURL string, feed *pricing.RandomWalkFeed, symbols []string, rec *recorder, stop <-chan struct{}, sleep time.Duration) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		symbol := symbols[rand.Intn(len(symbols))]
		side := domain.SideBuy
		if rand.Float64() > 0.5 {
			side = domain.SideSell
		}

		req := domain.NewOrderRequest{
			Symbol: symbol,
			Side:   side,
			Qty:    float64(1 + rand.Intn(10)),
			Price:  feed.Tick(symbol),
		}

		payload, err := json.Marshal(req)
		if err != nil {
			rec.record(0, true)
			continue
		}

		start := time.Now()
		resp, err := client.Post(baseURL+"/orders", "application/json", bytes.NewReader(payload))
		latency := time.Since(start)
		if err != nil {
			rec.record(latency, true)
		} else {
			resp.Body.Close()
			rec.record(latency, resp.StatusCode != http.StatusOK)
		}

		select {
		case <-stop:
			return
		case <-time.After(sleep):
		}
	}
}
