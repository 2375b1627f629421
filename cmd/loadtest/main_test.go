package main

import (
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

func withCLIArgs(t *testing.T, args []string, fn func()) {
	t.Helper()

	oldArgs := os.Args
	oldCommandLine := flag.CommandLine

	os.Args = append([]string{"loadtest"}, args...)
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flag.CommandLine = fs

	defer func() {
		os.Args = oldArgs
		flag.CommandLine = oldCommandLine
	}()

	fn()
}

// fakeOrderAPI имитирует HTTP API заказов для нагрузочных сценариев.
type fakeOrderAPI struct {
	mu      sync.Mutex
	creates int
	gets    int
	updates int
	deletes int

	createStatus int
	emptyID      bool
}

func (f *fakeOrderAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		f.mu.Lock()
		f.creates++
		n := f.creates
		f.mu.Unlock()

		var body createOrderBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.CustomerName == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		status := http.StatusCreated
		if f.createStatus != 0 {
			status = f.createStatus
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusCreated {
			id := ""
			if !f.emptyID {
				id = "order-" + string(rune('0'+n%10))
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
		}
	})
	mux.HandleFunc("/api/orders/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			f.gets++
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "order-1"})
		case http.MethodPut:
			f.updates++
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "order-1"})
		case http.MethodDelete:
			f.deletes++
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	return mux
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    loadMode
		wantErr string
	}{
		{name: "create", input: "create", want: modeCreate},
		{name: "create-get", input: "create-get", want: modeCreateGet},
		{name: "create-update-delete", input: "create-update-delete", want: modeCreateUpdateDelete},
		{name: "unsupported", input: "bad", wantErr: "unsupported mode"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseMode(tc.input)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("unexpected mode: got %q want %q", got, tc.want)
			}
		})
	}
}

func TestParseConfig(t *testing.T) {
	t.Run("count mode", func(t *testing.T) {
		withCLIArgs(t, []string{
			"-addr=http://127.0.0.1:8080",
			"-mode=create-get",
			"-total=12",
			"-concurrency=3",
			"-timeout=2s",
			"-delete-rate=10",
			"-product=Widget",
			"-price=9.99",
			"-qty=2",
			"-customer-tag=stage",
			"-output=/tmp/out.json",
		}, func() {
			cfg, err := parseConfig()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !cfg.totalSet {
				t.Fatalf("expected totalSet=true")
			}
			if cfg.duration != 0 {
				t.Fatalf("expected zero duration, got %s", cfg.duration)
			}
			if cfg.mode != modeCreateGet {
				t.Fatalf("unexpected mode: %s", cfg.mode)
			}
			if cfg.total != 12 || cfg.concurrency != 3 || cfg.qty != 2 {
				t.Fatalf("unexpected numeric config: %+v", cfg)
			}
			if cfg.timeout != 2*time.Second {
				t.Fatalf("unexpected timeout: %s", cfg.timeout)
			}
		})
	})

	t.Run("duration mode", func(t *testing.T) {
		withCLIArgs(t, []string{
			"-duration=3s",
			"-concurrency=2",
		}, func() {
			cfg, err := parseConfig()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.duration != 3*time.Second {
				t.Fatalf("unexpected duration: %s", cfg.duration)
			}
			if cfg.totalSet {
				t.Fatalf("expected totalSet=false when -total was not provided")
			}
		})
	})

	t.Run("validation errors", func(t *testing.T) {
		tests := []struct {
			name    string
			args    []string
			wantErr string
		}{
			{name: "invalid duration", args: []string{"-duration=bad"}, wantErr: "parse duration"},
			{name: "negative duration", args: []string{"-duration=-1s"}, wantErr: "duration must be >= 0"},
			{name: "invalid delete rate", args: []string{"-delete-rate=101"}, wantErr: "delete-rate must be between 0 and 100"},
			{name: "empty total", args: []string{"-duration=0s", "-total=0"}, wantErr: "total must be > 0"},
			{name: "bad addr", args: []string{"-addr=localhost:8080"}, wantErr: "addr must be an http(s) URL"},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				withCLIArgs(t, tc.args, func() {
					_, err := parseConfig()
					if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
						t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
					}
				})
			})
		}
	})
}

func TestDispatchJobs(t *testing.T) {
	t.Run("count mode", func(t *testing.T) {
		jobs := make(chan int, 16)
		dispatchJobs(jobs, config{total: 5})

		var got []int
		for v := range jobs {
			got = append(got, v)
		}
		if !slices.Equal(got, []int{0, 1, 2, 3, 4}) {
			t.Fatalf("unexpected jobs sequence: %v", got)
		}
	})

	t.Run("duration mode", func(t *testing.T) {
		jobs := make(chan int, 32)
		done := make(chan struct{})
		go func() {
			dispatchJobs(jobs, config{duration: 20 * time.Millisecond})
			close(done)
		}()

		count := 0
		for range jobs {
			count++
		}
		<-done
		if count == 0 {
			t.Fatalf("expected non-zero jobs for duration mode")
		}
	})

	t.Run("duration with explicit max total", func(t *testing.T) {
		jobs := make(chan int, 16)
		dispatchJobs(jobs, config{duration: time.Second, total: 3, totalSet: true})
		count := 0
		for range jobs {
			count++
		}
		if count != 3 {
			t.Fatalf("expected 3 jobs, got %d", count)
		}
	})
}

func TestCollectorAndReport(t *testing.T) {
	c := newCollector()
	c.record("scenario", 10*time.Millisecond, http.StatusOK)
	c.record("scenario", 20*time.Millisecond, http.StatusInternalServerError)
	c.record("CreateOrder", 15*time.Millisecond, http.StatusCreated)
	c.record("CreateOrder", 5*time.Millisecond, 0)

	snap, ok := c.snapshot("scenario")
	if !ok {
		t.Fatalf("scenario snapshot missing")
	}
	if snap.Calls != 2 || snap.Success != 1 || snap.Failed != 1 {
		t.Fatalf("unexpected scenario snapshot: %+v", snap)
	}
	if snap.Codes["200"] != 1 || snap.Codes["500"] != 1 {
		t.Fatalf("unexpected codes: %+v", snap.Codes)
	}

	createSnap, ok := c.snapshot("CreateOrder")
	if !ok {
		t.Fatalf("CreateOrder snapshot missing")
	}
	if createSnap.Codes["transport_error"] != 1 {
		t.Fatalf("expected transport_error code, got: %+v", createSnap.Codes)
	}

	r := c.buildReport(time.Now(), 2*time.Second)
	if r.TotalScenarios != 2 || r.FailedScenarios != 1 {
		t.Fatalf("unexpected report totals: %+v", r)
	}
	if r.RPS <= 0 {
		t.Fatalf("expected positive rps, got %f", r.RPS)
	}
	if _, ok := r.Methods["CreateOrder"]; !ok {
		t.Fatalf("expected CreateOrder stats in report")
	}
}

func TestUtilityFunctions(t *testing.T) {
	if got := statusLabel(0); got != "transport_error" {
		t.Fatalf("statusLabel(0) = %s", got)
	}
	if got := statusLabel(http.StatusCreated); got != "201" {
		t.Fatalf("unexpected status label: %s", got)
	}

	if got := ratio(1, 4); got != 0.25 {
		t.Fatalf("ratio mismatch: %f", got)
	}
	if got := ratio(1, 0); got != 0 {
		t.Fatalf("ratio with zero total must be 0, got %f", got)
	}

	values := []float64{10, 20, 30, 40}
	summary := buildLatencySummary(values)
	if summary.P50 <= 0 || summary.P95 <= 0 || summary.Max != 40 {
		t.Fatalf("unexpected latency summary: %+v", summary)
	}
	if p := percentile(values, 95); p <= 0 {
		t.Fatalf("unexpected percentile: %f", p)
	}

	if got := runTarget(config{total: 50}); got != "count:50" {
		t.Fatalf("unexpected run target: %s", got)
	}
	if got := runTarget(config{duration: 2 * time.Second}); got != "duration:2s" {
		t.Fatalf("unexpected duration run target: %s", got)
	}
	if got := runTarget(config{duration: 2 * time.Second, total: 10, totalSet: true}); got != "duration:2s,max-total:10" {
		t.Fatalf("unexpected capped duration run target: %s", got)
	}

	if shouldDeleteScenario(5, 0) {
		t.Fatalf("delete-rate=0 must never delete")
	}
	if !shouldDeleteScenario(5, 100) {
		t.Fatalf("delete-rate=100 must always delete")
	}
	if !shouldDeleteScenario(3, 10) || shouldDeleteScenario(42, 10) {
		t.Fatalf("unexpected delete-rate sampling")
	}
}

func TestWriteJSONReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")

	sample := report{TotalScenarios: 2, SuccessScenarios: 2}
	if err := writeJSONReport(path, sample); err != nil {
		t.Fatalf("writeJSONReport error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}

	var decoded report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if decoded.TotalScenarios != 2 || decoded.SuccessScenarios != 2 {
		t.Fatalf("unexpected decoded report: %+v", decoded)
	}
}

func TestRunScenario(t *testing.T) {
	api := &fakeOrderAPI{}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	c := newCollector()
	cfg := config{
		baseURL:     srv.URL,
		mode:        modeCreateUpdateDelete,
		timeout:     time.Second,
		product:     "Widget",
		price:       "9.99",
		qty:         1,
		customerTag: "load",
	}

	if err := runScenario(srv.Client(), cfg, 1, "run-1", c); err != nil {
		t.Fatalf("runScenario failed: %v", err)
	}
	if api.creates != 1 || api.gets != 1 || api.updates != 1 || api.deletes != 1 {
		t.Fatalf("unexpected call counts: %+v", api)
	}

	snap, ok := c.snapshot("CreateOrder")
	if !ok || snap.Calls != 1 || snap.Success != 1 {
		t.Fatalf("CreateOrder metric mismatch: %+v", snap)
	}

	createOnly := cfg
	createOnly.mode = modeCreate
	if err := runScenario(srv.Client(), createOnly, 2, "run-2", c); err != nil {
		t.Fatalf("create-only scenario failed: %v", err)
	}
	if api.gets != 1 {
		t.Fatalf("create mode must not call GetOrder, gets=%d", api.gets)
	}

	failingAPI := &fakeOrderAPI{createStatus: http.StatusServiceUnavailable}
	failingSrv := httptest.NewServer(failingAPI.handler())
	defer failingSrv.Close()

	failCfg := cfg
	failCfg.baseURL = failingSrv.URL
	if err := runScenario(failingSrv.Client(), failCfg, 3, "run-3", c); err == nil || !strings.Contains(err.Error(), "status 503") {
		t.Fatalf("expected 503 error, got %v", err)
	}

	emptyAPI := &fakeOrderAPI{emptyID: true}
	emptySrv := httptest.NewServer(emptyAPI.handler())
	defer emptySrv.Close()

	emptyCfg := cfg
	emptyCfg.baseURL = emptySrv.URL
	if err := runScenario(emptySrv.Client(), emptyCfg, 4, "run-4", c); err == nil || !strings.Contains(err.Error(), "empty order id") {
		t.Fatalf("expected empty id error, got %v", err)
	}
}

func TestPrintReport(t *testing.T) {
	r := report{
		TotalScenarios:   2,
		SuccessScenarios: 2,
		Methods: map[string]methodReport{
			"scenario":    {Calls: 2, Success: 2},
			"CreateOrder": {Calls: 2, Success: 2},
		},
	}

	out := captureStdout(t, func() {
		printReport(r, config{mode: modeCreate, total: 2})
	})

	if !strings.Contains(out, "Load test summary") {
		t.Fatalf("expected summary header, got: %s", out)
	}
	if !strings.Contains(out, "CreateOrder") {
		t.Fatalf("expected method section, got: %s", out)
	}
}

func TestMainSmoke(t *testing.T) {
	api := &fakeOrderAPI{}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	dir := t.TempDir()
	outPath := filepath.Join(dir, "main-report.json")

	withCLIArgs(t, []string{
		"-addr=" + srv.URL,
		"-mode=create",
		"-total=5",
		"-concurrency=2",
		"-timeout=2s",
		"-output=" + outPath,
	}, func() {
		main()
	})

	if api.creates != 5 {
		t.Fatalf("expected 5 create calls, got %d", api.creates)
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Fatalf("expected report file from main: %v", err)
	}
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = oldStdout

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read captured output: %v", err)
	}
	_ = r.Close()

	return string(data)
}
