//go:build integration || !unit

package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"

	"hotel_bookings/internal/adapters/hotelapi"
	server "hotel_bookings/internal/adapters/http_server"
	redisad "hotel_bookings/internal/adapters/redis"
	"hotel_bookings/internal/app"
	"hotel_bookings/internal/domain"
	mysqlrepo "hotel_bookings/internal/storage/mysql"
)

// ---------- helpers ----------

var upstreamHotels = []map[string]any{
	{"id": 11, "acf": map[string]any{"hotel_name": "Palm Grove Goa", "hotel_address": "Candolim", "hotel_rating": 4, "rate-per-night": 180, "nightly_rate": 999, "occupancy": 2}},
	{"id": 12, "acf": map[string]any{"hotel_name": "Lake Side", "hotel_address": "Udaipur", "hotel_rating": 5, "rate-per-night": "not a number", "nightly_rate": 120, "occupancy": 4}},
	{"id": 13, "acf": map[string]any{"hotel_name": "Goa Sands", "hotel_address": "Calangute", "hotel_rating": 3, "rate-per-night": 90, "occupancy": 3, "meal_paln": "Breakfast"}},
}

// upstream serves the fixture list and counts calls.
func upstream(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/hotels" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(upstreamHotels)
	}))
	t.Cleanup(ts.Close)
	return ts, &hits
}

func stack(t *testing.T, upstreamURL string, audit domain.SearchLog, history domain.SearchHistory) *httptest.Server {
	t.Helper()
	client, err := hotelapi.New(upstreamURL, "", 100, 2*time.Second)
	if err != nil {
		t.Fatalf("hotelapi.New: %v", err)
	}

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	store := redisad.NewWithClient(rc, time.Minute)

	listing := app.NewListingService(client, store, audit, 4, 2*time.Second)
	t.Cleanup(listing.Close)

	renderer, err := server.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	srv := server.New()
	srv.MountHandlers(&server.Handlers{L: listing, R: renderer, History: history, Grace: time.Second})

	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

func page(t *testing.T, c *http.Client, url string) (int, string) {
	t.Helper()
	res, err := c.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res.StatusCode, string(b)
}

// ---------- the tests ----------

func TestHTTP_EndToEnd_ListingAndDetails(t *testing.T) {
	up, hits := upstream(t)
	ts := stack(t, up.URL, nil, nil)
	c := browser(t)

	status, body := page(t, c, ts.URL+"/")
	if status != http.StatusOK {
		t.Fatalf("status %d", status)
	}
	// ascending by reconciled rate: 90, 120, 180
	order := []string{"Goa Sands</h3>", "Lake Side</h3>", "Palm Grove Goa</h3>"}
	last := -1
	for _, name := range order {
		i := strings.Index(body, name)
		if i <= last {
			t.Fatalf("unexpected order around %q:\n%s", name, body)
		}
		last = i
	}
	if !strings.Contains(body, "Breakfast") {
		t.Fatalf("meal plan from the misspelled key should render")
	}

	_, body = page(t, c, ts.URL+"/?destination=+GOA+&sortOrder=desc")
	if !strings.Contains(body, "Palm Grove") || !strings.Contains(body, "Goa Sands") || strings.Contains(body, "Lake Side") {
		t.Fatalf("destination filter failed:\n%s", body)
	}
	if strings.Index(body, "Palm Grove Goa</h3>") > strings.Index(body, "Goa Sands</h3>") {
		t.Fatalf("expected descending order")
	}

	status, body = page(t, c, ts.URL+"/hotel/11")
	if status != http.StatusOK || !strings.Contains(body, "Palm Grove") || !strings.Contains(body, "180.00") {
		t.Fatalf("details: %d\n%s", status, body)
	}
	if status, _ := page(t, c, ts.URL+"/hotel/12"); status != http.StatusNotFound {
		t.Fatalf("filtered-out hotel should 404, got %d", status)
	}

	// a second browser has its own view state
	status, _ = page(t, browser(t), ts.URL+"/hotel/11")
	if status != http.StatusNotFound {
		t.Fatalf("fresh client should not see another client's results, got %d", status)
	}

	if n := atomic.LoadInt32(hits); n != 2 {
		t.Fatalf("expected one upstream call per search, got %d", n)
	}
}

func TestHTTP_EndToEnd_JSONAPI(t *testing.T) {
	up, _ := upstream(t)
	ts := stack(t, up.URL, nil, nil)

	res, err := http.Get(ts.URL + "/api/hotels?minPrice=100&maxPrice=200&sortOrder=asc")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	var got []domain.Hotel
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].ID != 12 || got[1].ID != 11 {
		t.Fatalf("unexpected body: %+v", got)
	}
	if got[1].Attrs.NightlyRate != 180 {
		t.Fatalf("canonical rate should win, got %v", got[1].Attrs.NightlyRate)
	}
}

func TestHTTP_EndToEnd_UpstreamDown(t *testing.T) {
	up, _ := upstream(t)
	ts := stack(t, up.URL, nil, nil)
	c := browser(t)

	if _, body := page(t, c, ts.URL+"/"); !strings.Contains(body, "Palm Grove") {
		t.Fatalf("initial listing missing")
	}
	up.Close()

	// connection errors are retried, so the failed search may outlive the render grace
	_, body := page(t, c, ts.URL+"/?destination=udaipur")
	deadline := time.Now().Add(5 * time.Second)
	for strings.Contains(body, "Loading...") && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
		_, body = page(t, c, ts.URL+"/")
	}
	if !strings.Contains(body, "Palm Grove") || strings.Contains(body, "Loading...") {
		t.Fatalf("previous results should stay after a failed search:\n%s", body)
	}
}

// ---------- with the search audit log ----------

func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return filepath.Join("..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir()
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func TestHTTP_EndToEnd_SearchHistory(t *testing.T) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=hotels",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "hotels")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	applyMigrations(t, db)

	repo := mysqlrepo.New(db)
	up, _ := upstream(t)
	ts := stack(t, up.URL, repo, repo)
	c := browser(t)

	page(t, c, ts.URL+"/")
	page(t, c, ts.URL+"/?destination=goa")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/searches?limit=10", nil)
	res, err := c.Do(req)
	if err != nil {
		t.Fatalf("GET searches: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	var recs []domain.SearchRecord
	if err := json.NewDecoder(res.Body).Decode(&recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 searches, got %+v", recs)
	}
	// newest first
	if recs[0].Destination == nil || *recs[0].Destination != "goa" || recs[0].Fetched != 3 || recs[0].Shown != 2 {
		t.Fatalf("unexpected latest search: %+v", recs[0])
	}
}
