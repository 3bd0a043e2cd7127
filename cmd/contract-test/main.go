// main.go — catalogd HTTP API contract test runner.
//
// A black-box smoke test against a running HTTP Service: verifies
// response shapes, HTTP status codes, required fields, and auth
// behavior without needing to import the service under test.
//
// Usage:
//
//	CATALOGD_BASE_URL=http://localhost:8080 CATALOGD_ADMIN_PASSWORD=secret go run ./cmd/contract-test/
//
// Exit codes:
//
//	0 = all tests pass
//	1 = one or more tests failed
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// --- Config ---

type config struct {
	BaseURL       string
	AdminPassword string
	Timeout       time.Duration
}

func loadConfig() config {
	base := os.Getenv("CATALOGD_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	return config{
		BaseURL:       strings.TrimRight(base, "/"),
		AdminPassword: os.Getenv("CATALOGD_ADMIN_PASSWORD"),
		Timeout:       15 * time.Second,
	}
}

// --- Test runner ---

type testResult struct {
	Name   string
	Pass   bool
	Status int
	Notes  string
}

var results []testResult
var adminToken string

func run(name string, fn func(cfg config, client *http.Client) (bool, int, string), cfg config, client *http.Client) {
	pass, status, notes := fn(cfg, client)
	results = append(results, testResult{name, pass, status, notes})
	icon := "PASS"
	if !pass {
		icon = "FAIL"
	}
	fmt.Printf("[%s] %s (HTTP %d) — %s\n", icon, name, status, notes)
}

// --- Helper: HTTP request ---

func doRequest(client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		bodyReader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func adminHeader() map[string]string {
	return map[string]string{"Authorization": "Bearer " + adminToken}
}

// --- Tests ---

// T1: GET /health — public, no auth
func testHealth(cfg config, client *http.Client) (bool, int, string) {
	resp, body, err := doRequest(client, "GET", cfg.BaseURL+"/health", nil, nil)
	if err != nil {
		return false, 0, "connection error: " + err.Error()
	}
	if resp.StatusCode != 200 {
		return false, resp.StatusCode, fmt.Sprintf("expected 200, got %d. Body: %s", resp.StatusCode, string(body))
	}
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return false, resp.StatusCode, "invalid JSON: " + err.Error()
	}
	if m["status"] != "ok" {
		return false, resp.StatusCode, "status field is not \"ok\""
	}
	return true, resp.StatusCode, "health OK"
}

// T2: GET /info — reports version and wired-component features
func testInfo(cfg config, client *http.Client) (bool, int, string) {
	resp, body, err := doRequest(client, "GET", cfg.BaseURL+"/info", nil, nil)
	if err != nil {
		return false, 0, "connection error: " + err.Error()
	}
	if resp.StatusCode != 200 {
		return false, resp.StatusCode, fmt.Sprintf("expected 200, got %d", resp.StatusCode)
	}
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return false, resp.StatusCode, "invalid JSON: " + err.Error()
	}
	if _, ok := m["features"]; !ok {
		return false, resp.StatusCode, "missing features field"
	}
	return true, resp.StatusCode, "info shape OK"
}

// T3: GET /dates — public catalog listing
func testDates(cfg config, client *http.Client) (bool, int, string) {
	resp, body, err := doRequest(client, "GET", cfg.BaseURL+"/dates/", nil, nil)
	if err != nil {
		return false, 0, "connection error: " + err.Error()
	}
	if resp.StatusCode != 200 {
		return false, resp.StatusCode, fmt.Sprintf("expected 200, got %d. Body: %s", resp.StatusCode, string(body))
	}
	var dates []string
	if err := json.Unmarshal(body, &dates); err != nil {
		return false, resp.StatusCode, "response is not a JSON array: " + err.Error()
	}
	return true, resp.StatusCode, fmt.Sprintf("%d distinct release dates", len(dates))
}

// T4: GET /search — requires a q parameter
func testSearch(cfg config, client *http.Client) (bool, int, string) {
	resp, body, err := doRequest(client, "GET", cfg.BaseURL+"/search?q=test", nil, nil)
	if err != nil {
		return false, 0, "connection error: " + err.Error()
	}
	if resp.StatusCode != 200 {
		return false, resp.StatusCode, fmt.Sprintf("expected 200, got %d. Body: %s", resp.StatusCode, string(body))
	}
	var albums []any
	if err := json.Unmarshal(body, &albums); err != nil {
		return false, resp.StatusCode, "response is not a JSON array: " + err.Error()
	}
	return true, resp.StatusCode, fmt.Sprintf("%d results", len(albums))
}

// T5: GET a protected admin route with no token → 401 + error shape
func testAdminRequiresAuth(cfg config, client *http.Client) (bool, int, string) {
	resp, body, err := doRequest(client, "GET", cfg.BaseURL+"/admin/summary", nil, nil)
	if err != nil {
		return false, 0, "connection error: " + err.Error()
	}
	if resp.StatusCode != 401 {
		return false, resp.StatusCode, fmt.Sprintf("expected 401 with no token, got %d", resp.StatusCode)
	}
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return false, resp.StatusCode, "invalid JSON: " + err.Error()
	}
	if _, ok := m["error"]; !ok {
		return false, resp.StatusCode, "401 response missing error field"
	}
	return true, resp.StatusCode, "correctly rejected with no bearer token"
}

// T6: POST /auth/login — obtains an admin bearer token, used by later tests
func testAdminLogin(cfg config, client *http.Client) (bool, int, string) {
	if cfg.AdminPassword == "" {
		return false, 0, "CATALOGD_ADMIN_PASSWORD not set — skipping"
	}
	body := map[string]any{"password": cfg.AdminPassword}
	resp, respBody, err := doRequest(client, "POST", cfg.BaseURL+"/auth/login", body, nil)
	if err != nil {
		return false, 0, "connection error: " + err.Error()
	}
	if resp.StatusCode != 200 {
		return false, resp.StatusCode, fmt.Sprintf("expected 200, got %d. Body: %s", resp.StatusCode, string(respBody))
	}
	var m map[string]any
	if err := json.Unmarshal(respBody, &m); err != nil {
		return false, resp.StatusCode, "invalid JSON: " + err.Error()
	}
	token, _ := m["token"].(string)
	if token == "" {
		return false, resp.StatusCode, "missing token field"
	}
	adminToken = token
	return true, resp.StatusCode, "admin token obtained"
}

// T7: GET /admin/summary with a valid admin token
func testAdminSummary(cfg config, client *http.Client) (bool, int, string) {
	if adminToken == "" {
		return false, 0, "no admin token — skipping (login failed)"
	}
	resp, body, err := doRequest(client, "GET", cfg.BaseURL+"/admin/summary", nil, adminHeader())
	if err != nil {
		return false, 0, "connection error: " + err.Error()
	}
	if resp.StatusCode != 200 {
		return false, resp.StatusCode, fmt.Sprintf("expected 200, got %d. Body: %s", resp.StatusCode, string(body))
	}
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return false, resp.StatusCode, "invalid JSON: " + err.Error()
	}
	if _, ok := m["catalog"]; !ok {
		return false, resp.StatusCode, "summary missing catalog field"
	}
	return true, resp.StatusCode, "summary shape OK"
}

// T8: GET /playlists — playlist listing shape
func testPlaylistList(cfg config, client *http.Client) (bool, int, string) {
	resp, body, err := doRequest(client, "GET", cfg.BaseURL+"/playlists/", nil, nil)
	if err != nil {
		return false, 0, "connection error: " + err.Error()
	}
	if resp.StatusCode != 200 {
		return false, resp.StatusCode, fmt.Sprintf("expected 200, got %d. Body: %s", resp.StatusCode, string(body))
	}
	var playlists []any
	if err := json.Unmarshal(body, &playlists); err != nil {
		return false, resp.StatusCode, "response is not a JSON array: " + err.Error()
	}
	return true, resp.StatusCode, fmt.Sprintf("%d playlists", len(playlists))
}

// --- Main ---

func main() {
	cfg := loadConfig()
	client := &http.Client{Timeout: cfg.Timeout}

	fmt.Printf("catalogd HTTP API Contract Tests\n")
	fmt.Printf("Base URL: %s\n", cfg.BaseURL)
	fmt.Printf("Timestamp: %s\n\n", time.Now().UTC().Format(time.RFC3339))

	run("T1: GET /health", testHealth, cfg, client)
	run("T2: GET /info", testInfo, cfg, client)
	run("T3: GET /dates", testDates, cfg, client)
	run("T4: GET /search?q=", testSearch, cfg, client)
	run("T5: GET /admin/summary with no token -> 401", testAdminRequiresAuth, cfg, client)
	run("T6: POST /auth/login", testAdminLogin, cfg, client)
	run("T7: GET /admin/summary with admin token", testAdminSummary, cfg, client)
	run("T8: GET /playlists", testPlaylistList, cfg, client)

	pass, fail := 0, 0
	for _, r := range results {
		if r.Pass {
			pass++
		} else {
			fail++
		}
	}
	fmt.Printf("\n--- RESULTS ---\n")
	fmt.Printf("PASS: %d / %d\n", pass, len(results))
	fmt.Printf("FAIL: %d / %d\n", fail, len(results))
	if fail > 0 {
		fmt.Println("\nFailed tests:")
		for _, r := range results {
			if !r.Pass {
				fmt.Printf("  [FAIL] %s (HTTP %d) — %s\n", r.Name, r.Status, r.Notes)
			}
		}
		os.Exit(1)
	}
	fmt.Println("\nAll contract tests passed.")
}
