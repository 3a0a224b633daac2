package batch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/YallaPapi/pubscrape-sub007/pkg/config"
	"github.com/YallaPapi/pubscrape-sub007/pkg/models"
)

func sampleResult(domain string) *Result {
	session := models.NewCrawlSession("id-"+domain, domain, "https://"+domain+"/", 5)
	session.Finalize(models.SessionStatusCompleted)
	return &Result{
		Domain:  domain,
		Session: session,
		Report:  &models.SessionReport{SessionID: session.SessionID, Domain: domain},
	}
}

func TestWriteResults_RoundTrip(t *testing.T) {
	c := NewCoordinator(&stubRunner{}, config.BatchConfig{}, nil, testLogger())
	results := map[string]*Result{
		"b.com": sampleResult("b.com"),
		"a.com": sampleResult("a.com"),
	}

	path := filepath.Join(t.TempDir(), "out", "batch.json")
	if err := c.WriteResults(results, path); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	var out exportFile
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(out.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(out.Results))
	}
	if out.Results[0].Domain != "a.com" || out.Results[1].Domain != "b.com" {
		t.Errorf("results not in stable domain order: %s, %s", out.Results[0].Domain, out.Results[1].Domain)
	}
}

func TestWriteSessionFile_SanitizesDomain(t *testing.T) {
	c := NewCoordinator(&stubRunner{}, config.BatchConfig{}, nil, testLogger())
	dir := t.TempDir()

	path, err := c.WriteSessionFile(sampleResult("shop.example.com:8080"), dir)
	if err != nil {
		t.Fatalf("WriteSessionFile: %v", err)
	}

	want := filepath.Join(dir, "shop.example.com_8080_session.json")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading session file: %v", err)
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("session file is not valid JSON: %v", err)
	}
	if r.Domain != "shop.example.com:8080" {
		t.Errorf("domain = %q, want the original unsanitized value", r.Domain)
	}
	if r.Session == nil || r.Session.Status != models.SessionStatusCompleted {
		t.Error("session did not survive the round trip")
	}
}

func TestWriteSessionFile_CreatesDirectory(t *testing.T) {
	c := NewCoordinator(&stubRunner{}, config.BatchConfig{}, nil, testLogger())
	dir := filepath.Join(t.TempDir(), "state", "sessions")

	if _, err := c.WriteSessionFile(sampleResult("a.com"), dir); err != nil {
		t.Fatalf("WriteSessionFile into missing directory: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.com_session.json")); err != nil {
		t.Errorf("expected session file under created directory: %v", err)
	}
}
