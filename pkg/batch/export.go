package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/YallaPapi/pubscrape-sub007/pkg/models"
	"github.com/YallaPapi/pubscrape-sub007/pkg/utils"
)

// exportFile is the serialized shape of one batch run
type exportFile struct {
	Results       []*Result               `json:"results"`
	PriorityLinks []models.DiscoveredLink `json:"priority_links,omitempty"`
}

// WriteResults serializes a batch result map to a JSON file, domains in
// stable order, with the aggregated priority links appended. The file is the
// handoff point for downstream CSV/JSON export tooling.
func (c *Coordinator) WriteResults(results map[string]*Result, path string) error {
	domains := make([]string, 0, len(results))
	for d := range results {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	out := exportFile{PriorityLinks: c.PriorityLinks(results)}
	for _, d := range domains {
		out.Results = append(out.Results, results[d])
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling batch results: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing batch results to %s: %w", path, err)
	}
	c.log.WithField("path", path).Info("Batch results written")
	return nil
}

// WriteSessionFile writes one domain's session and report as indented JSON
// under dir. The file name is derived from the domain, sanitized for the
// filesystem. Returns the written path.
func (c *Coordinator) WriteSessionFile(r *Result, dir string) (string, error) {
	path := filepath.Join(dir, utils.SanitizeFilename(r.Domain)+"_session.json")

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling session for %s: %w", r.Domain, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating session directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing session file %s: %w", path, err)
	}
	return path, nil
}
