package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YallaPapi/pubscrape-sub007/pkg/models"
	"github.com/YallaPapi/pubscrape-sub007/pkg/utils"
)

func TestAppConfig_Validate_Defaults(t *testing.T) {
	cfg := AppConfig{Crawl: CrawlConfig{MaxPages: 10}}

	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, time.Second, cfg.DefaultCrawlDelay)
	assert.Equal(t, 60*time.Second, cfg.MaxCrawlDelay)
	assert.Equal(t, 30*time.Minute, cfg.PolicyCacheTTL)
	assert.Equal(t, "./crawl_state", cfg.StateDir)
	assert.Equal(t, 4, cfg.Batch.ConcurrencyLimit)
	assert.Equal(t, 1*time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 5*time.Second, cfg.Retry.FixedDelay)
	assert.Equal(t, 45*time.Second, cfg.HTTPClientSettings.Timeout)
}

func TestAppConfig_Validate_BatchWarning(t *testing.T) {
	cfg := AppConfig{Crawl: CrawlConfig{MaxPages: 5}}
	cfg.Batch.ConcurrencyLimit = 0

	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)
	assert.Equal(t, 4, cfg.Batch.ConcurrencyLimit)
}

func TestAppConfig_Validate_RetryOrdering(t *testing.T) {
	cfg := AppConfig{Crawl: CrawlConfig{MaxPages: 5}}
	cfg.Retry.BaseDelay = 2 * time.Minute
	cfg.Retry.MaxDelay = 10 * time.Second

	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)
	assert.Equal(t, cfg.Retry.MaxDelay, cfg.Retry.BaseDelay)
}

func TestCrawlConfig_Validate_Defaults(t *testing.T) {
	cfg := CrawlConfig{MaxPages: 25}

	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, []models.PageType{models.PageTypeContact, models.PageTypeAbout}, cfg.PriorityTypes)
	assert.Equal(t, 30*time.Second, cfg.TimeoutPerPage)
	assert.Equal(t, 50, cfg.MaxLinksPerPage)
	assert.Equal(t, 0.3, cfg.MinConfidenceThreshold)
	assert.True(t, cfg.LinkDiscoveryEnabled())
}

func TestCrawlConfig_Validate_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  CrawlConfig
	}{
		{"negative max_pages", CrawlConfig{MaxPages: -1}},
		{"unknown priority type", CrawlConfig{MaxPages: 1, PriorityTypes: []models.PageType{"blog"}}},
		{"threshold above 1", CrawlConfig{MaxPages: 1, MinConfidenceThreshold: 1.5}},
		{"negative threshold", CrawlConfig{MaxPages: 1, MinConfidenceThreshold: -0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, utils.ErrConfigValidation))
		})
	}
}

func TestCrawlConfig_Validate_ZeroPagesWarns(t *testing.T) {
	cfg := CrawlConfig{MaxPages: 0}
	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)
}

func TestCrawlConfig_LinkDiscoveryEnabled(t *testing.T) {
	disabled := false
	cfg := CrawlConfig{MaxPages: 1, EnableLinkDiscovery: &disabled}
	assert.False(t, cfg.LinkDiscoveryEnabled())

	enabled := true
	cfg.EnableLinkDiscovery = &enabled
	assert.True(t, cfg.LinkDiscoveryEnabled())
}
