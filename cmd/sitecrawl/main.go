package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/YallaPapi/pubscrape-sub007/pkg/batch"
	"github.com/YallaPapi/pubscrape-sub007/pkg/classify"
	"github.com/YallaPapi/pubscrape-sub007/pkg/config"
	"github.com/YallaPapi/pubscrape-sub007/pkg/crawler"
	"github.com/YallaPapi/pubscrape-sub007/pkg/fetch"
	"github.com/YallaPapi/pubscrape-sub007/pkg/metrics"
	"github.com/YallaPapi/pubscrape-sub007/pkg/models"
	"github.com/YallaPapi/pubscrape-sub007/pkg/policy"
	"github.com/YallaPapi/pubscrape-sub007/pkg/storage"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	configFileFlag := flag.String("config", "config.yaml", "Path to YAML config file")
	domainsFlag := flag.String("domains", "", "Comma-separated domains to crawl (overrides config)")
	logLevelFlag := flag.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	outputFlag := flag.String("output", "", "Path for the batch results JSON file (empty to skip)")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevelFlag)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", *logLevelFlag, err)
	} else {
		log.SetLevel(level)
	}

	// --- Load Configuration ---
	var appCfg config.AppConfig
	yamlFile, err := os.ReadFile(*configFileFlag)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(yamlFile, &appCfg); err != nil {
			log.Fatalf("Parse config file '%s' error: %v", *configFileFlag, err)
		}
		log.Infof("Loaded configuration from %s", *configFileFlag)
	case os.IsNotExist(err):
		log.Warnf("Config file '%s' not found, using defaults", *configFileFlag)
	default:
		log.Fatalf("Read config file '%s' error: %v", *configFileFlag, err)
	}

	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	logAppConfig(&appCfg, log)

	domains := appCfg.Domains
	if *domainsFlag != "" {
		domains = nil
		for _, d := range strings.Split(*domainsFlag, ",") {
			if d = strings.TrimSpace(d); d != "" {
				domains = append(domains, d)
			}
		}
	}
	if len(domains) == 0 {
		log.Fatal("No domains to crawl: set 'domains' in the config file or pass -domains")
	}

	// --- Context & Signal Handling ---
	var crawlCtx context.Context
	var cancelCrawl context.CancelFunc
	if appCfg.GlobalCrawlTimeout > 0 {
		log.Infof("Setting global crawl timeout: %v", appCfg.GlobalCrawlTimeout)
		crawlCtx, cancelCrawl = context.WithTimeout(context.Background(), appCfg.GlobalCrawlTimeout)
	} else {
		crawlCtx, cancelCrawl = context.WithCancel(context.Background())
	}
	defer cancelCrawl()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		sig := <-sigChan
		log.Warnf("Received signal: %v. Initiating graceful shutdown...", sig)
		cancelCrawl()
		select {
		case sig = <-sigChan:
			log.Warnf("Received second signal: %v. Forcing exit.", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn("Graceful shutdown period exceeded after signal. Forcing exit.")
			os.Exit(1)
		}
	}()

	// --- Components ---
	baseLog := logrus.NewEntry(log)

	httpClient := fetch.NewClient(appCfg.HTTPClientSettings, baseLog)
	robotsClient := fetch.NewRobotsClient(httpClient, appCfg.UserAgent, baseLog)
	policyCache := policy.NewCache(appCfg.PolicyCacheTTL)
	policyEngine := policy.NewEngine(robotsClient, policyCache, policy.Options{
		RequestedMinDelay: appCfg.Crawl.DelayBetweenPages,
		DefaultDelay:      appCfg.DefaultCrawlDelay,
		MaxDelay:          appCfg.MaxCrawlDelay,
	}, baseLog)

	hostLimiter := fetch.NewHostLimiter(appCfg.DefaultCrawlDelay, baseLog)
	pageFetcher := fetch.NewHTTPFetcher(httpClient, appCfg.UserAgent, hostLimiter, baseLog)
	linkClassifier := classify.NewLinkClassifier(classify.LinkOptions{
		MaxLinksPerPage:        appCfg.Crawl.MaxLinksPerPage,
		MinConfidenceThreshold: appCfg.Crawl.MinConfidenceThreshold,
		SameDomainOnly:         true,
	})
	errorClassifier := classify.NewErrorClassifier(classify.RetryOptions{
		BaseDelay:  appCfg.Retry.BaseDelay,
		MaxDelay:   appCfg.Retry.MaxDelay,
		FixedDelay: appCfg.Retry.FixedDelay,
		MaxRetries: appCfg.Crawl.MaxRetries,
	})
	recorder := metrics.NewRecorder(baseLog)

	siteCrawler := crawler.NewSiteCrawler(
		policyEngine, pageFetcher, linkClassifier, errorClassifier, recorder,
		appCfg.Crawl, appCfg.UserAgent, baseLog,
	)
	coordinator := batch.NewCoordinator(siteCrawler, appCfg.Batch, appCfg.Crawl.PriorityTypes, baseLog)

	var archive storage.SessionArchive
	if appCfg.ArchiveSessions {
		badgerArchive, err := storage.NewBadgerArchive(appCfg.StateDir, baseLog)
		if err != nil {
			log.Fatalf("Failed to open session archive: %v", err)
		}
		defer badgerArchive.Close()
		go badgerArchive.RunGC(crawlCtx, 10*time.Minute)
		archive = badgerArchive
	}

	// --- Run ---
	startTime := time.Now()
	results := coordinator.CrawlDomains(crawlCtx, domains)

	// --- Post-Run ---
	failedDomains := 0
	for domain, result := range results {
		if result.Session == nil {
			failedDomains++
			log.WithField("domain", domain).Warn("Domain was not crawled")
			continue
		}
		if result.Session.Status == models.SessionStatusFailed {
			failedDomains++
		}
		log.WithFields(logrus.Fields{
			"domain":  domain,
			"status":  result.Session.Status,
			"crawled": len(result.Session.CrawledPages),
			"failed":  len(result.Session.FailedURLs),
			"blocked": len(result.Session.BlockedURLs),
			"links":   len(result.Session.DiscoveredLinks),
		}).Info("Domain finished")

		if archive != nil {
			if err := archive.SaveSession(result.Session, result.Report); err != nil {
				log.Errorf("Failed to archive session for %s: %v", domain, err)
			}
			sessionDir := filepath.Join(appCfg.StateDir, "sessions")
			if path, err := coordinator.WriteSessionFile(result, sessionDir); err != nil {
				log.Errorf("Failed to write session file for %s: %v", domain, err)
			} else {
				log.WithFields(logrus.Fields{"domain": domain, "path": path}).Debug("Session file written")
			}
		}
	}

	priorityLinks := coordinator.PriorityLinks(results)
	for i, link := range priorityLinks {
		if i >= 10 {
			log.Infof("... and %d more priority links", len(priorityLinks)-i)
			break
		}
		log.WithFields(logrus.Fields{
			"url":        link.URL,
			"page_type":  link.PageType,
			"confidence": link.Confidence,
		}).Info("Priority link")
	}

	if *outputFlag != "" {
		if err := coordinator.WriteResults(results, *outputFlag); err != nil {
			log.Errorf("Failed to write results: %v", err)
		}
	}

	stats := recorder.GetStatistics()
	log.WithFields(logrus.Fields{
		"domains":        len(results),
		"requests":       stats.TotalRequests,
		"success_rate":   stats.SuccessRate,
		"links":          stats.LinksDiscovered,
		"failed_domains": failedDomains,
		"duration":       time.Since(startTime).Round(time.Millisecond),
	}).Info("Batch crawl summary")

	// --- Exit ---
	if err := crawlCtx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Error("Crawl timed out (global timeout).")
			os.Exit(1)
		}
		log.Warn("Crawl cancelled gracefully.")
		os.Exit(0)
	}
	if failedDomains > 0 {
		log.Warnf("Finished with %d failed domain(s).", failedDomains)
		os.Exit(1)
	}
	log.Info("Crawl completed successfully.")
}

// logAppConfig logs the effective global configuration
func logAppConfig(appCfg *config.AppConfig, log *logrus.Logger) {
	log.Infof("Global Config: UserAgent:'%s', Domains:%d, StateDir:%s, ArchiveSessions:%t",
		appCfg.UserAgent, len(appCfg.Domains), appCfg.StateDir, appCfg.ArchiveSessions)
	log.Infof("Crawl Config: MaxPages:%d, Priority:%v, PerPageTimeout:%v, Delay:%v, MaxRetries:%d",
		appCfg.Crawl.MaxPages, appCfg.Crawl.PriorityTypes, appCfg.Crawl.TimeoutPerPage,
		appCfg.Crawl.DelayBetweenPages, appCfg.Crawl.MaxRetries)
	log.Infof("Batch Config: Concurrency:%d, InterDomainDelay:%v, AbortOnFirstFailure:%t",
		appCfg.Batch.ConcurrencyLimit, appCfg.Batch.InterDomainDelay, appCfg.Batch.AbortOnFirstFailure)
	log.Infof("Policy Config: DefaultDelay:%v, MaxDelay:%v, CacheTTL:%v",
		appCfg.DefaultCrawlDelay, appCfg.MaxCrawlDelay, appCfg.PolicyCacheTTL)
	log.Infof("HTTP Client: Timeout:%v, MaxIdle:%d, MaxIdlePerHost:%d, DialerTimeout:%v",
		appCfg.HTTPClientSettings.Timeout, appCfg.HTTPClientSettings.MaxIdleConns,
		appCfg.HTTPClientSettings.MaxIdleConnsPerHost, appCfg.HTTPClientSettings.DialerTimeout)
}
