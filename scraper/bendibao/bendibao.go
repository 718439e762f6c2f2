package bendibao

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"covid-risk-areas/config"
	"covid-risk-areas/models"
	"covid-risk-areas/utils"
)

// extractScript reads the risk area blocks of the page. Each ".shi" header
// names the province (first span) and city (last span); its next sibling
// lists the entries.
const extractScript = `
(function() {
	function text(el) { return el ? (el.textContent || '').trim() : ''; }

	function collect(selector) {
		var groups = [];
		document.querySelectorAll(selector).forEach(function(item) {
			item.querySelectorAll('.info-list').forEach(function(list) {
				list.querySelectorAll('.shi').forEach(function(shi) {
					var spans = shi.querySelectorAll('p > span');
					var group = {
						province: spans.length ? text(spans[0]) : '',
						city:     spans.length ? text(spans[spans.length - 1]) : '',
						entries:  []
					};
					var next = shi.nextElementSibling;
					if (next) {
						next.querySelectorAll('li > span').forEach(function(span) {
							group.entries.push(span.textContent || '');
						});
					}
					groups.push(group);
				});
			});
		});
		return groups;
	}

	return {
		time:   text(document.querySelector('.time')),
		high:   collect('.height.info-item'),
		middle: collect('.middle.info-item')
	};
})()
`

type pageData struct {
	Time   string            `json:"time"`
	High   []models.RawGroup `json:"high"`
	Middle []models.RawGroup `json:"middle"`
}

// Scraper renders the bendibao risk area pages in headless Chrome.
type Scraper struct {
	cfg    *config.Config
	logger *utils.Logger
	pool   *utils.WorkerPool
	retry  *utils.RetryConfig
}

// New creates a ready-to-use bendibao Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:    cfg,
		logger: logger,
		pool:   utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// Scrape fetches every configured source URL once. A failing source is
// logged and skipped; an error is returned only when no source succeeded.
func (s *Scraper) Scrape(ctx context.Context) ([]*models.RawPage, error) {
	urls := s.sourceURLs()
	if len(urls) == 0 {
		return nil, errors.New("bendibao: no source urls configured")
	}
	s.logger.Info("[bendibao] Starting scrape of %d source(s)", len(urls))

	chromeBin := findChromeBinary(s.cfg.ChromeBin)
	s.logger.Debug("[bendibao] Using browser binary: %q", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.UserAgent("Mozilla/5.0 (Linux; Android 12) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	// start the browser so every page opens as a tab of it
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, fmt.Errorf("bendibao: start browser: %w", err)
	}

	pages, errs := s.fetchAll(urls, func(u string) (*models.RawPage, error) {
		return s.scrapePage(browserCtx, u)
	})

	if len(pages) == 0 {
		return nil, fmt.Errorf("bendibao: every source failed: %w", errors.Join(errs...))
	}
	s.logger.Info("[bendibao] Scrape complete: %d/%d sources", len(pages), len(urls))
	return pages, nil
}

// fetchAll runs fetch for every url on the worker pool and returns the pages
// that succeeded. Results live in this call only, so concurrent scrapes on
// the same Scraper do not mix.
func (s *Scraper) fetchAll(urls []string, fetch func(string) (*models.RawPage, error)) ([]*models.RawPage, []error) {
	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		pages = make([]*models.RawPage, 0, len(urls))
		errs  []error
	)
	for _, u := range urls {
		wg.Add(1)
		s.pool.Submit(func() {
			defer wg.Done()
			page, err := fetch(u)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Error("[bendibao] %s failed: %v", u, err)
				errs = append(errs, err)
				return
			}
			pages = append(pages, page)
		})
	}
	wg.Wait()
	return pages, errs
}

// sourceURLs returns the configured URLs without repeats.
func (s *Scraper) sourceURLs() []string {
	seen := utils.NewStringSet()
	out := make([]string, 0, len(s.cfg.SourceURLs))
	for _, u := range s.cfg.SourceURLs {
		if u == "" || !seen.Add(u) {
			continue
		}
		out = append(out, u)
	}
	return out
}

// scrapePage loads one page and extracts its risk area groups.
func (s *Scraper) scrapePage(browserCtx context.Context, pageURL string) (*models.RawPage, error) {
	var page *models.RawPage

	err := s.retry.Do(browserCtx, "scrape "+pageURL, func(ctx context.Context) error {
		tabCtx, cancel := chromedp.NewContext(ctx)
		defer cancel()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, s.cfg.PageTimeout)
		defer cancelTimeout()

		var data pageData
		err := chromedp.Run(tabCtx,
			chromedp.Navigate(pageURL),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(2*time.Second),
			chromedp.Evaluate(extractScript, &data),
		)
		if err != nil {
			return fmt.Errorf("chromedp extract: %w", err)
		}
		if len(data.High)+len(data.Middle) == 0 {
			return errors.New("no risk area blocks on page")
		}

		s.logger.Debug("[bendibao] %s: %d high / %d middle groups, time %q",
			pageURL, len(data.High), len(data.Middle), data.Time)

		page = &models.RawPage{
			Source:    pageURL,
			Time:      data.Time,
			High:      data.High,
			Middle:    data.Middle,
			ScrapedAt: time.Now(),
		}
		return nil
	})
	return page, err
}

// findChromeBinary locates a Chrome/Chromium binary, preferring configured.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
