package sources

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/hirewire/jobcrawl/internal/logger"
)

// Browser navigation defaults.
const (
	// navigationTimeout bounds one page navigation.
	navigationTimeout = 30 * time.Second
	// selectorTimeout bounds the wait for a site's job-card selector.
	selectorTimeout = 10 * time.Second
	// settleDelay gives client-side rendering a moment after navigation.
	settleDelay = 2 * time.Second
)

// Browser manages one lazily-initialized headless Chromium instance shared
// by every browser-backed adapter in the process. Close is idempotent and
// is called after each top-level crawl batch to bound memory; the next
// render relaunches on demand.
type Browser struct {
	agents *UserAgentPool
	logger logger.Interface

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
}

// NewBrowser creates a Browser manager. The underlying Chromium is not
// launched until the first Render call.
func NewBrowser(agents *UserAgentPool, log logger.Interface) *Browser {
	if agents == nil {
		agents = NewUserAgentPool(nil, time.Now().UnixNano())
	}
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Browser{agents: agents, logger: log}
}

// Render navigates to the URL in a fresh browser context and returns the
// rendered HTML. waitSelector, when non-empty, is awaited before the
// content is read; a missing selector is tolerated since adapters fall
// back to alternative card selectors anyway.
func (b *Browser) Render(ctx context.Context, pageURL, waitSelector string) (string, error) {
	browser, err := b.ensureLaunched()
	if err != nil {
		return "", err
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(b.agents.Random()),
	})
	if err != nil {
		return "", fmt.Errorf("browser: new context: %w", err)
	}
	defer browserCtx.Close()

	browserCtx.SetDefaultNavigationTimeout(float64(navigationTimeout.Milliseconds()))

	page, err := browserCtx.NewPage()
	if err != nil {
		return "", fmt.Errorf("browser: new page: %w", err)
	}

	if _, err = page.Goto(pageURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(navigationTimeout.Milliseconds())),
	}); err != nil {
		return "", fmt.Errorf("browser: goto %s: %w", pageURL, err)
	}

	if waitSelector != "" {
		waitErr := page.Locator(waitSelector).First().WaitFor(playwright.LocatorWaitForOptions{
			Timeout: playwright.Float(float64(selectorTimeout.Milliseconds())),
		})
		if waitErr != nil {
			b.logger.Debug("Job card selector not found, reading page anyway",
				"url", pageURL,
				"selector", waitSelector,
			)
		}
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(settleDelay):
	}

	html, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("browser: read content: %w", err)
	}
	return html, nil
}

// ensureLaunched launches Playwright and Chromium on first use.
func (b *Browser) ensureLaunched() (playwright.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		return b.browser, nil
	}

	pw, err := playwright.Run(&playwright.RunOptions{SkipInstallBrowsers: true})
	if err != nil {
		return nil, fmt.Errorf("browser: start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		stopErr := pw.Stop()
		if stopErr != nil {
			b.logger.Warn("Failed to stop playwright after launch error", "error", stopErr)
		}
		return nil, fmt.Errorf("browser: launch chromium: %w", err)
	}

	b.logger.Info("Headless browser launched")
	b.pw = pw
	b.browser = browser
	return browser, nil
}

// Close shuts down the browser and the Playwright driver. It is safe to
// call repeatedly and when nothing was ever launched.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser == nil {
		return nil
	}

	closeErr := b.browser.Close()
	stopErr := b.pw.Stop()
	b.browser = nil
	b.pw = nil

	if closeErr != nil {
		return fmt.Errorf("browser: close: %w", closeErr)
	}
	if stopErr != nil {
		return fmt.Errorf("browser: stop playwright: %w", stopErr)
	}

	b.logger.Info("Headless browser closed")
	return nil
}
