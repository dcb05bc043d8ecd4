// Package browser drives real tabs through playwright and binds each page
// load to a harvest episode.
package browser

import (
	"fmt"
	"log"

	"github.com/playwright-community/playwright-go"
)

type Options struct {
	Headless  bool
	Channel   string
	UserAgent string
	Cookies   []playwright.OptionalCookie
}

// Manager owns the playwright driver, one browser and one shared context, so
// cookies and storage are common to every tab.
type Manager struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
}

func Launch(opts Options) (*Manager, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	if opts.Channel != "" {
		launch.Channel = playwright.String(opts.Channel)
	}
	b, err := pw.Chromium.Launch(launch)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	var ctxOpts playwright.BrowserNewContextOptions
	if opts.UserAgent != "" {
		ctxOpts.UserAgent = playwright.String(opts.UserAgent)
	}
	bctx, err := b.NewContext(ctxOpts)
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	if len(opts.Cookies) > 0 {
		if err := bctx.AddCookies(opts.Cookies); err != nil {
			log.Printf("[browser] add cookies err=%v", err)
		}
	}

	log.Printf("[browser] launched headless=%v channel=%q cookies=%d", opts.Headless, opts.Channel, len(opts.Cookies))
	return &Manager{pw: pw, browser: b, bctx: bctx}, nil
}

func (m *Manager) NewPage() (playwright.Page, error) {
	return m.bctx.NewPage()
}

func (m *Manager) Close() error {
	var first error
	if err := m.bctx.Close(); err != nil {
		first = err
	}
	if err := m.browser.Close(); err != nil && first == nil {
		first = err
	}
	if err := m.pw.Stop(); err != nil && first == nil {
		first = err
	}
	return first
}
