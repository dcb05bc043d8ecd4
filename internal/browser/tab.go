package browser

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"jobharvest-engine/internal/scrape/types"
)

// Tab adapts a playwright page to harvest.Tab.
type Tab struct {
	page playwright.Page
}

func NewTab(page playwright.Page) *Tab { return &Tab{page: page} }

// Snapshot returns the rendered DOM of the current document.
func (t *Tab) Snapshot(ctx context.Context) (*types.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	html, err := t.page.Content()
	if err != nil {
		return nil, fmt.Errorf("page content: %w", err)
	}
	return types.NewPage(t.page.URL(), html)
}

func (t *Tab) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(30000),
	})
	return err
}

func (t *Tab) URL() string { return t.page.URL() }
