package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// Portal selectors. Drift here is an external-system failure and surfaces as
// extraction errors on individual records.
const (
	selSearchToggle = "#searchBtnColaps"
	selSearchInput  = "#txtMultipleSearch"
	selSearchButton = "#searchBtn"
	selResults      = "#cardsresult"

	selDetailTab1   = `a[href='#d-1']`
	selDetailPanel1 = "#d-1"
	selDetailTab2   = `a[href='#d-2']`
	selDetailPanel2 = "#d-2"

	// The status filter is a Bootstrap dropdown next to the "tender status"
	// label; "active for submission" is one of its entries.
	xpStatusDropdown = `//label[contains(normalize-space(.),'حالة المنافسة')]/following-sibling::div//*[contains(@class,'dropdown-toggle')]`
	xpActiveStatus   = `//div[contains(@class,'dropdown-menu') and contains(@class,'show')]//a[contains(normalize-space(.),'المنافسات النشطة')]`
)

// SessionRunner scopes a browser tab to one operation. browser.Pool is the
// production implementation; tests substitute a fake that skips Chrome.
type SessionRunner interface {
	WithSession(ctx context.Context, fn func(tab context.Context) error) error
}

// searchDriver abstracts the portal search flow against one tab.
type searchDriver interface {
	Navigate(ctx context.Context, url string) error
	Search(ctx context.Context, term string) (string, error)
}

// detailDriver abstracts the tender detail page flow against one tab.
type detailDriver interface {
	Navigate(ctx context.Context, url string) error
	SectionText(ctx context.Context, tabSel, panelSel, marker string) (string, error)
}

// chromeDriver implements both driver interfaces with chromedp actions.
type chromeDriver struct {
	navTimeout  time.Duration
	settleDelay time.Duration
	sectionWait time.Duration
}

func (d chromeDriver) Navigate(ctx context.Context, url string) error {
	opCtx, cancel := context.WithTimeout(ctx, d.navTimeout)
	defer cancel()

	err := chromedp.Run(opCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// Search expands the search panel, fills the full-text box, selects the
// "active for submission" status filter, submits, and returns the rendered
// results container HTML.
func (d chromeDriver) Search(ctx context.Context, term string) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, d.navTimeout)
	defer cancel()

	var html string
	err := chromedp.Run(opCtx,
		chromedp.Click(selSearchToggle, chromedp.ByQuery, chromedp.NodeVisible),
		chromedp.WaitVisible(selSearchInput, chromedp.ByQuery),
		chromedp.SetValue(selSearchInput, term, chromedp.ByQuery),
		chromedp.Click(xpStatusDropdown, chromedp.BySearch),
		chromedp.Click(xpActiveStatus, chromedp.BySearch),
		chromedp.Click(selSearchButton, chromedp.ByQuery),
		chromedp.WaitVisible(selResults, chromedp.ByQuery),
		// Cards render asynchronously after the container appears.
		chromedp.Sleep(d.settleDelay),
		chromedp.OuterHTML(selResults, &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("search %q: %w", term, err)
	}
	return html, nil
}

// SectionText activates a detail tab and returns the panel's rendered text.
// When marker is non-empty the call polls until the marker text appears in
// the panel, bounded by the section wait.
func (d chromeDriver) SectionText(ctx context.Context, tabSel, panelSel, marker string) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, d.navTimeout)
	defer cancel()

	actions := []chromedp.Action{
		chromedp.Click(tabSel, chromedp.ByQuery, chromedp.NodeVisible),
		chromedp.WaitVisible(panelSel, chromedp.ByQuery),
	}
	if marker != "" {
		expr := fmt.Sprintf(
			`document.querySelector(%q) !== null && document.querySelector(%q).innerText.indexOf(%q) !== -1`,
			panelSel, panelSel, marker,
		)
		actions = append(actions, chromedp.Poll(expr, nil, chromedp.WithPollingTimeout(d.sectionWait)))
	}
	var text string
	actions = append(actions, chromedp.Text(panelSel, &text, chromedp.ByQuery))

	if err := chromedp.Run(opCtx, actions...); err != nil {
		return "", fmt.Errorf("read section %s: %w", panelSel, err)
	}
	return text, nil
}
