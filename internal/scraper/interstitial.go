package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// challengeSelectors are DOM markers for known anti-bot interstitials,
// ported from scraper.py's _check_cloudflare_challenge.
var challengeSelectors = []string{
	"div#cf-challenge-running",
	".cf-browser-verification",
	"[data-ray]",
	".challenge-running",
}

// challengePresent reports whether the current page shows a known
// anti-bot challenge, by DOM marker or title substring.
func challengePresent(ctx context.Context) (bool, error) {
	for _, sel := range challengeSelectors {
		var count int
		if err := chromedp.Run(ctx, chromedp.Evaluate(
			`document.querySelectorAll(`+"`"+sel+"`"+`).length`, &count,
		)); err == nil && count > 0 {
			return true, nil
		}
	}

	var title string
	if err := chromedp.Run(ctx, chromedp.Title(&title)); err != nil {
		return false, err
	}
	lower := strings.ToLower(title)
	return strings.Contains(lower, "just a moment") || strings.Contains(lower, "cloudflare"), nil
}

// awaitChallengeClear polls for up to maxWait for the interstitial to
// disappear, matching _solve_cloudflare_challenge's passive wait loop
// (this scraper does not attempt to solve the challenge, only to wait
// it out, same as the original).
func awaitChallengeClear(ctx context.Context, maxWait time.Duration) bool {
	deadline := time.Now().Add(maxWait)
	for time.Now().Before(deadline) {
		present, err := challengePresent(ctx)
		if err == nil && !present {
			return true
		}
		time.Sleep(time.Second)
	}
	return false
}
