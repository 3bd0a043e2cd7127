package verifier

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/albumvault/catalogd/internal/store"
)

var bandcampEmbedAlbumID = regexp.MustCompile(`album=(\d+)`)

// verifyMusicSales implements verify_bandcamp_album: enumerate the
// band's discography grid and track rows, fuzzy-match the album title,
// then navigate to the chosen release and extract its share-widget
// embed code. When no embed can be extracted, the release page URL
// itself is returned as EmbedURL; no iframe markup is generated.
func (v *Verifier) verifyMusicSales(ctx context.Context, album store.Album) (Result, error) {
	var html string
	if err := chromedp.Run(ctx,
		chromedp.Navigate(album.BandcampURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	); err != nil {
		return Result{}, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Result{}, err
	}

	releases := scrapeReleases(doc)
	best, ok := bestRelease(releases, album.AlbumName, v.cfg.MinSimilarity)
	if !ok {
		return Result{Found: false}, nil
	}

	embedURL, err := v.extractBandcampEmbed(ctx, best.url)
	if err != nil {
		v.log.WithError(err).Warn("bandcamp embed extraction failed, using iframe fallback")
		embedURL = best.url
	}

	return Result{
		Found: true, EmbedURL: embedURL, MatchedTitle: best.title,
		Score: best.score, Kind: store.EmbedVideo,
	}, nil
}

func scrapeReleases(doc *goquery.Document) []candidate {
	var out []candidate
	doc.Find(".music-grid-item, .featured-item").Each(func(i int, el *goquery.Selection) {
		title := strings.TrimSpace(el.Find(".title, p.title").First().Text())
		href, _ := el.Find("a").First().Attr("href")
		if title != "" && href != "" {
			out = append(out, candidate{title: title, url: href})
		}
	})
	doc.Find(".track_row_view").Each(func(i int, el *goquery.Selection) {
		title := strings.TrimSpace(el.Find(".track-title").First().Text())
		href, _ := el.Find("a").First().Attr("href")
		if title != "" && href != "" {
			out = append(out, candidate{title: title, url: href})
		}
	})
	return out
}

func bestRelease(items []candidate, albumName string, minSimilarity int) (candidate, bool) {
	var best candidate
	found := false
	for _, c := range items {
		score := tokenSortRatio(strings.ToLower(albumName), strings.ToLower(c.title))
		if score < minSimilarity {
			continue
		}
		if !found || score > best.score {
			c.score = score
			best = c
			found = true
		}
	}
	return best, found
}

// extractBandcampEmbed navigates to the release page and pulls the
// embed code out of the share widget, synthesizing the canonical
// EmbeddedPlayer URL when an album id is recoverable, matching
// _extract_bandcamp_embed.
func (v *Verifier) extractBandcampEmbed(ctx context.Context, releaseURL string) (string, error) {
	var embedCode string
	err := chromedp.Run(ctx,
		chromedp.Navigate(releaseURL),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(`(() => {
			const input = document.querySelector('input[value*="EmbeddedPlayer"], textarea[value*="EmbeddedPlayer"]');
			if (input) return input.value;
			const data = document.querySelector('[data-embed]');
			if (data) return data.getAttribute('data-embed');
			return '';
		})()`, &embedCode),
	)
	if err != nil {
		return releaseURL, err
	}
	if embedCode == "" {
		return releaseURL, nil
	}
	if m := bandcampEmbedAlbumID.FindStringSubmatch(embedCode); m != nil {
		return fmt.Sprintf(
			"https://bandcamp.com/EmbeddedPlayer/album=%s/size=large/bgcol=ffffff/linkcol=0687f5/tracklist=false/artwork=small/transparent=true/",
			m[1],
		), nil
	}
	return releaseURL, nil
}
