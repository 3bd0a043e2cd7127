package scraper

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/albumvault/catalogd/internal/store"
)

// enrich visits an album's detail page, its band page, and the band's
// related-links page, filling cover art, the detail map, the
// tracklist, band facts, and platform URLs. Mirrors
// scraper.py's _enrich_album_data end to end.
func (s *Scraper) enrich(ctx context.Context, r *Result) error {
	cfg := s.snapshotCfg()
	var html string
	if err := s.navigateWithRetry(ctx, cfg, 0, 0, func(navCtx context.Context) error {
		navCtx, cancel := context.WithTimeout(navCtx, cfg.RequestTimeout)
		defer cancel()
		return chromedp.Run(navCtx, chromedp.Navigate(r.Album.AlbumURL), chromedp.OuterHTML("html", &html))
	}); err != nil {
		return fmt.Errorf("scraper: load album page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("scraper: parse album page: %w", err)
	}

	if coverURL, ok := extractCoverURL(doc); ok {
		r.Album.CoverArtURL = coverURL
		if data, err := s.downloadCover(coverURL); err != nil {
			s.log.WithError(err).Warn("cover download failed")
		} else {
			r.CoverBytes = data
		}
	}

	r.Album.Details = extractDetailMap(doc)
	r.Tracks = extractTracklist(doc)

	if r.Album.BandURL != "" {
		if err := s.enrichBand(ctx, r); err != nil {
			s.log.WithError(err).Warn("band enrichment failed")
		}
	}

	return nil
}

func extractCoverURL(doc *goquery.Document) (string, bool) {
	selectors := []string{"a.image img", "img.album_img", "img[src*=albums]", "#album_img img", "#album_info img"}
	for _, sel := range selectors {
		if src, ok := doc.Find(sel).First().Attr("src"); ok && src != "" {
			return src, true
		}
	}
	return "", false
}

var detailKeyCleaner = regexp.MustCompile(`[^a-z0-9]+`)

func extractDetailMap(doc *goquery.Document) store.JSONMap {
	details := store.JSONMap{}
	dts := doc.Find("div#album_info dl dt")
	dds := doc.Find("div#album_info dl dd")
	dts.Each(func(i int, dt *goquery.Selection) {
		dd := dds.Eq(i)
		key := strings.TrimSpace(strings.ToLower(dt.Text()))
		key = strings.Trim(detailKeyCleaner.ReplaceAllString(key, "_"), "_")
		value := strings.TrimSpace(dd.Text())
		if key != "" && value != "" {
			details[key] = value
		}
	})
	return details
}

func extractTracklist(doc *goquery.Document) []store.Track {
	var tracks []store.Track
	doc.Find("table.table_lyrics tr.even, table.table_lyrics tr.odd").Each(func(i int, row *goquery.Selection) {
		numText := strings.TrimSuffix(strings.TrimSpace(row.Find("td").Eq(0).Text()), ".")
		num, _ := strconv.Atoi(numText)
		name := strings.TrimSpace(row.Find("td").Eq(1).Text())
		length := strings.TrimSpace(row.Find("td").Eq(2).Text())
		var lyricsURL string
		if href, ok := row.Find("a[href*=lyrics]").Attr("href"); ok {
			lyricsURL = href
		}
		if name == "" {
			return
		}
		tracks = append(tracks, store.Track{
			TrackNumber: num,
			TrackName:   name,
			Length:      length,
			LyricsURL:   lyricsURL,
		})
	})
	return tracks
}

// enrichBand loads the band page for country/location/genre/themes/
// label/years-active, then the related-links page for platform URLs.
func (s *Scraper) enrichBand(ctx context.Context, r *Result) error {
	cfg := s.snapshotCfg()
	var html string
	if err := s.navigateWithRetry(ctx, cfg, 0, 0, func(navCtx context.Context) error {
		navCtx, cancel := context.WithTimeout(navCtx, cfg.RequestTimeout)
		defer cancel()
		return chromedp.Run(navCtx, chromedp.Navigate(r.Album.BandURL), chromedp.OuterHTML("html", &html))
	}); err != nil {
		return fmt.Errorf("scraper: load band page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("scraper: parse band page: %w", err)
	}

	bandInfo := doc.Find("#band_info dl")
	bandInfo.Find("dt").Each(func(i int, dt *goquery.Selection) {
		dd := bandInfo.Find("dd").Eq(i)
		label := strings.ToLower(strings.TrimSpace(dt.Text()))
		value := strings.TrimSpace(dd.Text())
		switch {
		case strings.Contains(label, "country"):
			r.Album.CountryOfOrigin = value
		case strings.Contains(label, "location"):
			r.Album.Location = value
		case strings.Contains(label, "genre"):
			r.Album.GenreRaw = value
		case strings.Contains(label, "theme"):
			r.Album.Themes = value
		case strings.Contains(label, "label"):
			r.Album.CurrentLabel = value
		case strings.Contains(label, "year"):
			r.Album.YearsActive = value
		}
	})

	links, err := s.relatedLinks(ctx, r.Album.BandID)
	if err != nil {
		return err
	}
	r.Album.BandcampURL = links.Bandcamp
	r.Album.YouTubeURL = links.YouTube
	r.Album.SpotifyURL = links.Spotify
	r.Album.DiscogsURL = links.Discogs
	r.Album.LastFMURL = links.LastFM
	r.Album.SoundCloudURL = links.SoundCloud
	r.Album.TidalURL = links.Tidal
	return nil
}

// relatedLinks visits the band's related-links endpoint and buckets
// every external URL by platform host.
func (s *Scraper) relatedLinks(ctx context.Context, bandID string) (RelatedLinks, error) {
	if bandID == "" {
		return RelatedLinks{}, nil
	}
	url := fmt.Sprintf("https://www.metal-archives.com/link/ajax-list/type/band/id/%s", bandID)
	cfg := s.snapshotCfg()

	var html string
	if err := s.navigateWithRetry(ctx, cfg, 0, 0, func(navCtx context.Context) error {
		navCtx, cancel := context.WithTimeout(navCtx, cfg.RequestTimeout)
		defer cancel()
		return chromedp.Run(navCtx, chromedp.Navigate(url), chromedp.OuterHTML("html", &html))
	}); err != nil {
		return RelatedLinks{}, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return RelatedLinks{}, err
	}

	var out RelatedLinks
	doc.Find("a[href]").Each(func(i int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		lower := strings.ToLower(href)
		switch {
		case strings.Contains(lower, "bandcamp.com"):
			out.Bandcamp = href
		case strings.Contains(lower, "youtube.com"), strings.Contains(lower, "youtu.be"):
			out.YouTube = href
		case strings.Contains(lower, "spotify.com"):
			out.Spotify = href
		case strings.Contains(lower, "discogs.com"):
			out.Discogs = href
		case strings.Contains(lower, "last.fm"):
			out.LastFM = href
		case strings.Contains(lower, "soundcloud.com"):
			out.SoundCloud = href
		case strings.Contains(lower, "tidal.com"):
			out.Tidal = href
		}
	})
	return out, nil
}

// downloadCover fetches coverURL via the plain resty client, matching
// scraper.py's download_cover. The bytes are kept on
// Result.CoverBytes only; nothing in this module writes them to disk,
// and Config.CoversDir is not read.
func (s *Scraper) downloadCover(coverURL string) ([]byte, error) {
	resp, err := s.rest.R().Get(coverURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("scraper: cover fetch status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}
