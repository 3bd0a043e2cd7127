package verifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/albumvault/catalogd/internal/store"
)

type candidate struct {
	title string
	url   string
	score int
}

// verifyVideo implements verify_youtube_album: direct-URL fast path,
// channel-scoped search, then global search, in that priority order.
func (v *Verifier) verifyVideo(ctx context.Context, album store.Album) (Result, error) {
	if album.YouTubeURL != "" && isDirectVideoURL(album.YouTubeURL) {
		kind, embed := videoIdentifierKind(album.YouTubeURL)
		if embed != "" {
			return Result{Found: true, EmbedURL: embed, MatchedTitle: album.AlbumName, Score: 100, Kind: kind}, nil
		}
	}

	bandAlbum := fmt.Sprintf("%s %s", album.BandName, album.AlbumName)

	if album.YouTubeURL != "" && isChannelURL(album.YouTubeURL) {
		if res, ok, err := v.searchChannel(ctx, album.YouTubeURL, bandAlbum, album.AlbumName, album.BandName); err != nil {
			return Result{}, err
		} else if ok {
			return res, nil
		}
	}

	return v.searchGlobal(ctx, bandAlbum, album.AlbumName, album.BandName)
}

func (v *Verifier) searchChannel(ctx context.Context, channelURL, bandAlbum, albumName, bandName string) (Result, bool, error) {
	videos, err := v.scrapeChannelTab(ctx, channelURL+"/videos")
	if err != nil {
		return Result{}, false, err
	}
	if best, ok := bestCandidate(videos, bandAlbum, albumName, bandName, v.cfg.MinSimilarity); ok {
		if vid := extractYouTubeVideoID(best.url); vid != "" {
			return Result{
				Found: true, EmbedURL: fmt.Sprintf("https://www.youtube-nocookie.com/embed/%s", vid),
				MatchedTitle: best.title, Score: best.score, Kind: store.EmbedVideo,
			}, true, nil
		}
	}

	playlists, err := v.scrapeChannelTab(ctx, channelURL+"/playlists")
	if err != nil {
		return Result{}, false, err
	}
	if best, ok := bestCandidate(playlists, bandAlbum, albumName, bandName, v.cfg.MinSimilarity); ok {
		if pid := extractYouTubePlaylistID(best.url); pid != "" {
			return Result{
				Found: true, EmbedURL: fmt.Sprintf("https://www.youtube-nocookie.com/embed/videoseries?list=%s", pid),
				MatchedTitle: best.title, Score: best.score, Kind: store.EmbedPlaylist,
			}, true, nil
		}
	}
	return Result{}, false, nil
}

func (v *Verifier) searchGlobal(ctx context.Context, bandAlbum, albumName, bandName string) (Result, error) {
	query := fmt.Sprintf("%s %s full album", bandName, albumName)
	searchURL := "https://www.youtube.com/results?search_query=" + strings.ReplaceAll(query, " ", "+")

	videos, err := v.scrapeChannelTab(ctx, searchURL)
	if err != nil {
		return Result{}, err
	}
	best, ok := bestCandidate(videos, bandAlbum, albumName, bandName, v.cfg.MinSimilarity)
	if !ok {
		return Result{Found: false}, nil
	}

	kind, embed := videoIdentifierKind(best.url)
	if embed == "" {
		return Result{Found: false}, nil
	}
	return Result{Found: true, EmbedURL: embed, MatchedTitle: best.title, Score: best.score, Kind: kind}, nil
}

// scrapeChannelTab navigates to url and extracts every video/playlist
// title+href visible on the rendered page, matching the
// ytd-grid-video-renderer/ytd-video-renderer/ytd-rich-item-renderer
// selector set from _search_youtube_videos.
func (v *Verifier) scrapeChannelTab(ctx context.Context, url string) ([]candidate, error) {
	var html string
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var out []candidate
	doc.Find("ytd-grid-video-renderer, ytd-video-renderer, ytd-rich-item-renderer, ytd-playlist-renderer").Each(func(i int, el *goquery.Selection) {
		link := el.Find("#video-title, #video-title-link, a#thumbnail").First()
		title := strings.TrimSpace(link.Text())
		if title == "" {
			title, _ = link.Attr("title")
		}
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			return
		}
		if !strings.HasPrefix(href, "http") {
			href = "https://www.youtube.com" + href
		}
		out = append(out, candidate{title: title, url: href})
	})
	return out, nil
}

func bestCandidate(items []candidate, bandAlbum, albumName, bandName string, minSimilarity int) (candidate, bool) {
	var best candidate
	found := false
	for _, c := range items {
		score, _ := Score(bandAlbum, c.title, albumName, bandName)
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
