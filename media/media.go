// Package media provides placeholder lookups for social media videos.
//
// None of the services here talk to the network: Stub validates the URL
// against the platform's hosts, waits a while to simulate a lookup, and
// returns placeholder information. Download always fails with ErrDemoOnly.
package media // import "go.yhsif.com/img2gray/media"

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.yhsif.com/img2gray/logger"
)

// DefaultDelay is the simulated lookup delay used by Stub when Delay is 0.
const DefaultDelay = 1500 * time.Millisecond

// Errors returned by Stub.
var (
	ErrInvalidURL = errors.New("media: invalid url for platform")
	ErrDemoOnly   = errors.New("media: downloading requires a backend service, this is a demo")
)

// MediaInfo describes a video found by FetchMediaInfo.
type MediaInfo struct {
	Platform     Platform `json:"platform"`
	URL          string   `json:"url"`
	Title        string   `json:"title"`
	ThumbnailURL string   `json:"thumbnail_url"`
	DownloadURL  string   `json:"download_url"`
}

// Service looks up and downloads videos for a platform.
type Service interface {
	FetchMediaInfo(ctx context.Context, rawURL string) (*MediaInfo, error)
	Download(ctx context.Context, info *MediaInfo) error
}

// Stub is a Service without any backend.
type Stub struct {
	Platform Platform

	// Simulated lookup delay. 0 means DefaultDelay, negative means none.
	Delay time.Duration
}

var _ Service = Stub{}

// ValidateURL parses rawURL and checks its host against p.
//
// The scheme is optional, "www." and "m." host prefixes are ignored.
func (p Platform) ValidateURL(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: empty url", ErrInvalidURL)
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	if set, ok := hosts[p]; !ok || !set.Contains(host) {
		return nil, fmt.Errorf("%w: %q is not a %s url", ErrInvalidURL, u.Host, p.Title())
	}
	return u, nil
}

// ThumbnailURL returns the placeholder thumbnail for p.
func (p Platform) ThumbnailURL() string {
	text := url.QueryEscape(p.Title() + " Video")
	return fmt.Sprintf("https://placehold.co/600x400/%s/ffffff?text=%s", p.Color(), text)
}

// FetchMediaInfo implements Service.
func (s Stub) FetchMediaInfo(ctx context.Context, rawURL string) (*MediaInfo, error) {
	u, err := s.Platform.ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	delay := s.Delay
	if delay == 0 {
		delay = DefaultDelay
	}
	if delay > 0 {
		logger.For(ctx).DebugContext(
			ctx,
			"media: simulating lookup",
			"platform", s.Platform,
			"url", u.String(),
			"delay", delay,
		)
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return &MediaInfo{
		Platform:     s.Platform,
		URL:          u.String(),
		Title:        s.Platform.Title() + " Video",
		ThumbnailURL: s.Platform.ThumbnailURL(),
		DownloadURL:  "#",
	}, nil
}

// Download implements Service. It always fails with ErrDemoOnly.
func (s Stub) Download(ctx context.Context, info *MediaInfo) error {
	if info == nil {
		return errors.New("media: nil MediaInfo")
	}
	return ErrDemoOnly
}
