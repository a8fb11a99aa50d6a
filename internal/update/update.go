// Package update polls a published script version at most once per interval.
package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/flarebyte/codepen-export/internal/prefs"
)

// TimestampKey holds the unix time of the last check.
const TimestampKey = "last_check_timestamp"

// maxBodyBytes caps the version response; it should be a few digits.
const maxBodyBytes = 1024

// Notice tells the host a newer script is available.
type Notice struct {
	URL         string `json:"url"`
	FromVersion string `json:"from_version"`
	ToVersion   string `json:"to_version"`
}

// Checker performs the rate-limited check.
type Checker struct {
	Store          prefs.Store
	Client         *http.Client
	Now            func() time.Time
	VersionInfoURL string
	DownloadURL    string
	UserAgent      string
	Interval       time.Duration
	Current        int
}

// Due reports whether enough time has passed since last. A missing or
// unreadable timestamp counts as never checked.
func Due(last string, present bool, now time.Time, interval time.Duration) bool {
	if !present {
		return true
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(last), 10, 64)
	if err != nil {
		return true
	}
	return now.Unix()-ts > int64(interval/time.Second)
}

// Check returns a Notice when a newer version is published, nil when the
// check was skipped or found nothing new, and an error for any failure. The
// timestamp is written before the request so overlapping runs don't both poll.
func (c *Checker) Check(ctx context.Context) (*Notice, error) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	t := now()
	last, ok, err := c.Store.Get(TimestampKey)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", TimestampKey, err)
	}
	if !Due(last, ok, t, c.Interval) {
		return nil, nil
	}
	if err := c.Store.Set(TimestampKey, strconv.FormatInt(t.Unix(), 10)); err != nil {
		return nil, fmt.Errorf("write %s: %w", TimestampKey, err)
	}
	latest, err := c.fetchLatest(ctx)
	if err != nil {
		return nil, err
	}
	if latest <= c.Current {
		return nil, nil
	}
	return &Notice{
		URL:         c.DownloadURL,
		FromVersion: strconv.Itoa(c.Current),
		ToVersion:   strconv.Itoa(latest),
	}, nil
}

func (c *Checker) fetchLatest(ctx context.Context) (int, error) {
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.VersionInfoURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("version endpoint: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(body)))
	if err != nil {
		return 0, fmt.Errorf("version endpoint: %w", err)
	}
	return n, nil
}
