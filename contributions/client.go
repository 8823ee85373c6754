// Package contributions fetches a GitHub user's contribution calendar and
// reshapes it for the heatmap on the home page.
package contributions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"

	"github.com/ckwame-jpg/portfolio/clock"
)

// DefaultEndpoint is GitHub's GraphQL API.
const DefaultEndpoint = "https://api.github.com/graphql"

// DefaultTTL matches how often GitHub refreshes the calendar in practice.
const DefaultTTL = time.Hour

// ErrNoToken is returned when no GitHub token is configured.
var ErrNoToken = errors.New("no GitHub token configured")

const calendarQuery = `
query($username: String!) {
  user(login: $username) {
    contributionsCollection {
      contributionCalendar {
        totalContributions
        weeks {
          contributionDays {
            date
            contributionCount
          }
        }
      }
    }
  }
}`

// Day is one heatmap cell.
type Day struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Week is one heatmap column.
type Week struct {
	Days []Day `json:"days"`
}

// Calendar is the reshaped contribution calendar.
type Calendar struct {
	TotalContributions int    `json:"totalContributions"`
	Weeks              []Week `json:"weeks"`
}

// Config configures a Client.
type Config struct {
	Token    string
	Username string
	Endpoint string
	TTL      time.Duration
	// MaxTries bounds attempts per fetch, including the first.
	MaxTries uint
}

// Client fetches and caches the calendar.
type Client struct {
	cfg   Config
	http  *http.Client
	clock clock.Clock

	mu        sync.Mutex
	cached    *Calendar
	fetchedAt time.Time
}

// NewClient creates a client. A nil httpClient uses a 10s-timeout default.
func NewClient(cfg Config, httpClient *http.Client, clk clock.Clock) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 3
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient, clock: clk}
}

// Calendar returns the cached calendar, fetching it when missing or stale.
func (c *Client) Calendar(ctx context.Context) (*Calendar, error) {
	if c.cfg.Token == "" {
		return nil, ErrNoToken
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && c.clock.Now().Sub(c.fetchedAt) < c.cfg.TTL {
		return c.cached, nil
	}

	cal, err := backoff.Retry(ctx, func() (*Calendar, error) {
		return c.fetch(ctx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.cfg.MaxTries),
	)
	if err != nil {
		return nil, err
	}

	c.cached = cal
	c.fetchedAt = c.clock.Now()
	return cal, nil
}

func (c *Client) fetch(ctx context.Context) (*Calendar, error) {
	payload, err := json.Marshal(map[string]any{
		"query":     calendarQuery,
		"variables": map[string]string{"username": c.cfg.Username},
	})
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github graphql: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read github response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("GitHub API responded with %d", resp.StatusCode)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	cal, err := parseCalendar(body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	return cal, nil
}

func parseCalendar(body []byte) (*Calendar, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("github response is not JSON")
	}
	root := gjson.ParseBytes(body)
	if msg := root.Get("errors.0.message"); msg.Exists() {
		return nil, fmt.Errorf("github graphql error: %s", msg.String())
	}

	calendar := root.Get("data.user.contributionsCollection.contributionCalendar")
	if !calendar.Exists() {
		return nil, errors.New("github response has no contribution calendar")
	}

	cal := &Calendar{
		TotalContributions: int(calendar.Get("totalContributions").Int()),
		Weeks:              []Week{},
	}
	calendar.Get("weeks").ForEach(func(_, week gjson.Result) bool {
		w := Week{Days: []Day{}}
		week.Get("contributionDays").ForEach(func(_, day gjson.Result) bool {
			w.Days = append(w.Days, Day{
				Date:  day.Get("date").String(),
				Count: int(day.Get("contributionCount").Int()),
			})
			return true
		})
		cal.Weeks = append(cal.Weeks, w)
		return true
	})
	return cal, nil
}

// Level buckets a day's count into the five heatmap shades, 0 (none) to 4.
func Level(count int) int {
	switch {
	case count <= 0:
		return 0
	case count <= 2:
		return 1
	case count <= 5:
		return 2
	case count <= 8:
		return 3
	default:
		return 4
	}
}
