// Package poll is the alternate delivery path: a REST client plus a
// cursor-based poller for the same per-house event stream the channel
// carries.
package poll

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roommate/roomlink/internal/domain"
)

// Client talks to the signaling server's HTTP surface. The configured
// endpoint is usually the websocket URL; NormalizeBaseURL maps it to
// its HTTP equivalent.
type Client struct {
	base string
	http *http.Client
}

func NewClient(endpoint string) *Client {
	return &Client{
		base: NormalizeBaseURL(endpoint),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// NormalizeBaseURL rewrites ws/wss schemes to http/https, defaults a
// bare host to http, and strips the trailing slash.
func NormalizeBaseURL(endpoint string) string {
	u := endpoint
	switch {
	case strings.HasPrefix(u, "wss://"):
		u = "https://" + u[len("wss://"):]
	case strings.HasPrefix(u, "ws://"):
		u = "http://" + u[len("ws://"):]
	case !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://"):
		u = "http://" + u
	}
	return strings.TrimSuffix(u, "/")
}

// FetchEvents returns events strictly after the cursor; an empty
// cursor fetches from the beginning of the retained queue.
func (c *Client) FetchEvents(ctx context.Context, house domain.SigningPubkey, since string) ([]domain.HouseEvent, error) {
	endpoint := fmt.Sprintf("%s/api/houses/%s/events", c.base, url.PathEscape(string(house)))
	if since != "" {
		endpoint += "?since=" + url.QueryEscape(since)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch events: %s", resp.Status)
	}
	var events []domain.HouseEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}
	return events, nil
}

// AckEvents tells the server how far this user has read. Best-effort
// by contract; callers must not let a failure block anything.
func (c *Client) AckEvents(ctx context.Context, house domain.SigningPubkey, user domain.UserID, lastEventID string) error {
	endpoint := fmt.Sprintf("%s/api/houses/%s/events/ack", c.base, url.PathEscape(string(house)))
	body := struct {
		UserID      domain.UserID `json:"user_id"`
		LastEventID string        `json:"last_event_id"`
	}{UserID: user, LastEventID: lastEventID}
	return c.postJSON(ctx, endpoint, body)
}

// FetchHint retrieves the opaque signed house descriptor; a 404 means
// no hint has been published yet.
func (c *Client) FetchHint(ctx context.Context, house domain.SigningPubkey) (domain.HouseHint, bool, error) {
	endpoint := fmt.Sprintf("%s/api/houses/%s/hint", c.base, url.PathEscape(string(house)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.HouseHint{}, false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.HouseHint{}, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return domain.HouseHint{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return domain.HouseHint{}, false, fmt.Errorf("fetch hint: %s", resp.Status)
	}
	var hint domain.HouseHint
	if err := json.NewDecoder(resp.Body).Decode(&hint); err != nil {
		return domain.HouseHint{}, false, fmt.Errorf("fetch hint: %w", err)
	}
	return hint, true, nil
}

// RegisterHint publishes the opaque signed descriptor for a house.
func (c *Client) RegisterHint(ctx context.Context, hint domain.HouseHint) error {
	endpoint := fmt.Sprintf("%s/api/houses/%s/register", c.base, url.PathEscape(string(hint.SigningPubkey)))
	return c.postJSON(ctx, endpoint, hint)
}

// PostEvent appends one event to a house's queue. The server assigns
// the event id and timestamp.
func (c *Client) PostEvent(ctx context.Context, ev domain.HouseEvent) error {
	endpoint := fmt.Sprintf("%s/api/houses/%s/events", c.base, url.PathEscape(string(ev.SigningPubkey)))
	return c.postJSON(ctx, endpoint, ev)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post %s: %s", endpoint, resp.Status)
	}
	return nil
}
