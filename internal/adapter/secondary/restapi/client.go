// Package restapi reads shows and serial interfaces from the controller's
// REST API. It is read-only.
package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dmxctl/internal/domain"
)

// ErrNotFound is returned for a 404 response.
var ErrNotFound = errors.New("not found")

// Client implements domain.ShowSource over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the controller at baseURL (e.g. http://rig:8080).
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type apiError struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("GET %s: %w", path, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("GET %s: %s: %s", path, resp.Status, apiErr.Error)
		}
		return fmt.Errorf("GET %s: bad status %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) ListShows(ctx context.Context) ([]domain.Show, error) {
	var shows []domain.Show
	if err := c.get(ctx, "/api/shows", &shows); err != nil {
		return nil, err
	}
	return shows, nil
}

func (c *Client) GetShow(ctx context.Context, id string) (domain.Show, error) {
	if id == "" {
		return domain.Show{}, domain.ErrMissingID
	}
	var show domain.Show
	if err := c.get(ctx, "/api/shows/"+url.PathEscape(id), &show); err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Show{}, fmt.Errorf("%w: %s", domain.ErrShowNotFound, id)
		}
		return domain.Show{}, err
	}
	return show, nil
}

// ListInterfaces returns the serial ports the controller can drive.
func (c *Client) ListInterfaces(ctx context.Context) ([]string, error) {
	var ports []string
	if err := c.get(ctx, "/api/usb/interfaces", &ports); err != nil {
		return nil, err
	}
	return ports, nil
}
