package imagery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

var ErrRateLimited = errors.New("image search rate limited")

// Candidate is one search hit. URL points at a downloadable rendition.
type Candidate struct {
	URL         string
	Attribution string
}

// Searcher finds candidate photos for a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
}

// Unsplash searches the Unsplash photo API.
type Unsplash struct {
	baseURL   string
	accessKey string
	perPage   int
	client    *http.Client
}

func NewUnsplash(baseURL, accessKey string, client *http.Client) *Unsplash {
	if client == nil {
		client = http.DefaultClient
	}
	return &Unsplash{
		baseURL:   strings.TrimRight(baseURL, "/"),
		accessKey: accessKey,
		perPage:   3,
		client:    client,
	}
}

type unsplashResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
			Small   string `json:"small"`
		} `json:"urls"`
		User struct {
			Name string `json:"name"`
		} `json:"user"`
	} `json:"results"`
}

func (u *Unsplash) Search(ctx context.Context, query string) ([]Candidate, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("per_page", strconv.Itoa(u.perPage))
	q.Set("orientation", "landscape")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+"/search/photos?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+u.accessKey)
	req.Header.Set("Accept-Version", "v1")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-Ratelimit-Remaining") == "0":
		return nil, ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search %q: status %d: %s", query, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out unsplashResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	cands := make([]Candidate, 0, len(out.Results))
	for _, r := range out.Results {
		link := r.URLs.Regular
		if link == "" {
			link = r.URLs.Small
		}
		if link == "" {
			continue
		}
		c := Candidate{URL: link}
		if r.User.Name != "" {
			c.Attribution = "Photo by " + r.User.Name + " on Unsplash"
		}
		cands = append(cands, c)
	}
	return cands, nil
}
