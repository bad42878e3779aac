package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const DefaultComicVineURL = "https://comicvine.gamespot.com/api"

// ErrNoResults is returned when a search matched nothing.
var ErrNoResults = errors.New("comicvine: no results")

// Getter is satisfied by fetch.Client.
type Getter interface {
	Get(ctx context.Context, url string, hdr http.Header) (*http.Response, error)
}

// Issue is the subset of a Comic Vine issue record used to name files.
type Issue struct {
	Volume    string
	Number    string
	Title     string
	CoverDate string // "2012-03-14", may be empty
}

type ComicVine struct {
	client  Getter
	baseURL string
	key     string
}

func NewComicVine(client Getter, baseURL, key string) *ComicVine {
	if baseURL == "" {
		baseURL = DefaultComicVineURL
	}
	return &ComicVine{client: client, baseURL: strings.TrimRight(baseURL, "/"), key: key}
}

type searchResponse struct {
	Error      string `json:"error"`
	StatusCode int    `json:"status_code"`
	Results    []struct {
		Name        string `json:"name"`
		IssueNumber string `json:"issue_number"`
		CoverDate   string `json:"cover_date"`
		Volume      struct {
			Name string `json:"name"`
		} `json:"volume"`
	} `json:"results"`
}

// SearchIssue returns the first issue matching query ("Saga 1").
func (c *ComicVine) SearchIssue(ctx context.Context, query string) (Issue, error) {
	params := url.Values{}
	params.Set("api_key", c.key)
	params.Set("format", "json")
	params.Set("resources", "issue")
	params.Set("field_list", "name,issue_number,volume,cover_date")
	params.Set("limit", "1")
	params.Set("query", query)

	hdr := http.Header{}
	hdr.Set("Accept", "application/json")
	resp, err := c.client.Get(ctx, c.baseURL+"/search/?"+params.Encode(), hdr)
	if err != nil {
		return Issue{}, fmt.Errorf("comicvine search %q: %w", query, err)
	}
	defer resp.Body.Close()

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return Issue{}, fmt.Errorf("comicvine decode: %w", err)
	}
	if sr.StatusCode != 1 {
		return Issue{}, fmt.Errorf("comicvine: %s (status %d)", sr.Error, sr.StatusCode)
	}
	if len(sr.Results) == 0 {
		return Issue{}, ErrNoResults
	}
	r := sr.Results[0]
	return Issue{
		Volume:    strings.TrimSpace(r.Volume.Name),
		Number:    strings.TrimSpace(r.IssueNumber),
		Title:     strings.TrimSpace(r.Name),
		CoverDate: strings.TrimSpace(r.CoverDate),
	}, nil
}
