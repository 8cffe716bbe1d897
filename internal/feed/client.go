// Package feed pulls live car park availability from the public transport API.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	facilityDomain "github.com/parkwise/service-parking/internal/domain/facility"
)

// DefaultURL is the public car park availability endpoint.
const DefaultURL = "https://api.data.gov.sg/v1/transport/carpark-availability"

const maxBodyBytes = 32 << 20

// feedResponse mirrors the upstream document: items[0].carpark_data[].
type feedResponse struct {
	Items []struct {
		Timestamp   string `json:"timestamp"`
		CarparkData []struct {
			CarparkNumber  string `json:"carpark_number"`
			UpdateDatetime string `json:"update_datetime"`
			CarparkInfo    []struct {
				TotalLots     string `json:"total_lots"`
				LotType       string `json:"lot_type"`
				LotsAvailable string `json:"lots_available"`
			} `json:"carpark_info"`
		} `json:"carpark_data"`
	} `json:"items"`
}

// Client fetches availability snapshots.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a Client. An empty url selects DefaultURL.
func NewClient(url string, httpClient *http.Client) *Client {
	if url == "" {
		url = DefaultURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{url: url, httpClient: httpClient}
}

// Fetch downloads the current feed and returns one snapshot per car park.
// Only the first lot-type entry of each car park is used.
func (c *Client) Fetch(ctx context.Context) ([]facilityDomain.Availability, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("feed returned %d: %s", res.StatusCode, string(snippet))
	}

	var doc feedResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, maxBodyBytes)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return toSnapshots(doc), nil
}

func toSnapshots(doc feedResponse) []facilityDomain.Availability {
	if len(doc.Items) == 0 {
		return nil
	}

	data := doc.Items[0].CarparkData
	out := make([]facilityDomain.Availability, 0, len(data))
	for _, cp := range data {
		if cp.CarparkNumber == "" || len(cp.CarparkInfo) == 0 {
			continue
		}
		info := cp.CarparkInfo[0]
		snap := facilityDomain.Availability{
			CarParkNo:     cp.CarparkNumber,
			TotalLots:     atoi(info.TotalLots),
			LotsAvailable: atoi(info.LotsAvailable),
			LotType:       info.LotType,
			Source:        facilityDomain.SourceFeed,
		}
		if t, err := time.Parse("2006-01-02T15:04:05", cp.UpdateDatetime); err == nil {
			snap.UpdatedAt = t.UTC()
		}
		out = append(out, snap.Normalize())
	}
	return out
}

// atoi parses a count, treating anything unparseable as zero.
func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
