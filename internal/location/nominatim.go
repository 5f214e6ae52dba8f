package location

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
	"time"

	"github.com/snacktacular/snacktacular/backend/go-services/internal/place"
)

const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	defaultUserAgent = "snacktacular-places/1.0"
	defaultLimit     = 5
)

var ErrNoResult = errors.New("no geocoding result")

// Client is a Nominatim-compatible geocoding client. It serves both reverse
// geocoding for drafts and free-text autocomplete.
type Client struct {
	baseURL    string
	userAgent  string
	limit      int
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpClient = h } }
func WithUserAgent(ua string) Option       { return func(c *Client) { c.userAgent = ua } }
func WithLimit(n int) Option               { return func(c *Client) { c.limit = n } }

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  defaultUserAgent,
		limit:      defaultLimit,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type nominatimAddress struct {
	HouseNumber string `json:"house_number"`
	Road        string `json:"road"`
	Pedestrian  string `json:"pedestrian"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
}

func (a nominatimAddress) thoroughfare() string {
	if a.Road != "" {
		return a.Road
	}
	return a.Pedestrian
}

func (a nominatimAddress) locality() string {
	switch {
	case a.City != "":
		return a.City
	case a.Town != "":
		return a.Town
	}
	return a.Village
}

type nominatimPlace struct {
	Name        string           `json:"name"`
	DisplayName string           `json:"display_name"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Address     nominatimAddress `json:"address"`
	Error       string           `json:"error"`
}

func (p nominatimPlace) name() string {
	if p.Name != "" {
		return p.Name
	}
	first, _, _ := strings.Cut(p.DisplayName, ",")
	return strings.TrimSpace(first)
}

func (p nominatimPlace) street() string {
	road := p.Address.thoroughfare()
	if road == "" {
		return ""
	}
	if p.Address.HouseNumber != "" {
		road = p.Address.HouseNumber + " " + road
	}
	if loc := p.Address.locality(); loc != "" {
		road += ", " + loc
	}
	return road
}

func (p nominatimPlace) coordinate() (place.Coordinate, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return place.Coordinate{}, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return place.Coordinate{}, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}
	return place.Coordinate{Latitude: lat, Longitude: lon}, nil
}

// ReverseGeocode returns the placemark nearest to c.
func (c *Client) ReverseGeocode(ctx context.Context, coord place.Coordinate) (place.Placemark, error) {
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("lat", strconv.FormatFloat(coord.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(coord.Longitude, 'f', -1, 64))
	params.Set("addressdetails", "1")

	var res nominatimPlace
	if err := c.get(ctx, "/reverse", params, &res); err != nil {
		return place.Placemark{}, err
	}
	if res.Error != "" {
		return place.Placemark{}, fmt.Errorf("%w: %s", ErrNoResult, res.Error)
	}
	return place.Placemark{Name: res.name(), Thoroughfare: res.Address.thoroughfare()}, nil
}

// Autocomplete returns up to the configured number of places matching query.
func (c *Client) Autocomplete(ctx context.Context, query string) ([]place.Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, place.ErrAutocompleteCancelled
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")
	params.Set("limit", strconv.Itoa(c.limit))

	var results []nominatimPlace
	if err := c.get(ctx, "/search", params, &results); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %v", place.ErrAutocompleteCancelled, err)
		}
		return nil, err
	}
	out := make([]place.Suggestion, 0, len(results))
	for _, r := range results {
		coord, err := r.coordinate()
		if err != nil {
			continue
		}
		addr := r.street()
		if addr == "" {
			addr = r.DisplayName
		}
		out = append(out, place.Suggestion{Name: r.name(), Address: addr, Coordinate: coord})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	reqURL := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("geocoding request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("geocoding endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode geocoding response: %w", err)
	}
	return nil
}
