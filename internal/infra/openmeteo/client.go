package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yanqian/stylecast/internal/domain/weather"
)

const (
	defaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	defaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
	defaultTimeout      = 10 * time.Second
)

// Options configures both Open-Meteo clients.
type Options struct {
	GeocodingURL string
	ForecastURL  string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// GeocodingClient resolves place names to coordinates.
type GeocodingClient struct {
	baseURL    string
	httpClient *http.Client
}

// ForecastClient fetches current conditions for a coordinate pair.
type ForecastClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGeocodingClient builds a geocoding API client.
func NewGeocodingClient(opts Options) *GeocodingClient {
	return &GeocodingClient{
		baseURL:    normalizeURL(opts.GeocodingURL, defaultGeocodingURL),
		httpClient: httpClientFor(opts),
	}
}

// NewForecastClient builds a forecast API client.
func NewForecastClient(opts Options) *ForecastClient {
	return &ForecastClient{
		baseURL:    normalizeURL(opts.ForecastURL, defaultForecastURL),
		httpClient: httpClientFor(opts),
	}
}

// Resolve returns the single best match for city. A response without results
// is reported as found=false with a nil error.
func (c *GeocodingClient) Resolve(ctx context.Context, city string) (weather.Coordinates, bool, error) {
	query := url.Values{}
	query.Set("name", city)
	query.Set("count", "1")
	query.Set("language", "en")
	query.Set("format", "json")

	var raw geocodingResponse
	if err := getJSON(ctx, c.httpClient, c.baseURL+"?"+query.Encode(), &raw); err != nil {
		return weather.Coordinates{}, false, fmt.Errorf("geocoding: %w", err)
	}
	if len(raw.Results) == 0 {
		return weather.Coordinates{}, false, nil
	}
	best := raw.Results[0]
	return weather.Coordinates{
		ID:        best.ID,
		Latitude:  best.Latitude,
		Longitude: best.Longitude,
		PlaceName: best.Name,
		Country:   best.Country,
	}, true, nil
}

// Current returns current conditions. A response without a current_weather
// block is reported as found=false with a nil error.
func (c *ForecastClient) Current(ctx context.Context, lat, lon float64) (weather.Conditions, bool, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("current_weather", "true")

	var raw forecastResponse
	if err := getJSON(ctx, c.httpClient, c.baseURL+"?"+query.Encode(), &raw); err != nil {
		return weather.Conditions{}, false, fmt.Errorf("forecast: %w", err)
	}
	if raw.CurrentWeather == nil {
		return weather.Conditions{}, false, nil
	}
	cw := raw.CurrentWeather
	return weather.Annotate(cw.Temperature, cw.WeatherCode, cw.IsDay == 1), true, nil
}

type geocodingResponse struct {
	Results []geocodingResult `json:"results"`
}

type geocodingResult struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
}

type forecastResponse struct {
	CurrentWeather *currentWeather `json:"current_weather"`
}

type currentWeather struct {
	Temperature float64 `json:"temperature"`
	WeatherCode int     `json:"weathercode"`
	IsDay       int     `json:"is_day"`
}

func getJSON(ctx context.Context, client *http.Client, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("request error: status=%d body=%s", resp.StatusCode, string(payload))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func normalizeURL(raw, fallback string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = fallback
	}
	return strings.TrimRight(trimmed, "/?")
}

func httpClientFor(opts Options) *http.Client {
	if opts.HTTPClient != nil {
		return opts.HTTPClient
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}
