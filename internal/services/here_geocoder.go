package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

const hereRevGeocodeURL = "https://revgeocode.search.hereapi.com/v1/revgeocode"

// hereRevGeocodeResponse represents the response from HERE Reverse Geocoding API
type hereRevGeocodeResponse struct {
	Items []struct {
		Address struct {
			Label string `json:"label"`
		} `json:"address"`
		Distance float64 `json:"distance"`
	} `json:"items"`
}

// HEREGeocoder reverse geocodes using HERE Maps API
type HEREGeocoder struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewHEREGeocoder(apiKey string, timeout time.Duration) *HEREGeocoder {
	return &HEREGeocoder{
		apiKey:  apiKey,
		baseURL: hereRevGeocodeURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// ReverseGeocode returns the label of the closest address
func (g *HEREGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	params := url.Values{}
	params.Add("at", fmt.Sprintf("%f,%f", lat, lng))
	params.Add("limit", "1")
	params.Add("apiKey", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("geocoding API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result hereRevGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse geocoding response: %w", err)
	}

	if len(result.Items) == 0 || result.Items[0].Address.Label == "" {
		return "", fmt.Errorf("no address found at %f,%f", lat, lng)
	}

	log.Printf("   ✅ Found: %s (%.0fm away)", result.Items[0].Address.Label, result.Items[0].Distance)
	return result.Items[0].Address.Label, nil
}
