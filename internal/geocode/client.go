package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Charan951/driveflow-dashboard-sub000/internal/shared/geo"
)

// Client talks to the external mapping provider for reverse/forward
// geocoding and route estimates.
type Client struct {
	geocodeBase    string
	directionsBase string
	http           *http.Client
}

func NewClient(geocodeBase, directionsBase string) *Client {
	return &Client{
		geocodeBase:    geocodeBase,
		directionsBase: directionsBase,
		http:           &http.Client{Timeout: 10 * time.Second},
	}
}

type Place struct {
	PlaceID     json.Number `json:"place_id"`
	DisplayName string      `json:"display_name"`
	Lat         string      `json:"lat"`
	Lon         string      `json:"lon"`
}

type RouteEstimate struct {
	TextDuration    string  `json:"textDuration"`
	TextDistance    string  `json:"textDistance"`
	DurationSeconds float64 `json:"durationSeconds"`
	DistanceMeters  float64 `json:"distanceMeters"`
}

func (c *Client) Reverse(ctx context.Context, lat, lng float64) (Place, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))

	var place Place
	if err := c.getJSON(ctx, c.geocodeBase+"/reverse?"+q.Encode(), &place); err != nil {
		return Place{}, err
	}
	return place, nil
}

func (c *Client) Search(ctx context.Context, query string, limit int, countryCodes string) ([]Place, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if countryCodes != "" {
		q.Set("countrycodes", countryCodes)
	}

	var places []Place
	if err := c.getJSON(ctx, c.geocodeBase+"/search?"+q.Encode(), &places); err != nil {
		return nil, err
	}
	return places, nil
}

// osrmResponse is the subset of the OSRM route response we read.
type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Duration float64 `json:"duration"`
		Distance float64 `json:"distance"`
	} `json:"routes"`
}

func (c *Client) ETA(ctx context.Context, origin, dest geo.Point) (RouteEstimate, error) {
	coords := fmt.Sprintf("%f,%f;%f,%f", origin.Lng, origin.Lat, dest.Lng, dest.Lat)

	var resp osrmResponse
	if err := c.getJSON(ctx, c.directionsBase+"/route/v1/driving/"+coords+"?overview=false", &resp); err != nil {
		return RouteEstimate{}, err
	}
	if resp.Code != "Ok" || len(resp.Routes) == 0 {
		return RouteEstimate{}, fmt.Errorf("no route found")
	}

	route := resp.Routes[0]
	return RouteEstimate{
		TextDuration:    formatDuration(route.Duration),
		TextDistance:    formatDistance(route.Distance),
		DurationSeconds: route.Duration,
		DistanceMeters:  route.Distance,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mapping service returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func formatDuration(seconds float64) string {
	mins := int(seconds / 60)
	if mins < 1 {
		return "1 min"
	}
	if mins < 60 {
		return fmt.Sprintf("%d mins", mins)
	}
	return fmt.Sprintf("%d hr %d mins", mins/60, mins%60)
}

func formatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}
