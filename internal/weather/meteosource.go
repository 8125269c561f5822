package weather

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const meteosourceBaseURL = "https://www.meteosource.com/api/v1/free"

// MeteosourceClient reads the short hourly forecast used for fog scoring.
type MeteosourceClient struct {
	apiKey string
	opts   clientOptions
}

func NewMeteosourceClient(apiKey string, opts ...ClientOption) *MeteosourceClient {
	return &MeteosourceClient{apiKey: apiKey, opts: buildOptions(meteosourceBaseURL, opts)}
}

type meteosourceResponse struct {
	Hourly struct {
		Data []struct {
			Date       string           `json:"date"`
			Visibility *float64         `json:"visibility"`
			CloudCover meteosourceCloud `json:"cloud_cover"`
		} `json:"data"`
	} `json:"hourly"`
}

// meteosourceCloud accepts either a bare number or an object with a total
// field. Null and missing values leave Total nil.
type meteosourceCloud struct {
	Total *float64
}

func (c *meteosourceCloud) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		c.Total = nil
		return nil
	}
	if data[0] == '{' {
		var obj struct {
			Total *float64 `json:"total"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		c.Total = obj.Total
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("cloud_cover: %w", err)
	}
	c.Total = &v
	return nil
}

func (c *MeteosourceClient) Name() string {
	return "meteosource"
}

func (c *MeteosourceClient) Fog(ctx context.Context, loc Location) ([]FogReading, error) {
	if c.apiKey == "" {
		return nil, &UpstreamError{Source: c.Name(), Err: errors.New("api key is empty")}
	}

	query := url.Values{}
	if loc.PlaceID != "" {
		query.Set("place_id", loc.PlaceID)
	} else {
		query.Set("lat", formatCoord(loc.Latitude))
		query.Set("lon", formatCoord(loc.Longitude))
	}
	query.Set("sections", "hourly")
	query.Set("timezone", "auto")
	query.Set("language", "en")
	query.Set("units", "us")
	query.Set("key", c.apiKey)

	endpoint := strings.TrimRight(c.opts.baseURL, "/") + "/point?" + query.Encode()

	var payload meteosourceResponse
	if err := getJSON(ctx, c.opts.httpClient, c.Name(), endpoint, &payload); err != nil {
		return nil, err
	}

	data := payload.Hourly.Data
	if len(data) > fogHorizonHours {
		data = data[:fogHorizonHours]
	}

	readings := make([]FogReading, 0, len(data))
	for _, h := range data {
		at, err := time.ParseInLocation("2006-01-02T15:04:05", h.Date, loc.Zone)
		if err != nil {
			return nil, upstreamErr(c.Name(), "parse date %q: %w", h.Date, err)
		}
		readings = append(readings, FogReading{
			Time:       at,
			Visibility: h.Visibility,
			CloudCover: h.CloudCover.Total,
		})
	}
	return readings, nil
}
