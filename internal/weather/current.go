package weather

import (
	"context"
	"errors"
	"math"
	"net/url"
	"strings"
)

const (
	weatherAPIBaseURL  = "https://api.weatherapi.com"
	openWeatherBaseURL = "https://api.openweathermap.org"
)

// WeatherAPIClient reads current conditions from weatherapi.com.
type WeatherAPIClient struct {
	apiKey string
	opts   clientOptions
}

func NewWeatherAPIClient(apiKey string, opts ...ClientOption) *WeatherAPIClient {
	return &WeatherAPIClient{apiKey: apiKey, opts: buildOptions(weatherAPIBaseURL, opts)}
}

type weatherAPIResponse struct {
	Current *struct {
		TempF     float64 `json:"temp_f"`
		TempC     float64 `json:"temp_c"`
		Condition struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *WeatherAPIClient) Name() string {
	return "weatherapi"
}

func (c *WeatherAPIClient) Current(ctx context.Context, loc Location) (*Current, error) {
	if c.apiKey == "" {
		return nil, &UpstreamError{Source: c.Name(), Err: errors.New("api key is empty")}
	}

	query := url.Values{}
	query.Set("key", c.apiKey)
	query.Set("q", loc.query())

	endpoint := strings.TrimRight(c.opts.baseURL, "/") + "/v1/current.json?" + query.Encode()

	var payload weatherAPIResponse
	if err := getJSON(ctx, c.opts.httpClient, c.Name(), endpoint, &payload); err != nil {
		return nil, err
	}
	if payload.Error != nil {
		return nil, upstreamErr(c.Name(), "api error %d: %s", payload.Error.Code, payload.Error.Message)
	}
	if payload.Current == nil {
		return nil, upstreamErr(c.Name(), "current data missing")
	}

	return &Current{
		TempF:     payload.Current.TempF,
		TempC:     payload.Current.TempC,
		Condition: payload.Current.Condition.Text,
	}, nil
}

// OpenWeatherClient reads current conditions from OpenWeatherMap.
type OpenWeatherClient struct {
	apiKey string
	opts   clientOptions
}

func NewOpenWeatherClient(apiKey string, opts ...ClientOption) *OpenWeatherClient {
	return &OpenWeatherClient{apiKey: apiKey, opts: buildOptions(openWeatherBaseURL, opts)}
}

type openWeatherResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main *struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
}

func (c *OpenWeatherClient) Name() string {
	return "openweather"
}

func (c *OpenWeatherClient) Current(ctx context.Context, loc Location) (*Current, error) {
	if c.apiKey == "" {
		return nil, &UpstreamError{Source: c.Name(), Err: errors.New("api key is empty")}
	}

	query := url.Values{}
	query.Set("appid", c.apiKey)
	query.Set("units", "metric")
	query.Set("lat", formatCoord(loc.Latitude))
	query.Set("lon", formatCoord(loc.Longitude))

	endpoint := strings.TrimRight(c.opts.baseURL, "/") + "/data/2.5/weather?" + query.Encode()

	var payload openWeatherResponse
	if err := getJSON(ctx, c.opts.httpClient, c.Name(), endpoint, &payload); err != nil {
		return nil, err
	}
	if payload.Main == nil {
		return nil, upstreamErr(c.Name(), "main data missing")
	}

	condition := ""
	if len(payload.Weather) > 0 {
		condition = payload.Weather[0].Main
	}

	tempC := payload.Main.Temp
	return &Current{
		TempF:     math.Round((tempC*9/5+32)*10) / 10,
		TempC:     tempC,
		Condition: condition,
	}, nil
}
