package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pdt = time.FixedZone("PDT", -7*3600)

func testLocation() Location {
	return Location{
		Slug:      "san-francisco",
		Name:      "San Francisco",
		Latitude:  37.7749,
		Longitude: -122.4194,
		Zone:      pdt,
		TZ:        "America/Los_Angeles",
		Query:     "san francisco",
		PlaceID:   "san-francisco",
	}
}

func serve(t *testing.T, status int, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const sunriseSunsetBody = `{
  "results": {
    "sunrise": "2025-06-14T12:48:10+00:00",
    "sunset": "2025-06-15T03:34:00+00:00",
    "solar_noon": "2025-06-14T20:11:05+00:00",
    "day_length": 53150,
    "civil_twilight_begin": "2025-06-14T12:15:30+00:00",
    "civil_twilight_end": "2025-06-15T04:06:40+00:00",
    "nautical_twilight_begin": "2025-06-14T11:35:00+00:00",
    "nautical_twilight_end": "2025-06-15T04:47:10+00:00",
    "astronomical_twilight_begin": "1970-01-01T00:00:01+00:00",
    "astronomical_twilight_end": "1970-01-01T00:00:01+00:00"
  },
  "status": "OK",
  "tzid": "UTC"
}`

func TestSunriseSunsetClient(t *testing.T) {
	srv := serve(t, http.StatusOK, sunriseSunsetBody, func(r *http.Request) {
		assert.Equal(t, "/json", r.URL.Path)
		assert.Equal(t, "2025-06-14", r.URL.Query().Get("date"))
		assert.Equal(t, "0", r.URL.Query().Get("formatted"))
		assert.Equal(t, "America/Los_Angeles", r.URL.Query().Get("tzid"))
	})

	c := NewSunriseSunsetClient(WithBaseURL(srv.URL))
	eph, err := c.Ephemeris(context.Background(), testLocation(), time.Date(2025, 6, 14, 3, 0, 0, 0, pdt))
	require.NoError(t, err)

	require.Equal(t, "5:48 AM", eph.Sunrise.Format("3:04 PM"))
	require.Equal(t, pdt, eph.Sunrise.Location())
	require.Equal(t, "8:34 PM", eph.Sunset.Format("3:04 PM"))
	require.Equal(t, "5:15 AM", eph.CivilTwilightBegin.Format("3:04 PM"))
	require.Equal(t, "4:35 AM", eph.NauticalBegin.Format("3:04 PM"))
	require.True(t, eph.AstronomicalBegin.IsZero())
	require.True(t, eph.AstronomicalEnd.IsZero())
	require.Equal(t, 53150*time.Second, eph.DayLength)
}

func TestSunriseSunsetClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "bad status", status: http.StatusInternalServerError, body: `oops`},
		{name: "api status", status: http.StatusOK, body: `{"results": {}, "status": "INVALID_DATE"}`},
		{name: "malformed", status: http.StatusOK, body: `{"results": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.status, tt.body, nil)
			c := NewSunriseSunsetClient(WithBaseURL(srv.URL))
			_, err := c.Ephemeris(context.Background(), testLocation(), time.Now())
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrUpstreamUnavailable))

			var upErr *UpstreamError
			require.ErrorAs(t, err, &upErr)
			require.Equal(t, "sunrise-sunset", upErr.Source)
		})
	}
}

func TestUpstreamErrorTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewSunriseSunsetClient(WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond))
	_, err := c.Ephemeris(context.Background(), testLocation(), time.Now())
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

const visualCrossingBody = `{
  "days": [{
    "datetime": "2025-06-14",
    "sunrise": "05:48:10",
    "sunset": "20:34:00",
    "moonphase": 0.59,
    "moonrise": "23:10:05",
    "moonset": "08:01:44",
    "hours": [
      {"datetime": "05:00:00", "cloudcover": 80.0, "visibility": 3.1},
      {"datetime": "06:00:00", "cloudcover": 45.0, "visibility": 10.0},
      {"datetime": "07:00:00", "cloudcover": null, "visibility": null},
      {"datetime": "20:00:00", "cloudcover": 30.5, "visibility": 9.9}
    ]
  }]
}`

func TestVisualCrossingClient(t *testing.T) {
	srv := serve(t, http.StatusOK, visualCrossingBody, func(r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/san francisco/2025-06-14"), r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.Equal(t, "us", r.URL.Query().Get("unitGroup"))
	})

	c := NewVisualCrossingClient("secret", WithBaseURL(srv.URL))
	day, err := c.Hourly(context.Background(), testLocation(), time.Date(2025, 6, 14, 4, 0, 0, 0, pdt))
	require.NoError(t, err)

	require.Equal(t, 5, day.SunriseHour)
	require.Equal(t, 20, day.SunsetHour)
	require.Len(t, day.Hours, 4)
	require.Equal(t, time.Date(2025, 6, 14, 6, 0, 0, 0, pdt), day.Hours[1].Time)
	require.Equal(t, 45.0, *day.Hours[1].CloudCover)
	require.Nil(t, day.Hours[2].CloudCover)
	require.Nil(t, day.Hours[2].Visibility)

	require.NotNil(t, day.Moon.Phase)
	require.Equal(t, 0.59, *day.Moon.Phase)
	require.Equal(t, "11:10 PM", day.Moon.Rise.Format("3:04 PM"))
	require.Equal(t, "8:01 AM", day.Moon.Set.Format("3:04 PM"))
}

func TestVisualCrossingClientMissingKey(t *testing.T) {
	c := NewVisualCrossingClient("")
	_, err := c.Hourly(context.Background(), testLocation(), time.Now())
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestVisualCrossingClientNoDays(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"days": []}`, nil)
	c := NewVisualCrossingClient("secret", WithBaseURL(srv.URL))
	_, err := c.Hourly(context.Background(), testLocation(), time.Now())
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestClockHour(t *testing.T) {
	h, err := clockHour("06:48:12")
	require.NoError(t, err)
	require.Equal(t, 6, h)

	h, err = clockHour("19:05")
	require.NoError(t, err)
	require.Equal(t, 19, h)

	_, err = clockHour("")
	require.Error(t, err)
	_, err = clockHour("25:00")
	require.Error(t, err)
}

func TestMeteosourceClient(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"hourly": {"data": [`)
	b.WriteString(`{"date": "2025-06-14T05:00:00", "visibility": 2.5, "cloud_cover": {"total": 90}},`)
	b.WriteString(`{"date": "2025-06-14T06:00:00", "visibility": null, "cloud_cover": 40},`)
	b.WriteString(`{"date": "2025-06-14T07:00:00", "visibility": 9, "cloud_cover": null}`)
	for i := 8; i < 20; i++ {
		fmt.Fprintf(&b, `,{"date": "2025-06-14T%02d:00:00", "visibility": 10, "cloud_cover": {"total": 5}}`, i)
	}
	b.WriteString(`]}}`)

	srv := serve(t, http.StatusOK, b.String(), func(r *http.Request) {
		assert.Equal(t, "/point", r.URL.Path)
		assert.Equal(t, "san-francisco", r.URL.Query().Get("place_id"))
		assert.Equal(t, "hourly", r.URL.Query().Get("sections"))
		assert.Equal(t, "us", r.URL.Query().Get("units"))
	})

	c := NewMeteosourceClient("secret", WithBaseURL(srv.URL))
	readings, err := c.Fog(context.Background(), testLocation())
	require.NoError(t, err)
	require.Len(t, readings, fogHorizonHours)

	require.Equal(t, time.Date(2025, 6, 14, 5, 0, 0, 0, pdt), readings[0].Time)
	require.Equal(t, 2.5, *readings[0].Visibility)
	require.Equal(t, 90.0, *readings[0].CloudCover)

	require.Nil(t, readings[1].Visibility)
	require.Equal(t, 40.0, *readings[1].CloudCover)

	require.Nil(t, readings[2].CloudCover)
}

func TestMeteosourceClientLatLon(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"hourly": {"data": []}}`, func(r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("place_id"))
		assert.Equal(t, "37.774900", r.URL.Query().Get("lat"))
		assert.Equal(t, "-122.419400", r.URL.Query().Get("lon"))
	})

	loc := testLocation()
	loc.PlaceID = ""
	c := NewMeteosourceClient("secret", WithBaseURL(srv.URL))
	readings, err := c.Fog(context.Background(), loc)
	require.NoError(t, err)
	require.Empty(t, readings)
}

func TestMeteosourceClientBadDate(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"hourly": {"data": [{"date": "tomorrow", "cloud_cover": 3}]}}`, nil)
	c := NewMeteosourceClient("secret", WithBaseURL(srv.URL))
	_, err := c.Fog(context.Background(), testLocation())
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

const openMeteoBody = `{
  "timezone": "America/Los_Angeles",
  "hourly": {
    "time": ["2025-06-14T04:00", "2025-06-14T05:00", "2025-06-14T06:00", "2025-06-15T00:00"],
    "cloud_cover": [100, 75, null, 10],
    "visibility": [160.9344, 1609.344, 16093.44, null]
  },
  "daily": {
    "time": ["2025-06-14"],
    "sunrise": ["2025-06-14T05:48"],
    "sunset": ["2025-06-14T20:34"]
  }
}`

func TestOpenMeteoClientHourly(t *testing.T) {
	srv := serve(t, http.StatusOK, openMeteoBody, func(r *http.Request) {
		assert.Equal(t, "/v1/forecast", r.URL.Path)
		assert.Equal(t, "cloud_cover,visibility", r.URL.Query().Get("hourly"))
		assert.Equal(t, "2025-06-14", r.URL.Query().Get("start_date"))
	})

	c := NewOpenMeteoClient(WithBaseURL(srv.URL))
	day, err := c.Hourly(context.Background(), testLocation(), time.Date(2025, 6, 14, 2, 0, 0, 0, pdt))
	require.NoError(t, err)

	require.Equal(t, 5, day.SunriseHour)
	require.Equal(t, 20, day.SunsetHour)
	require.Len(t, day.Hours, 3)
	require.InDelta(t, 0.1, *day.Hours[0].Visibility, 1e-9)
	require.InDelta(t, 1.0, *day.Hours[1].Visibility, 1e-9)
	require.Nil(t, day.Hours[2].CloudCover)
	require.Nil(t, day.Moon.Phase)
}

func TestOpenMeteoClientFog(t *testing.T) {
	srv := serve(t, http.StatusOK, openMeteoBody, nil)

	c := NewOpenMeteoClient(WithBaseURL(srv.URL))
	c.now = func() time.Time { return time.Date(2025, 6, 14, 5, 30, 0, 0, pdt) }

	readings, err := c.Fog(context.Background(), testLocation())
	require.NoError(t, err)
	require.Len(t, readings, 3)
	require.Equal(t, time.Date(2025, 6, 14, 5, 0, 0, 0, pdt), readings[0].Time)
	require.Equal(t, 75.0, *readings[0].CloudCover)
	require.Nil(t, readings[2].Visibility)
}

func TestOpenMeteoClientEmpty(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"hourly": {"time": []}}`, nil)
	c := NewOpenMeteoClient(WithBaseURL(srv.URL))
	_, err := c.Fog(context.Background(), testLocation())
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestWeatherAPIClient(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"current": {"temp_f": 58.1, "temp_c": 14.5, "condition": {"text": "Mist"}}}`, func(r *http.Request) {
		assert.Equal(t, "/v1/current.json", r.URL.Path)
		assert.Equal(t, "san francisco", r.URL.Query().Get("q"))
	})

	c := NewWeatherAPIClient("secret", WithBaseURL(srv.URL))
	cur, err := c.Current(context.Background(), testLocation())
	require.NoError(t, err)
	require.Equal(t, 58.1, cur.TempF)
	require.Equal(t, 14.5, cur.TempC)
	require.Equal(t, "Mist", cur.Condition)
}

func TestWeatherAPIClientErrorPayload(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"error": {"code": 2006, "message": "API key is invalid."}}`, nil)
	c := NewWeatherAPIClient("bad", WithBaseURL(srv.URL))
	_, err := c.Current(context.Background(), testLocation())
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	require.Contains(t, err.Error(), "API key is invalid.")
}

func TestOpenWeatherClient(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"weather": [{"main": "Fog", "description": "fog"}], "main": {"temp": 15}}`, func(r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
	})

	c := NewOpenWeatherClient("secret", WithBaseURL(srv.URL))
	cur, err := c.Current(context.Background(), testLocation())
	require.NoError(t, err)
	require.Equal(t, 15.0, cur.TempC)
	require.Equal(t, 59.0, cur.TempF)
	require.Equal(t, "Fog", cur.Condition)
}

func TestFixedZone(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	summer := FixedZone(la, time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC))
	_, offset := time.Date(2025, 12, 1, 0, 0, 0, 0, summer).Zone()
	require.Equal(t, -7*3600, offset)

	winter := FixedZone(la, time.Date(2025, 12, 14, 12, 0, 0, 0, time.UTC))
	_, offset = time.Date(2025, 6, 1, 0, 0, 0, 0, winter).Zone()
	require.Equal(t, -8*3600, offset)
}
