package weather

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rbright/weekview/internal/httpx"
	"github.com/rbright/weekview/internal/logging"
)

var ErrLocationUnavailable = errors.New("location unavailable")

type Coordinates struct {
	Latitude  float64
	Longitude float64
}

type Locator interface {
	Locate(ctx context.Context) (Coordinates, error)
}

// Static is a fixed, configured location.
type Static Coordinates

func (s Static) Locate(context.Context) (Coordinates, error) {
	return Coordinates(s), nil
}

type Report struct {
	TemperatureC float64   `json:"temperatureC" yaml:"temperatureC"`
	Code         int       `json:"code" yaml:"code"`
	Condition    string    `json:"condition" yaml:"condition"`
	Symbol       string    `json:"symbol" yaml:"symbol"`
	FetchedAt    time.Time `json:"fetchedAt" yaml:"fetchedAt"`
}

// Temperature renders the temperature rounded to whole degrees.
func (r Report) Temperature() string {
	rounded := math.Round(r.TemperatureC)
	if rounded == 0 {
		rounded = 0
	}
	return strconv.FormatFloat(rounded, 'f', 0, 64) + "°C"
}

func (r Report) String() string {
	return fmt.Sprintf("%s %s %s", r.Symbol, r.Temperature(), r.Condition)
}

// Service resolves the location once and then fetches current conditions.
type Service struct {
	locator Locator
	baseURL string
	timeout time.Duration

	mu       sync.Mutex
	location *Coordinates
}

func NewService(locator Locator, baseURL string, timeout time.Duration) *Service {
	return &Service{locator: locator, baseURL: baseURL, timeout: timeout}
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
}

func (s *Service) Current(ctx context.Context) (Report, error) {
	location, err := s.resolve(ctx)
	if err != nil {
		return Report{}, err
	}

	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(location.Latitude, 'f', 4, 64))
	query.Set("longitude", strconv.FormatFloat(location.Longitude, 'f', 4, 64))
	query.Set("current", "temperature_2m,weather_code")
	query.Set("temperature_unit", "celsius")

	response, err := httpx.GetJSON[forecastResponse](ctx, s.baseURL, query, s.timeout)
	if err != nil {
		return Report{}, fmt.Errorf("fetch weather: %w", err)
	}

	condition, symbol := Describe(response.Current.WeatherCode)
	return Report{
		TemperatureC: response.Current.Temperature,
		Code:         response.Current.WeatherCode,
		Condition:    condition,
		Symbol:       symbol,
		FetchedAt:    time.Now(),
	}, nil
}

func (s *Service) resolve(ctx context.Context) (Coordinates, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.location != nil {
		return *s.location, nil
	}
	if s.locator == nil {
		return Coordinates{}, ErrLocationUnavailable
	}

	location, err := s.locator.Locate(ctx)
	if err != nil {
		if !errors.Is(err, ErrLocationUnavailable) {
			err = fmt.Errorf("%w: %w", ErrLocationUnavailable, err)
		}
		return Coordinates{}, err
	}
	logging.Debug("location resolved", "lat", location.Latitude, "lon", location.Longitude)
	s.location = &location
	return location, nil
}

// StatusText is the short message shown in place of the weather line.
func StatusText(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrLocationUnavailable) {
		return "Location unavailable"
	}
	return "Unable to load weather"
}

// Describe maps a WMO weather interpretation code to a condition and symbol.
func Describe(code int) (string, string) {
	switch code {
	case 0:
		return "Clear", "☀"
	case 1:
		return "Mainly clear", "🌤"
	case 2:
		return "Partly cloudy", "⛅"
	case 3:
		return "Overcast", "☁"
	case 45, 48:
		return "Fog", "🌫"
	case 51, 53, 55:
		return "Drizzle", "🌦"
	case 56, 57:
		return "Freezing drizzle", "🌧"
	case 61, 63, 65:
		return "Rain", "🌧"
	case 66, 67:
		return "Freezing rain", "🌧"
	case 71, 73, 75:
		return "Snow", "❄"
	case 77:
		return "Snow grains", "❄"
	case 80, 81, 82:
		return "Rain showers", "🌦"
	case 85, 86:
		return "Snow showers", "🌨"
	case 95:
		return "Thunderstorm", "⛈"
	case 96, 99:
		return "Thunderstorm with hail", "⛈"
	default:
		return "Unknown", "?"
	}
}
