package capabilities

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aretw0/switchboard/pkg/capability"
	"github.com/aretw0/switchboard/pkg/schema"
)

const (
	WeatherName           = "get_weather"
	DefaultWeatherBaseURL = "https://api.openweathermap.org/data/2.5/weather"
)

// WeatherConfig configures the OpenWeather provider.
type WeatherConfig struct {
	APIKey  string
	BaseURL string
}

type weatherInput struct {
	City string `mapstructure:"city"`
}

type weatherReport struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

// NewWeather returns the get_weather capability (current conditions, metric units).
func NewWeather(cfg WeatherConfig, opts Options) capability.Capability {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultWeatherBaseURL
	}
	logger := opts.logger()
	client := opts.client()

	s := schema.Schema{
		"city": schema.Field(schema.String(), schema.WithDescription("City name to get weather for")),
	}

	return capability.New(WeatherName, "Get current weather for a city.", s, func(ctx context.Context, args map[string]any) (string, error) {
		var in weatherInput
		if err := capability.Decode(args, &in); err != nil {
			return "", err
		}
		failure := fmt.Sprintf("Could not get weather for %s. Please try again later.", in.City)

		q := url.Values{}
		q.Set("q", in.City)
		q.Set("appid", cfg.APIKey)
		q.Set("units", "metric")

		var report weatherReport
		if err := doJSON(ctx, client, http.MethodGet, base+"?"+q.Encode(), nil, nil, &report); err != nil {
			logger.Error("weather api error", "capability", WeatherName, "city", in.City, "error", err)
			return failure, nil
		}
		if len(report.Weather) == 0 {
			logger.Error("weather api returned no conditions", "capability", WeatherName, "city", in.City)
			return failure, nil
		}

		return fmt.Sprintf("🌡️ Weather in %s:\nTemperature: %s°C\nFeels like: %s°C\nHumidity: %s%%\nConditions: %s",
			in.City,
			num(report.Main.Temp),
			num(report.Main.FeelsLike),
			num(report.Main.Humidity),
			report.Weather[0].Description,
		), nil
	})
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
