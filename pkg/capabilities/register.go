package capabilities

import (
	"github.com/aretw0/switchboard/pkg/capability"
	"github.com/aretw0/switchboard/pkg/ports"
)

// Config groups the provider settings of the built-in capabilities.
type Config struct {
	Weather  WeatherConfig
	Calendar CalendarConfig
	Search   SearchConfig
}

// Register adds the four built-in capabilities to reg.
func Register(reg *capability.Registry, cfg Config, sink ports.HandoffSink, opts Options) error {
	return reg.Register(
		NewWeather(cfg.Weather, opts),
		NewCalendar(cfg.Calendar, opts),
		NewSearch(cfg.Search, opts),
		NewEscalation(sink, opts),
	)
}
