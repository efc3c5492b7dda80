package metrics

import (
	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"

	"github.com/pikicariks/rain-detection-system/internal/env"
)

var dogstatsd *statsd.Client

func Init() {
	var err error
	dogstatsd, err = statsd.New(env.Cfg.Datadog.AgentAddr)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create DogStatsD client")
		return
	}

	dogstatsd.Namespace = env.Cfg.Datadog.Namespace
	dogstatsd.Tags = env.Cfg.Datadog.Tags

	log.Info().
		Str("addr", env.Cfg.Datadog.AgentAddr).
		Str("namespace", env.Cfg.Datadog.Namespace).
		Strs("tags", env.Cfg.Datadog.Tags).
		Msg("Datadog metrics initialized")
}

func Gauge(name string, value float64, tags ...string) {
	if dogstatsd != nil {
		err := dogstatsd.Gauge(name, value, tags, 1)
		if err != nil && env.Cfg.Datadog.Enabled {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to emit gauge metric")
		}
	}
}

func Count(name string, value int64, tags ...string) {
	if dogstatsd != nil {
		err := dogstatsd.Count(name, value, tags, 1)
		if err != nil && env.Cfg.Datadog.Enabled {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to emit count metric")
		}
	}
}
