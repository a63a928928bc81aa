package dispatch

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/northpole/dispatch/service/crew"
	"github.com/northpole/dispatch/service/dispatcher"
	"github.com/northpole/dispatch/service/event"
	"github.com/northpole/dispatch/tracing"
)

type Option func(s *Service)

// WithConfig sets the engine configuration
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithEventService sets a pre-built event service
func WithEventService(service *event.Service) Option {
	return func(s *Service) {
		s.eventService = service
	}
}

// WithDeliveryAction sets the action performed for each dispatched reindeer
// group
func WithDeliveryAction(action dispatcher.Action) Option {
	return func(s *Service) {
		s.deliverAction = action
	}
}

// WithConsultationAction sets the action performed for each dispatched elf
// group
func WithConsultationAction(action dispatcher.Action) Option {
	return func(s *Service) {
		s.consultAction = action
	}
}

// WithAwayDelay overrides the reindeer away period, typically for tests
func WithAwayDelay(delay crew.DelayFunc) Option {
	return func(s *Service) {
		s.awayDelay = delay
	}
}

// WithWorkDelay overrides the elf working period, typically for tests
func WithWorkDelay(delay crew.DelayFunc) Option {
	return func(s *Service) {
		s.workDelay = delay
	}
}

// WithTracing configures OpenTelemetry tracing. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file
// path. Only the first initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter (OTLP, Jaeger, Zipkin, ...). Only the first initialisation
// wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
