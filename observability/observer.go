package observability

import (
	"context"

	"github.com/MrEdHardy/schleuben/logger"
	"github.com/MrEdHardy/schleuben/resilience"
)

// ResilienceObserver counts pipeline events.
type ResilienceObserver struct {
	metrics *Metrics
}

// NewResilienceObserver records events on m.
func NewResilienceObserver(m *Metrics) *ResilienceObserver {
	return &ResilienceObserver{metrics: m}
}

// OnEvent implements resilience.Observer.
func (o *ResilienceObserver) OnEvent(ctx context.Context, e resilience.Event) {
	o.metrics.RecordResilienceEvent(ctx, e.Pipeline, string(e.Type))
}

// LogObserver writes pipeline events to a logger.
type LogObserver struct {
	log *logger.Logger
}

// NewLogObserver logs events through log tagged with the resilience component.
func NewLogObserver(log *logger.Logger) *LogObserver {
	return &LogObserver{log: log.WithComponent("resilience")}
}

// OnEvent implements resilience.Observer.
func (o *LogObserver) OnEvent(ctx context.Context, e resilience.Event) {
	fields := logger.Fields(logger.FieldPipeline, e.Pipeline)
	if e.Err != nil {
		fields[logger.FieldError] = e.Err.Error()
	}
	log := o.log.WithContext(ctx)

	switch e.Type {
	case resilience.EventRetryAttempt:
		fields[logger.FieldAttempt] = e.Attempt
		fields[logger.FieldDelay] = e.Delay.Milliseconds()
		log.Info("Retrying request", fields)
	case resilience.EventRateLimitRejected:
		log.Info("Request rejected due to rate limit", fields)
	case resilience.EventConcurrencyRejected:
		log.Info("Request rejected by concurrency limit", fields)
	case resilience.EventAttemptTimeout:
		log.Info("Request attempt timed out", fields)
	case resilience.EventCircuitOpened:
		log.Warn("Circuit opened", fields)
	case resilience.EventCircuitHalfOpened:
		log.Info("Circuit half-open, probing", fields)
	case resilience.EventCircuitClosed:
		log.Info("Circuit closed", fields)
	default:
		log.Debug(string(e.Type), fields)
	}
}
