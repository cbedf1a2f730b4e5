// Package metrics holds the Prometheus collectors of the recommendation service.
package metrics

import (
	"TicketBlitz_Recommendation/backend/go/pkg/rotation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "recommendation"

// Metrics groups every collector. Observe* methods match the observer hooks
// exposed by the rotation pool, the tier chain, the service and the consumer loops.
type Metrics struct {
	// IngestedTotal counts creation events by result ("stored" or "dropped").
	IngestedTotal *prometheus.CounterVec
	// RecommendationsTotal counts booking triggers by terminal or failing stage.
	RecommendationsTotal *prometheus.CounterVec
	// TierAttemptsTotal counts tier attempts by tier and result.
	TierAttemptsTotal *prometheus.CounterVec
	// CredentialFailuresTotal counts failed credential attempts by pool and kind.
	CredentialFailuresTotal *prometheus.CounterVec
	// DispatchFailuresTotal counts outbound publish failures.
	DispatchFailuresTotal prometheus.Counter
	// MessagesTotal counts consumed messages by topic and result.
	MessagesTotal *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		IngestedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_ingested_total",
			Help:      "Creation events processed by the ingestion pipeline",
		}, []string{"result"}),
		RecommendationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_total",
			Help:      "Booking triggers by the stage they ended in",
		}, []string{"stage", "result"}),
		TierAttemptsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_attempts_total",
			Help:      "Content tier attempts",
		}, []string{"tier", "result"}),
		CredentialFailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_failures_total",
			Help:      "Failed credential attempts",
		}, []string{"pool", "kind"}),
		DispatchFailuresTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_failures_total",
			Help:      "Outbound messages that could not be published",
		}),
		MessagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Messages consumed per topic",
		}, []string{"topic", "result"}),
	}
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// ObserveIngest records one ingestion outcome.
func (m *Metrics) ObserveIngest(err error) {
	if err != nil {
		m.IngestedTotal.WithLabelValues("dropped").Inc()
		return
	}
	m.IngestedTotal.WithLabelValues("stored").Inc()
}

// ObserveRecommendation records the stage a trigger ended in.
func (m *Metrics) ObserveRecommendation(stage string, err error) {
	m.RecommendationsTotal.WithLabelValues(stage, result(err)).Inc()
}

// ObserveDispatchFailure records one failed publish.
func (m *Metrics) ObserveDispatchFailure() {
	m.DispatchFailuresTotal.Inc()
}

// ObserveTier records one tier attempt.
func (m *Metrics) ObserveTier(tier string, err error) {
	m.TierAttemptsTotal.WithLabelValues(tier, result(err)).Inc()
}

// ObserveCredential records one failed credential attempt.
func (m *Metrics) ObserveCredential(pool, _ string, kind rotation.Kind) {
	m.CredentialFailuresTotal.WithLabelValues(pool, kind.String()).Inc()
}

// ObserveMessage records one consumed message.
func (m *Metrics) ObserveMessage(topic string, err error) {
	m.MessagesTotal.WithLabelValues(topic, result(err)).Inc()
}
