package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fairshare"

// Prometheus implements Recorder with Prometheus counters.
type Prometheus struct {
	tasksCreated    prometheus.Counter
	toggles         *prometheus.CounterVec
	requestsCreated prometheus.Counter
	decisions       *prometheus.CounterVec
	pushSent        *prometheus.CounterVec
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus registers the collectors with reg, or with
// prometheus.DefaultRegisterer when reg is nil.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	p := &Prometheus{
		tasksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_created_total",
			Help:      "Tasks created, counting each occurrence of a repeating task.",
		}),
		toggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "toggles_total",
			Help:      "Completion toggles by result (done, undone, rejected).",
		}, []string{"result"}),
		requestsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_created_total",
			Help:      "Point adjustment requests created.",
		}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Votes on adjustment requests by decision and resulting status.",
		}, []string{"decision", "outcome"}),
		pushSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_sent_total",
			Help:      "Web push delivery attempts by result (ok, expired, error).",
		}, []string{"result"}),
	}

	reg.MustRegister(p.tasksCreated, p.toggles, p.requestsCreated, p.decisions, p.pushSent)
	return p
}

func (p *Prometheus) TasksCreated(n int) {
	p.tasksCreated.Add(float64(n))
}

func (p *Prometheus) Toggle(result string) {
	p.toggles.WithLabelValues(result).Inc()
}

func (p *Prometheus) RequestCreated() {
	p.requestsCreated.Inc()
}

func (p *Prometheus) Decision(decision, outcome string) {
	p.decisions.WithLabelValues(decision, outcome).Inc()
}

func (p *Prometheus) PushSent(result string) {
	p.pushSent.WithLabelValues(result).Inc()
}
