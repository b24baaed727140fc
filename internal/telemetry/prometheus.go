package telemetry

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/san-kum/mechctl/internal/executor"
)

// Publisher exports the latest snapshot of each source as Prometheus
// gauges. OnTick runs on the executor goroutine; scrapes run on the HTTP
// server's goroutines.
type Publisher struct {
	registry *prometheus.Registry
	sources  []Source

	ticks      prometheus.Counter
	position   *prometheus.GaugeVec
	setpoint   *prometheus.GaugeVec
	output     *prometheus.GaugeVec
	stateTicks *prometheus.GaugeVec
	state      *prometheus.GaugeVec
	faults     *prometheus.CounterVec
	channels   *prometheus.GaugeVec

	lastState map[string]string
}

func NewPublisher(namespace string, sources ...Source) (*Publisher, error) {
	p := &Publisher{
		registry: prometheus.NewRegistry(),
		sources:  sources,
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Control ticks executed.",
		}),
		position: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "position",
			Help:      "Measured mechanism position.",
		}, []string{"mechanism"}),
		setpoint: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "setpoint",
			Help:      "Mechanism setpoint.",
		}, []string{"mechanism"}),
		output: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "output",
			Help:      "Commanded normalized output.",
		}, []string{"mechanism"}),
		stateTicks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state_ticks",
			Help:      "Ticks spent in the current state.",
		}, []string{"mechanism"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Current state machine state (1 for the active state).",
		}, []string{"mechanism", "state"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "faults_total",
			Help:      "Ticks that reported a fault.",
		}, []string{"mechanism", "fault"}),
		channels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channel",
			Help:      "Mechanism-specific telemetry channels.",
		}, []string{"mechanism", "channel"}),
		lastState: make(map[string]string),
	}

	collectors := []prometheus.Collector{
		p.ticks, p.position, p.setpoint, p.output, p.stateTicks, p.state, p.faults, p.channels,
	}
	for _, c := range collectors {
		if err := p.registry.Register(c); err != nil {
			are := prometheus.AlreadyRegisteredError{}
			if errors.As(err, &are) {
				continue
			}
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return p, nil
}

func (p *Publisher) OnTick(tick executor.Tick) {
	p.ticks.Inc()
	for _, src := range p.sources {
		s := stamp(src.Telemetry(), src, tick)
		m := s.Mechanism

		p.position.WithLabelValues(m).Set(s.Position)
		p.setpoint.WithLabelValues(m).Set(s.Setpoint)
		p.output.WithLabelValues(m).Set(s.Output)
		p.stateTicks.WithLabelValues(m).Set(float64(s.StateTicks))

		if prev, ok := p.lastState[m]; ok && prev != s.State {
			p.state.DeleteLabelValues(m, prev)
		}
		p.state.WithLabelValues(m, s.State).Set(1)
		p.lastState[m] = s.State

		if s.Fault != "" && s.Fault != "none" {
			p.faults.WithLabelValues(m, s.Fault).Inc()
		}
		for name, v := range s.Values {
			p.channels.WithLabelValues(m, name).Set(v)
		}
	}
}

// Registry exposes the underlying registry.
func (p *Publisher) Registry() *prometheus.Registry { return p.registry }

// Handler serves the registry in the Prometheus exposition format.
func (p *Publisher) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorLog:          log.StandardLogger(),
	})
}
