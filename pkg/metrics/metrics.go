package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "snacktacular", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "snacktacular", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	PlaceLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "snacktacular", Name: "places_loads_total", Help: "Place list loads by result (ok|error)."},
		[]string{"result"},
	)
	PlaceSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "snacktacular", Name: "places_saves_total", Help: "Place saves by operation (create|update) and result (ok|error)."},
		[]string{"op", "result"},
	)
	PlaceListSize = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "snacktacular", Name: "places_list_size", Help: "Number of places in the in-memory list."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(PlaceLoads)
	reg.MustRegister(PlaceSaves)
	reg.MustRegister(PlaceListSize)
}

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
