package coordinator

import "github.com/prometheus/client_golang/prometheus"

var (
	downloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assistantd",
			Subsystem: "coordinator",
			Name:      "downloads_total",
			Help:      "Model downloads by result",
		},
		[]string{"result"},
	)

	warmupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assistantd",
			Subsystem: "coordinator",
			Name:      "warmups_total",
			Help:      "Model warmups by result",
		},
		[]string{"result"},
	)

	singleflightRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assistantd",
			Subsystem: "coordinator",
			Name:      "singleflight_rejections_total",
			Help:      "Operations rejected because one was already in flight",
		},
		[]string{"class"},
	)
)

func init() {
	prometheus.MustRegister(downloadsTotal, warmupsTotal, singleflightRejections)
}
