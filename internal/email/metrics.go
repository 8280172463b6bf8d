package email

import "github.com/prometheus/client_golang/prometheus"

const (
	transportEmailJS = "emailjs"
	transportSES     = "ses"
	transportLog     = "log"

	resultOK       = "ok"
	resultRejected = "rejected"
	resultError    = "error"
)

var deliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fittrack",
	Subsystem: "email",
	Name:      "deliveries_total",
	Help:      "Report emails handed to a transport, grouped by result.",
}, []string{"transport", "result"})

func init() {
	prometheus.MustRegister(deliveries)
}
