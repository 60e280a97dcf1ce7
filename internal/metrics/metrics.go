package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CheckIns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "buspass_checkins_total",
		Help: "Successful student check-ins.",
	})
	CheckOuts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "buspass_checkouts_total",
		Help: "Successful student check-outs.",
	})
	OverCapacityBoardings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "buspass_over_capacity_boardings_total",
		Help: "Check-ins admitted past configured bus capacity (warn policy).",
	})
	OccupancyDriftFaults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "buspass_occupancy_drift_faults_total",
		Help: "Guarded occupancy decrements that found the counter at zero.",
	})
	PaymentsVerified = promauto.NewCounter(prometheus.CounterOpts{
		Name: "buspass_payments_verified_total",
		Help: "Payment callbacks verified and applied (first delivery only).",
	})
	PaymentsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "buspass_payments_failed_total",
		Help: "Payment attempts recorded as failed or abandoned.",
	})
	ApplicationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "buspass_applications_total",
		Help: "Pass applications created.",
	})
	SweepExpirations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buspass_sweep_expirations_total",
		Help: "Records expired by the periodic sweeper, by kind.",
	}, []string{"kind"})
)

// Handler serves the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
