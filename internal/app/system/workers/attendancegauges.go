// internal/app/system/workers/attendancegauges.go
package workers

import (
	"context"
	"sync"
	"time"

	metricsstore "github.com/dalemusser/meraki/internal/app/store/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// CountsFunc returns the current attendance counts.
type CountsFunc func(ctx context.Context) metricsstore.Counts

// AttendanceGauges is a background worker that refreshes the attendance
// gauges from the database on a fixed interval.
type AttendanceGauges struct {
	fetch    CountsFunc
	log      *zap.Logger
	interval time.Duration

	users     prometheus.Gauge
	timedIn   prometheus.Gauge
	completed prometheus.Gauge

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewAttendanceGauges creates the worker and registers its gauges on reg.
//
// Parameters:
//   - fetch: returns the counts to publish
//   - reg: registry the gauges are added to
//   - logger: zap logger for logging
//   - interval: how often to refresh (e.g., 1 minute)
func NewAttendanceGauges(fetch CountsFunc, reg prometheus.Registerer, logger *zap.Logger, interval time.Duration) *AttendanceGauges {
	w := &AttendanceGauges{
		fetch:    fetch,
		log:      logger,
		interval: interval,
		users: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "meraki_users", Help: "Registered users",
		}),
		timedIn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "meraki_attendance_timed_in_today", Help: "Users who timed in today",
		}),
		completed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "meraki_attendance_completed_today", Help: "Users who timed in and out today",
		}),
		stopCh: make(chan struct{}),
	}
	reg.MustRegister(w.users, w.timedIn, w.completed)
	return w
}

// Start refreshes once and then begins the background loop.
func (w *AttendanceGauges) Start() {
	w.refresh()
	w.wg.Add(1)
	go w.run()
	w.log.Info("attendance gauges worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *AttendanceGauges) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("attendance gauges worker stopped")
}

func (w *AttendanceGauges) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.refresh()
		}
	}
}

func (w *AttendanceGauges) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := w.fetch(ctx)
	w.users.Set(float64(c.Users))
	w.timedIn.Set(float64(c.TimedInToday))
	w.completed.Set(float64(c.CompletedToday))
}
