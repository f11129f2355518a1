package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/meraki/internal/app/system/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/media/{token}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, tok := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/media/"+tok, nil))
	}

	got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/media/{token}", "GET", "404"))
	if got != 3 {
		t.Errorf("requests counted = %v, want 3", got)
	}
	if testutil.ToFloat64(m.InFlight) != 0 {
		t.Error("in-flight gauge should return to zero")
	}
}

func TestAttendanceTransition(t *testing.T) {
	m := metrics.New()
	m.AttendanceTransition("time_in", "ok")
	m.AttendanceTransition("time_in", "ok")
	m.AttendanceTransition("time_out", "no_open_time_in")

	if got := testutil.ToFloat64(m.Transitions.WithLabelValues("time_in", "ok")); got != 2 {
		t.Errorf("time_in/ok = %v, want 2", got)
	}
}

func TestHandler_Exposition(t *testing.T) {
	m := metrics.New()
	m.AttendanceTransition("time_in", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "meraki_attendance_transitions_total") {
		t.Error("exposition is missing the attendance counter")
	}
}

func TestGatherer_ExposesRegisteredFamilies(t *testing.T) {
	m := metrics.New()
	m.AttendanceTransition("time_out", "ok")

	families, err := m.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"meraki_attendance_transitions_total", "go_goroutines"} {
		if !names[want] {
			t.Errorf("metric %q not gathered", want)
		}
	}
}
