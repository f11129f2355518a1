// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/meraki/internal/app/system/metrics"
	"github.com/dalemusser/meraki/internal/app/system/notify"
	"github.com/dalemusser/meraki/internal/app/system/tasks"
	"github.com/dalemusser/meraki/internal/app/system/workers"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MerakiMongoClient   *mongo.Client
	MerakiMongoDatabase *mongo.Database

	// Redis is nil when rate limits are kept in memory.
	Redis redis.UniversalClient

	// Runtime is shared by Startup, BuildHandler and Shutdown.
	Runtime *Runtime
}

// Runtime holds the long-lived services started after the database is up.
type Runtime struct {
	Metrics   *metrics.Metrics
	Scheduler *tasks.Scheduler
	Gauges    *workers.AttendanceGauges
	Publisher notify.Publisher

	// Attendance is the record backend chosen by attendance_store. The ledger,
	// the roster and the gauges all read it.
	Attendance attendanceBackend
}
