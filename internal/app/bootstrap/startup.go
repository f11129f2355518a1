// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/meraki/internal/app/policy/accesspolicy"
	attendancestore "github.com/dalemusser/meraki/internal/app/store/attendance"
	auditstore "github.com/dalemusser/meraki/internal/app/store/audit"
	metricsstore "github.com/dalemusser/meraki/internal/app/store/metrics"
	"github.com/dalemusser/meraki/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/meraki/internal/app/store/users"
	"github.com/dalemusser/meraki/internal/app/system/auditlog"
	"github.com/dalemusser/meraki/internal/app/system/metrics"
	"github.com/dalemusser/meraki/internal/app/system/tasks"
	"github.com/dalemusser/meraki/internal/app/system/workers"
	"github.com/dalemusser/meraki/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// It promotes the configured advisor, starts the cleanup scheduler and, when
// metrics are enabled, the attendance gauge worker.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MerakiMongoDatabase
	users := userstore.New(db)
	audit := newAuditLogger(deps, appCfg, logger)

	if err := ensureAdvisor(ctx, users, audit, appCfg.AdvisorEmail, logger); err != nil {
		return err
	}

	rt := deps.Runtime
	if rt == nil {
		return errors.New("bootstrap: runtime not initialized")
	}

	sched := tasks.NewScheduler(logger)
	for _, j := range []tasks.Job{
		tasks.OAuthStateCleanupJob(oauthstate.New(db), logger),
		tasks.ResetTokenPurgeJob(users, logger, time.Now),
	} {
		if err := sched.Add(j); err != nil {
			return err
		}
	}
	sched.Start()
	rt.Scheduler = sched

	rt.Attendance = newAttendanceBackend(deps, appCfg, logger)

	if appCfg.MetricsEnabled {
		// The Mongo backend is counted with CountDocuments. Any other backend
		// is listed directly so the gauges match what the ledger holds.
		var days metricsstore.DayLister
		if _, isMongo := rt.Attendance.(*attendancestore.Store); !isMongo {
			days = rt.Attendance
		}
		rt.Metrics = metrics.New()
		loc, err := time.LoadLocation(appCfg.AttendanceTimezone)
		if err != nil {
			return err
		}
		fetch := gaugeFetch(db, days, loc, time.Now)
		rt.Gauges = workers.NewAttendanceGauges(fetch, rt.Metrics.Registerer(), logger, appCfg.MetricsInterval)
		rt.Gauges.Start()
	}

	return nil
}

// gaugeFetch counts today's attendance in loc for the gauge worker.
func gaugeFetch(db *mongo.Database, days metricsstore.DayLister, loc *time.Location, now func() time.Time) func(context.Context) metricsstore.Counts {
	return func(ctx context.Context) metricsstore.Counts {
		return metricsstore.FetchAttendanceCounts(ctx, db, days, now().In(loc).Format(models.DateLayout))
	}
}

// ensureAdvisor gives the configured email the advisor position. The account
// must already exist; it is created by the person signing in, so a missing
// account only logs a warning.
func ensureAdvisor(ctx context.Context, users *userstore.Store, audit *auditlog.Logger, email string, logger *zap.Logger) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}

	existing, err := users.GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		logger.Warn("advisor account not found; it will be promoted on a later start", zap.String("email", email))
		return nil
	}
	if err != nil {
		return err
	}
	if p, _ := accesspolicy.ParsePosition(existing.Position); p == accesspolicy.Advisor {
		return nil
	}

	u, err := users.SetPosition(ctx, email, string(accesspolicy.Advisor))
	if err != nil {
		return err
	}
	audit.PositionAssigned(ctx, u.ID, u.Position)
	logger.Info("promoted advisor", zap.String("email", u.Email))
	return nil
}

// newAuditLogger builds the audit logger over the audit_events collection.
func newAuditLogger(deps DBDeps, appCfg AppConfig, logger *zap.Logger) *auditlog.Logger {
	return auditlog.New(auditstore.New(deps.MerakiMongoDatabase), logger, auditlog.Config{
		Auth:       appCfg.AuditLogAuth,
		Attendance: appCfg.AuditLogAttendance,
		Admin:      appCfg.AuditLogAdmin,
	})
}
