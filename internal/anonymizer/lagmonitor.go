package anonymizer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dbsmedya/goanonymize/internal/config"
	"github.com/dbsmedya/goanonymize/internal/logger"
)

// ReplicationStatus is the subset of SHOW REPLICA STATUS the monitor reads.
type ReplicationStatus struct {
	SecondsBehind sql.NullInt64 // NULL while the replica is stopped
	IORunning     string
	SQLRunning    string
	LastError     string
}

// Running reports whether both replication threads are up.
func (s *ReplicationStatus) Running() bool {
	return s.IORunning == "Yes" && s.SQLRunning == "Yes"
}

// LagMonitor pauses the engine between chunks while a replica falls behind.
// A monitor without a replica connection is disabled and never waits.
type LagMonitor struct {
	db        *sql.DB
	threshold int
	interval  time.Duration
	logger    *logger.Logger
}

// NewLagMonitor creates a monitor over replicaDB, which may be nil.
func NewLagMonitor(replicaDB *sql.DB, cfg config.SafetyConfig, log *logger.Logger) *LagMonitor {
	if log == nil {
		log = logger.NewNop()
	}

	threshold := cfg.LagThreshold
	if threshold <= 0 {
		threshold = 10
	}
	interval := time.Duration(cfg.CheckInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}

	if replicaDB != nil {
		log.Infof("Replication lag monitoring enabled (threshold: %ds, interval: %s)", threshold, interval)
	}
	return &LagMonitor{
		db:        replicaDB,
		threshold: threshold,
		interval:  interval,
		logger:    log,
	}
}

// IsEnabled reports whether a replica is being watched.
func (lm *LagMonitor) IsEnabled() bool {
	return lm != nil && lm.db != nil
}

// Threshold returns the maximum tolerated lag in seconds.
func (lm *LagMonitor) Threshold() int { return lm.threshold }

// Interval returns the pause between lag checks.
func (lm *LagMonitor) Interval() time.Duration { return lm.interval }

// Status reads replication status, falling back to SHOW SLAVE STATUS on
// servers older than 8.0.22. Column names from either dialect are accepted.
func (lm *LagMonitor) Status(ctx context.Context) (*ReplicationStatus, error) {
	if !lm.IsEnabled() {
		return nil, nil
	}

	rows, err := lm.db.QueryContext(ctx, "SHOW REPLICA STATUS")
	if err != nil {
		rows, err = lm.db.QueryContext(ctx, "SHOW SLAVE STATUS")
		if err != nil {
			return nil, fmt.Errorf("failed to query replication status: %w", err)
		}
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan replication status: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("replication not configured on replica server")
	}
	row := records[0]

	pick := func(names ...string) string {
		for _, n := range names {
			if row.Has(n) {
				return row.String(n)
			}
		}
		return ""
	}

	status := &ReplicationStatus{
		IORunning:  pick("Replica_IO_Running", "Slave_IO_Running"),
		SQLRunning: pick("Replica_SQL_Running", "Slave_SQL_Running"),
		LastError:  pick("Last_Error"),
	}
	for _, col := range []string{"Seconds_Behind_Source", "Seconds_Behind_Master"} {
		if v, ok := row.Get(col).(int64); ok {
			status.SecondsBehind = sql.NullInt64{Int64: v, Valid: true}
			break
		}
	}
	return status, nil
}

// CheckLag reports whether lag is within the threshold, and the lag seen.
// A stopped replica or NULL lag is reported as an error.
func (lm *LagMonitor) CheckLag(ctx context.Context) (bool, int, error) {
	if !lm.IsEnabled() {
		return true, 0, nil
	}

	status, err := lm.Status(ctx)
	if err != nil {
		return false, -1, err
	}
	if !status.Running() {
		if status.LastError != "" {
			lm.logger.Errorf("Replication error: %s", status.LastError)
		}
		return false, -1, fmt.Errorf("replication is not running (IO: %s, SQL: %s)", status.IORunning, status.SQLRunning)
	}
	if !status.SecondsBehind.Valid {
		return false, -1, errors.New("replication lag is NULL")
	}

	lag := int(status.SecondsBehind.Int64)
	if lag > lm.threshold {
		return false, lag, nil
	}
	lm.logger.Debugf("Replication lag OK: %ds", lag)
	return true, lag, nil
}

// WaitForLag blocks until lag is under the threshold or ctx is done.
// Check failures are logged and retried.
func (lm *LagMonitor) WaitForLag(ctx context.Context) error {
	if !lm.IsEnabled() {
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("lag wait cancelled: %w", err)
		}

		ok, lag, err := lm.CheckLag(ctx)
		switch {
		case err != nil:
			lm.logger.Errorf("Replication check failed: %v (retrying in %s)", err, lm.interval)
		case !ok:
			lm.logger.Warnf("Pausing: replication lag %ds exceeds %ds", lag, lm.threshold)
		default:
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("lag wait cancelled: %w", ctx.Err())
		case <-time.After(lm.interval):
		}
	}
}
