package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/featureflags"
	"github.com/CleanExpo/RestoreAssist-sub011/pkg/cache"
)

// Optional tables the service can run without.
const (
	TableNotifications  = "notifications"
	TableAddonPurchases = "addon_purchases"
)

const capabilityTTL = 10 * time.Minute

// TableProber answers whether a table exists.
type TableProber interface {
	TableExists(ctx context.Context, table string) (bool, error)
}

// RegclassProber probes tables with to_regclass.
type RegclassProber struct {
	DB *sql.DB
}

// TableExists implements TableProber.
func (p RegclassProber) TableExists(ctx context.Context, table string) (bool, error) {
	var name sql.NullString
	if err := p.DB.QueryRowContext(ctx, `SELECT to_regclass($1)::text`, "public."+table).Scan(&name); err != nil {
		return false, fmt.Errorf("probe %s: %w", table, err)
	}
	return name.Valid, nil
}

// Capabilities memoises which optional tables exist so handlers can degrade
// instead of failing when a deployment is missing a migration.
type Capabilities struct {
	prober TableProber
	memo   *cache.Cache[bool]
	logger *slog.Logger
}

// NewCapabilities creates a capability detector.
func NewCapabilities(prober TableProber, logger *slog.Logger) *Capabilities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Capabilities{
		prober: prober,
		memo:   cache.New[bool](),
		logger: logger,
	}
}

// Has reports whether table is usable. A FLAG_<TABLE>=false override wins.
// Probe errors count as unavailable and are not memoised.
func (c *Capabilities) Has(ctx context.Context, table string) bool {
	if featureflags.Disabled(table) {
		return false
	}
	ok, err := c.memo.GetOrLoad("table:"+table, capabilityTTL, func() (bool, error) {
		exists, err := c.prober.TableExists(ctx, table)
		if err == nil && !exists {
			c.logger.Warn("optional table missing, running degraded", slog.String("table", table))
		}
		return exists, err
	})
	if err != nil {
		c.logger.Warn("capability probe failed",
			slog.String("table", table),
			slog.String("error", err.Error()),
		)
		return false
	}
	return ok
}

// MarkMissing records that table vanished, e.g. after an undefined-table error.
func (c *Capabilities) MarkMissing(table string) {
	c.memo.Set("table:"+table, false, capabilityTTL)
}

// Reset forgets all probe results.
func (c *Capabilities) Reset() {
	c.memo.Invalidate("table:")
}
