package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLStateClassifiesBothDrivers(t *testing.T) {
	pqDup := fmt.Errorf("insert client: %w", &pq.Error{Code: "23505"})
	pgxDup := fmt.Errorf("insert client: %w", &pgconn.PgError{Code: "23505"})
	pgxMissing := &pgconn.PgError{Code: "42P01"}

	assert.True(t, IsUniqueViolation(pqDup))
	assert.True(t, IsUniqueViolation(pgxDup))
	assert.True(t, IsUndefinedTable(pgxMissing))
	assert.False(t, IsUniqueViolation(pgxMissing))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.Equal(t, "", SQLState(nil))

	assert.True(t, IsInvalidTextRepresentation(&pq.Error{Code: "22P02"}))
	assert.True(t, IsInvalidTextRepresentation(fmt.Errorf("get client: %w", &pgconn.PgError{Code: "22P02"})))
	assert.False(t, IsInvalidTextRepresentation(pgxMissing))
}

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	ms, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, ms)

	assert.Equal(t, "0001_init", ms[0].Version)
	for i := 1; i < len(ms); i++ {
		assert.Less(t, ms[i-1].Version, ms[i].Version)
	}
	assert.Contains(t, ms[0].SQL, "invoice_sequences")
	assert.Contains(t, ms[0].SQL, "PRIMARY KEY (user_id, year)")
}

func TestLoadMigrationsSortsByName(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_b.up.sql": {Data: []byte("SELECT 2;")},
		"migrations/0001_a.up.sql": {Data: []byte("SELECT 1;")},
		"migrations/README.md":     {Data: []byte("ignored")},
	}
	ms, err := loadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "0001_a", ms[0].Version)
	assert.True(t, strings.HasPrefix(ms[1].SQL, "SELECT 2"))
}

type countingProber struct {
	calls  map[string]int
	exists map[string]bool
	err    error
}

func (p *countingProber) TableExists(_ context.Context, table string) (bool, error) {
	p.calls[table]++
	if p.err != nil {
		return false, p.err
	}
	return p.exists[table], nil
}

func TestCapabilitiesProbeOnce(t *testing.T) {
	prober := &countingProber{
		calls:  map[string]int{},
		exists: map[string]bool{TableNotifications: true},
	}
	caps := NewCapabilities(prober, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.True(t, caps.Has(ctx, TableNotifications))
		assert.False(t, caps.Has(ctx, TableAddonPurchases))
	}
	assert.Equal(t, 1, prober.calls[TableNotifications])
	assert.Equal(t, 1, prober.calls[TableAddonPurchases])

	caps.MarkMissing(TableNotifications)
	assert.False(t, caps.Has(ctx, TableNotifications))

	caps.Reset()
	assert.True(t, caps.Has(ctx, TableNotifications))
	assert.Equal(t, 2, prober.calls[TableNotifications])
}

func TestCapabilitiesFlagOverride(t *testing.T) {
	t.Setenv("FLAG_NOTIFICATIONS", "false")
	prober := &countingProber{calls: map[string]int{}, exists: map[string]bool{TableNotifications: true}}
	caps := NewCapabilities(prober, nil)

	assert.False(t, caps.Has(context.Background(), TableNotifications))
	assert.Zero(t, prober.calls[TableNotifications])
}

func TestCapabilitiesProbeErrorNotMemoised(t *testing.T) {
	prober := &countingProber{calls: map[string]int{}, err: errors.New("connection refused")}
	caps := NewCapabilities(prober, nil)
	ctx := context.Background()

	assert.False(t, caps.Has(ctx, TableNotifications))
	assert.False(t, caps.Has(ctx, TableNotifications))
	assert.Equal(t, 2, prober.calls[TableNotifications])
}
