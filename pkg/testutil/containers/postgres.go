//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"credbridge/internal/platform/config"
	"credbridge/internal/platform/postgres"
)

const (
	postgresImage = "postgres:16-alpine"
	postgresName  = "credbridge"
)

// PostgresContainer backs the proof store integration tests.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase(postgresName),
		tcpostgres.WithUsername(postgresName),
		tcpostgres.WithPassword(postgresName),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start %s: %v", postgresImage, err)
	}
	pc := &PostgresContainer{Container: ctr}
	if pc.DSN, err = ctr.ConnectionString(ctx, "sslmode=disable"); err == nil {
		pc.DB, err = postgres.Open(ctx, config.DatabaseConfig{URL: pc.DSN, MaxOpenConns: 4})
	}
	if err != nil {
		_ = ctr.Terminate(ctx)
		t.Fatalf("connect %s: %v", postgresImage, err)
	}
	return pc
}

// TruncateTables empties the named tables between tests.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", ")))
	return err
}
