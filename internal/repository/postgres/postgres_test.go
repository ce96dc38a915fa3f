//go:build integration

package postgres_test

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"

	"github.com/hedgehog/ivdmiddleware/internal/repository/contracttest"
	"github.com/hedgehog/ivdmiddleware/internal/repository/postgres"
)

// openTestDB connects to the database named by IVD_TEST_DATABASE_URL, which
// must already have the schema applied. Run with:
//
//	go test -tags integration ./internal/repository/postgres/...
func openTestDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("IVD_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("IVD_TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSampleRepository(t *testing.T) {
	db := openTestDB(t)
	contracttest.SampleRepoSuite(t, postgres.NewSampleRepository(db))
}

func TestOrderRepository(t *testing.T) {
	db := openTestDB(t)
	contracttest.OrderRepoSuite(t, postgres.NewOrderRepository(db))
}

func TestResultRepository(t *testing.T) {
	db := openTestDB(t)
	contracttest.ResultRepoSuite(t, postgres.NewResultRepository(db))
}
