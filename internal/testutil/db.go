// Package testutil provides a migrated sqlite database and seed helpers for
// service and repository tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Omvpatil/RealEstate/internal/access"
	"github.com/Omvpatil/RealEstate/internal/model"
	"github.com/Omvpatil/RealEstate/internal/repository"
)

var seq atomic.Uint64

// OpenDB returns a file-backed sqlite database with the full schema.  The
// pool holds a single connection so transactions serialize the way row
// locks do on MySQL.
func OpenDB(t *testing.T) (*sql.DB, *gorm.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	gdb, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	db, err := gdb.DB()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, model.AutoMigrate(gdb))
	t.Cleanup(func() { _ = db.Close() })
	return db, gdb
}

func next() uint64 { return seq.Add(1) }

// SeedBuilder creates a builder account and returns its resolved actor.
func SeedBuilder(t *testing.T, db *sql.DB) access.Actor {
	t.Helper()
	n := next()
	u, b, err := repository.NewUserRepo(db).CreateBuilder(context.Background(),
		fmt.Sprintf("builder%d@example.com", n), "secret-password", bcrypt.MinCost,
		repository.NewBuilder{CompanyName: fmt.Sprintf("Builder %d", n), LicenseNumber: fmt.Sprintf("LIC-%d", n), Phone: "5550100"})
	require.NoError(t, err)
	return access.Actor{UserID: u.ID, Role: model.RoleBuilder, BuilderID: b.ID}
}

// SeedCustomer creates a customer account and returns its resolved actor.
func SeedCustomer(t *testing.T, db *sql.DB) access.Actor {
	t.Helper()
	n := next()
	u, c, err := repository.NewUserRepo(db).CreateCustomer(context.Background(),
		fmt.Sprintf("customer%d@example.com", n), "secret-password", bcrypt.MinCost,
		repository.NewCustomer{FirstName: "Test", LastName: fmt.Sprintf("Customer%d", n), Phone: "5550199"})
	require.NoError(t, err)
	return access.Actor{UserID: u.ID, Role: model.RoleCustomer, CustomerID: c.ID}
}

// SeedProject creates a project of totalUnits owned by builderID.
func SeedProject(t *testing.T, db *sql.DB, builderID uint64, totalUnits int) model.Project {
	t.Helper()
	p := model.Project{
		BuilderID:  builderID,
		Name:       fmt.Sprintf("Project %d", next()),
		Type:       model.ProjectResidential,
		Status:     model.ProjectConstruction,
		City:       "Pune",
		TotalUnits: totalUnits,
	}
	require.NoError(t, repository.NewProjectRepo(db).Create(context.Background(), &p))
	return p
}

// SeedUnits adds n available units to a project.
func SeedUnits(t *testing.T, db *sql.DB, projectID uint64, n int) []model.Unit {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewUnitRepo(db)
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	units := make([]model.Unit, 0, n)
	for i := 0; i < n; i++ {
		u := model.Unit{
			ProjectID:  projectID,
			UnitNumber: fmt.Sprintf("U-%d-%d", projectID, i+1),
			UnitType:   "2bhk",
			Floor:      i / 4,
			AreaSqft:   decimal.NewFromInt(950),
			Price:      decimal.NewFromInt(5_000_000),
		}
		if err := repo.CreateTx(ctx, tx, &u); err != nil {
			_ = tx.Rollback()
			require.NoError(t, err)
		}
		units = append(units, u)
	}
	require.NoError(t, tx.Commit())
	return units
}
