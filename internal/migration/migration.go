// Package migration applies the ledger schema.
//
// Postgres deployments run the embedded SQL migrations through golang-migrate.
// Other dialects (sqlite for single-clinic installs, mysql) fall back to gorm
// AutoMigrate over the same models.
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/kinesio/internal/audit/domain"
	expensedomain "github.com/smallbiznis/kinesio/internal/expense/domain"
	invoicedomain "github.com/smallbiznis/kinesio/internal/invoice/domain"
	patientdomain "github.com/smallbiznis/kinesio/internal/patient/domain"
	paymentdomain "github.com/smallbiznis/kinesio/internal/payment/domain"
	servicepricedomain "github.com/smallbiznis/kinesio/internal/serviceprice/domain"
	"gorm.io/gorm"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// Models lists every table owned by the ledger, parents first.
func Models() []any {
	return []any{
		&patientdomain.Patient{},
		&patientdomain.ClinicalRecord{},
		&servicepricedomain.ServicePrice{},
		&invoicedomain.Sequence{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&paymentdomain.Payment{},
		&expensedomain.Expense{},
		&auditdomain.AuditLog{},
	}
}

// Apply brings the schema up to date for the given dialect.
func Apply(conn *gorm.DB, dbType string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if strings.EqualFold(strings.TrimSpace(dbType), "postgres") {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func RunMigrations(db *sql.DB) error {
	migrator, err := newMigrator(db)
	if err != nil {
		return err
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.
	return nil
}

// Rollback reverts the last steps migrations. steps <= 0 reverts everything.
func Rollback(db *sql.DB, steps int) error {
	migrator, err := newMigrator(db)
	if err != nil {
		return err
	}

	var downErr error
	if steps <= 0 {
		downErr = migrator.Down()
	} else {
		downErr = migrator.Steps(-steps)
	}
	if downErr != nil && !errors.Is(downErr, migrate.ErrNoChange) {
		return fmt.Errorf("rollback migrations: %w", downErr)
	}
	return nil
}

// Version reports the applied schema version and whether it is dirty.
func Version(db *sql.DB) (uint, bool, error) {
	migrator, err := newMigrator(db)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	if db == nil {
		return nil, errors.New("migration database handle is required")
	}

	src, err := newSource()
	if err != nil {
		return nil, err
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return migrator, nil
}

func newSource() (source.Driver, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	driver, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	return driver, nil
}
