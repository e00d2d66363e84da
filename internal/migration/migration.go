// Package migration brings the schema up to date on startup.
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/innkeeper/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/innkeeper/internal/catalog/domain"
	clientdomain "github.com/smallbiznis/innkeeper/internal/client/domain"
	invoicedomain "github.com/smallbiznis/innkeeper/internal/invoice/domain"
	refdomain "github.com/smallbiznis/innkeeper/internal/reference/domain"
	reservationdomain "github.com/smallbiznis/innkeeper/internal/reservation/domain"
	ticketdomain "github.com/smallbiznis/innkeeper/internal/ticket/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every table in dependency order.
func Models() []any {
	return []any{
		&refdomain.PaymentMethodRow{},
		&refdomain.IdentityDocumentTypeRow{},
		&refdomain.GenderRow{},
		&catalogdomain.Category{},
		&catalogdomain.Product{},
		&catalogdomain.RoomType{},
		&catalogdomain.Room{},
		&clientdomain.Client{},
		&invoicedomain.Invoice{},
		&invoicedomain.SoldLine{},
		&ticketdomain.Ticket{},
		&ticketdomain.Line{},
		&reservationdomain.Reservation{},
		&reservationdomain.SoldRoom{},
		&reservationdomain.ReservationSoldRoom{},
		&reservationdomain.SoldRoomClient{},
		&reservationdomain.SoldRoomInvoice{},
		&auditdomain.AuditLog{},
	}
}

// RunMigrations applies the embedded PostgreSQL migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// migrator.Close would close the shared *sql.DB.

	return nil
}

// AutoMigrate builds the schema from the models for MySQL and SQLite.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
