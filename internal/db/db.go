package db

import (
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// register the postgres driver and file source for golang-migrate
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/engineerapp/backoffice/internal/models"
)

// AllModels is the AutoMigrate set; tests reuse it against sqlite.
func AllModels() []any {
	return []any{
		&models.User{}, &models.DeviceToken{},
		&models.Customer{},
		&models.Item{}, &models.SerialNumber{}, &models.StockEntry{},
		&models.Service{},
		&models.Bill{}, &models.BillLine{}, &models.PaymentEntry{},
		&models.WorkOrder{},
		&models.BankAccount{},
		&models.Sequence{},
		&models.SupportTicket{},
	}
}

// ConnectAndMigrate opens the postgres database with retries and brings the
// schema up to date, either via golang-migrate SQL files (useSQLMigrations)
// or gorm AutoMigrate (dev convenience).
func ConnectAndMigrate(rawDSN string, useSQLMigrations, debug bool, log *logrus.Logger) (*gorm.DB, error) {
	dsn := NormalizeDSN(rawDSN)
	if dsn == "" {
		return nil, errors.New("DATABASE_DSN is empty, check the environment configuration")
	}
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var conn *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		conn, err = gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			break
		}
		log.WithError(err).Warn("retrying DB connection")
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, errors.Wrap(err, "connect database after retries")
	}

	if pingErr := conn.Exec("SELECT 1").Error; pingErr != nil {
		return nil, errors.Wrap(pingErr, "db ping")
	}
	log.WithField("dsn", maskDSN(dsn)).Info("database connected")

	if useSQLMigrations {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, errors.Wrap(err, "sql migrations")
		}
	} else {
		for _, m := range AllModels() {
			if migErr := conn.AutoMigrate(m); migErr != nil {
				return nil, errors.Wrapf(migErr, "automigrate %T", m)
			}
		}
	}

	// sanity check: ensure required core tables exist
	for _, table := range []string{"users", "customers", "items", "bills", "sequences"} {
		if !conn.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	return conn, nil
}

// runSQLMigrations executes migrations in ./migrations using the
// golang-migrate file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
