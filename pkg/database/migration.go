package database

import (
	"os"
	"path/filepath"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pkg/errors"
)

// MigrationConfig controls schema migration behavior at startup.
type MigrationConfig struct {
	MigrationFolderPath string
	// Version pins the schema to a specific migration; zero means latest.
	Version uint
	// Force marks the given version as applied without running it. Used to
	// recover a dirty database.
	Force int
	// AutoRollback reverts a dirty database to the previous version after a
	// failed migration. The migration error is still returned so the
	// service does not start on a half-applied schema.
	AutoRollback bool
}

// MigrationService applies the SQL migrations under db/pg against the
// connected database before anything else touches it.
type MigrationService struct {
	config *MigrationConfig
	logger ectologger.Logger
}

func NewMigrationService(logger ectologger.Logger, config *MigrationConfig) *MigrationService {
	return &MigrationService{
		config: config,
		logger: logger,
	}
}

// migrationLogger feeds golang-migrate's progress output into our logger.
type migrationLogger struct {
	ectologger.Logger
}

func (l migrationLogger) Verbose() bool {
	return true
}

func (l migrationLogger) Printf(format string, v ...any) {
	l.Infof(format, v...)
}

func (ms *MigrationService) Migrate(databaseName string, driver migratedb.Driver) error {
	folder := ms.resolveFolder()
	if _, err := os.Stat(folder); err != nil {
		return errors.Wrapf(err, "migration folder %s does not exist", folder)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+folder, databaseName, driver)
	if err != nil {
		ms.logger.WithError(err).Error("Failed to create migrate instance")
		return err
	}
	m.Log = migrationLogger{Logger: ms.logger}

	if ms.config.Force != 0 {
		if err := m.Force(ms.config.Force); err != nil {
			ms.logger.WithError(err).Errorf("Failed to force schema to version %d", ms.config.Force)
			return err
		}
	}

	start := time.Now()
	if ms.config.Version != 0 {
		err = m.Migrate(ms.config.Version)
	} else {
		err = m.Up()
	}

	if err == nil {
		ms.logger.Infof("Migrations applied in %v", time.Since(start))
		return nil
	}
	if errors.Is(err, migrate.ErrNoChange) {
		ms.logger.Info("No new migrations to apply")
		return nil
	}

	return ms.recover(m, err)
}

// recover handles a failed migration, optionally cleaning up a dirty schema
// version so the next start can retry.
func (ms *MigrationService) recover(m *migrate.Migrate, migrationErr error) error {
	ms.logger.WithError(migrationErr).Error("Migration failed")

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		ms.logger.WithError(err).Error("Failed to read schema version after failed migration")
		return migrationErr
	}

	if ms.config.AutoRollback && dirty && version > 0 {
		previous := int(version) - 1
		ms.logger.Warnf("Schema dirty at version %d, forcing back to %d", version, previous)
		if err := m.Force(previous); err != nil {
			ms.logger.WithError(err).Errorf("Failed to force schema to version %d", previous)
		}
	}

	return migrationErr
}

func (ms *MigrationService) resolveFolder() string {
	folder := ms.config.MigrationFolderPath
	if _, err := os.Stat(folder); err == nil {
		return folder
	}
	wd, err := os.Getwd()
	if err != nil {
		return folder
	}
	return filepath.Join(wd, folder)
}
