package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tefi/server/config"
	"tefi/server/internal/models"
)

var (
	ErrPropertyNotFound = errors.New("property not found")
	ErrCodeExhausted    = errors.New("could not generate an unused property code")
)

type Database struct {
	db          *gorm.DB
	logger      *logrus.Logger
	newCode     func() string
	maxAttempts int
}

// NewDatabase opens the store selected by cfg.Database. The caller owns the
// returned value and must Close it.
func NewDatabase(cfg *config.Config, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.Database.DSN)
	default:
		dialector = sqlite.Open(cfg.Database.Path + "?_busy_timeout=5000&_foreign_keys=on")
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Database.Driver, err)
	}

	return &Database{
		db:          db,
		logger:      logger,
		newCode:     models.NewCode,
		maxAttempts: cfg.Database.CodeMaxAttempts,
	}, nil
}

// SetCodeGenerator replaces the generator used for new property codes.
func (d *Database) SetCodeGenerator(gen func() string) {
	d.newCode = gen
}

func (d *Database) ListProperties(ctx context.Context) ([]models.Property, error) {
	properties := make([]models.Property, 0)
	if err := d.db.WithContext(ctx).Order("id").Find(&properties).Error; err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return properties, nil
}

// CreateProperty inserts a new property with a fresh code and creation time.
// A code collision is retried with a new code up to the configured attempts.
func (d *Database) CreateProperty(ctx context.Context, address string, priceGuide int64) (*models.Property, error) {
	attempts := d.maxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		property := models.NewProperty(address, priceGuide)
		property.UniqueCode = d.newCode()
		property.CreatedAt = time.Now()

		err := d.db.WithContext(ctx).Create(property).Error
		if err == nil {
			return property, nil
		}
		if !isDuplicateKey(err) {
			return nil, fmt.Errorf("failed to insert property: %w", err)
		}

		d.logger.WithFields(logrus.Fields{
			"code":    property.UniqueCode,
			"attempt": attempt,
		}).Warn("Property code already taken, generating a new one")
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrCodeExhausted, attempts)
}

// GetPropertyByCode returns the first property (lowest id) with the given code.
func (d *Database) GetPropertyByCode(ctx context.Context, code string) (*models.Property, error) {
	var property models.Property
	err := d.db.WithContext(ctx).Order("id").Where("unique_code = ?", code).First(&property).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPropertyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up property %q: %w", code, err)
	}
	return &property, nil
}

// SetCoordinates stores a geocoded location and marks the property as attempted.
func (d *Database) SetCoordinates(ctx context.Context, id int64, point orb.Point) error {
	lat, lon := point.Lat(), point.Lon()
	result := d.db.WithContext(ctx).Model(&models.Property{}).Where("id = ?", id).Updates(map[string]interface{}{
		"latitude":            lat,
		"longitude":           lon,
		"geocoding_attempted": true,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update coordinates: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPropertyNotFound
	}
	return nil
}

// MarkGeocodingAttempted records a failed lookup so the property is not retried.
func (d *Database) MarkGeocodingAttempted(ctx context.Context, id int64) error {
	err := d.db.WithContext(ctx).Model(&models.Property{}).Where("id = ?", id).
		Update("geocoding_attempted", true).Error
	if err != nil {
		return fmt.Errorf("failed to mark geocoding attempt: %w", err)
	}
	return nil
}

func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
