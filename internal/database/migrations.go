package database

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"tefi/server/internal/models"
)

// Geocoder resolves a free-form address to a point.
type Geocoder interface {
	GeocodeAddress(ctx context.Context, address string) (orb.Point, error)
}

func (d *Database) RunMigrations() error {
	if err := d.db.AutoMigrate(&models.Property{}); err != nil {
		return fmt.Errorf("failed to migrate properties table: %w", err)
	}

	// Backfill rows that already carry coordinates
	err := d.db.Model(&models.Property{}).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL AND geocoding_attempted = ?", false).
		Update("geocoding_attempted", true).Error
	if err != nil {
		return fmt.Errorf("failed to mark existing coordinates as attempted: %w", err)
	}

	if err := d.db.Exec(`CREATE INDEX IF NOT EXISTS idx_properties_coordinates ON properties(latitude, longitude)`).Error; err != nil {
		return fmt.Errorf("failed to create coordinates index: %w", err)
	}

	return nil
}

// UpdateMissingCoordinates geocodes every property that has not been attempted yet,
// in batches of ten. Failed lookups are marked attempted and counted, not returned.
func (d *Database) UpdateMissingCoordinates(ctx context.Context, geocoder Geocoder) error {
	var totalCount int64
	err := d.db.WithContext(ctx).Model(&models.Property{}).
		Where("geocoding_attempted = ?", false).
		Count(&totalCount).Error
	if err != nil {
		return fmt.Errorf("failed to count properties: %w", err)
	}

	if totalCount == 0 {
		d.logger.Info("No properties need geocoding")
		return nil
	}

	d.logger.Infof("Found %d properties that need geocoding", totalCount)

	var processed, failed int64
	const batchSize = 10

	for processed+failed < totalCount {
		if err := ctx.Err(); err != nil {
			return err
		}

		var batch []models.Property
		err := d.db.WithContext(ctx).
			Where("geocoding_attempted = ?", false).
			Order("id").
			Limit(batchSize).
			Find(&batch).Error
		if err != nil {
			return fmt.Errorf("failed to query properties: %w", err)
		}

		if len(batch) == 0 {
			break
		}

		for _, p := range batch {
			point, err := geocoder.GeocodeAddress(ctx, p.Address)
			if err != nil {
				d.logger.WithError(err).WithField("address", p.Address).Warn("Failed to geocode property")
				if err := d.MarkGeocodingAttempted(ctx, p.ID); err != nil {
					return err
				}
				failed++
				continue
			}

			if err := d.SetCoordinates(ctx, p.ID, point); err != nil {
				return err
			}
			processed++
		}

		d.logger.WithFields(logrus.Fields{
			"processed": processed,
			"failed":    failed,
			"total":     totalCount,
		}).Info("Geocoding progress")
	}

	d.logger.WithFields(logrus.Fields{
		"processed": processed,
		"failed":    failed,
		"total":     totalCount,
	}).Info("Geocoding completed")

	return nil
}
