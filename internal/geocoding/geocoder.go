package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"tefi/server/internal/models"
)

const cacheFileName = "geocode_cache.json"

type Geocoder struct {
	logger    *logrus.Logger
	baseURL   string
	country   string
	cacheDir  string
	cache     map[string][]float64
	cacheLock sync.RWMutex
	client    *http.Client

	// Nominatim allows one request per second
	minInterval time.Duration
	rateLock    sync.Mutex
	lastRequest time.Time
}

func NewGeocoder(logger *logrus.Logger, baseURL, country, cacheDir string) *Geocoder {
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "tefi", "geocode_cache")
	}

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		logger.WithError(err).Warn("Could not create geocode cache directory")
	}

	g := &Geocoder{
		logger:      logger,
		baseURL:     baseURL,
		country:     country,
		cacheDir:    cacheDir,
		cache:       make(map[string][]float64),
		client:      &http.Client{Timeout: 10 * time.Second},
		minInterval: time.Second,
	}

	g.loadCache()

	return g
}

func (g *Geocoder) loadCache() {
	data, err := os.ReadFile(filepath.Join(g.cacheDir, cacheFileName))
	if err != nil {
		if !os.IsNotExist(err) {
			g.logger.Warnf("Could not load geocode cache: %v", err)
		}
		return
	}

	if err := json.Unmarshal(data, &g.cache); err != nil {
		g.logger.Errorf("Failed to parse geocode cache: %v", err)
		return
	}

	g.logger.Infof("Loaded %d cached addresses", len(g.cache))
}

func (g *Geocoder) saveCache() {
	g.cacheLock.RLock()
	data, err := json.Marshal(g.cache)
	g.cacheLock.RUnlock()
	if err != nil {
		g.logger.Errorf("Failed to marshal geocode cache: %v", err)
		return
	}

	if err := os.WriteFile(filepath.Join(g.cacheDir, cacheFileName), data, 0644); err != nil {
		g.logger.Errorf("Failed to save geocode cache: %v", err)
	}
}

type nominatimResponse []struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// GeocodeAddress resolves a free-form address. Results are cached in memory and on disk.
func (g *Geocoder) GeocodeAddress(ctx context.Context, address string) (orb.Point, error) {
	cacheKey := strings.ToLower(strings.TrimSpace(address))
	if cacheKey == "" {
		return orb.Point{}, fmt.Errorf("empty address")
	}

	g.cacheLock.RLock()
	coords, ok := g.cache[cacheKey]
	g.cacheLock.RUnlock()
	if ok {
		if len(coords) != 2 {
			return orb.Point{}, fmt.Errorf("invalid cached coordinates for %q", address)
		}
		g.logger.WithFields(logrus.Fields{
			"address":   address,
			"latitude":  coords[0],
			"longitude": coords[1],
			"source":    "cache",
		}).Debug("Found coordinates in cache")
		return orb.Point{coords[1], coords[0]}, nil
	}

	if err := g.wait(ctx); err != nil {
		return orb.Point{}, err
	}

	params := url.Values{
		"q":      []string{address},
		"format": []string{"json"},
		"limit":  []string{"1"},
	}
	if g.country != "" {
		params.Set("countrycodes", g.country)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL, nil)
	if err != nil {
		return orb.Point{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("User-Agent", "TEFI Local/1.0")
	req.Header.Set("Accept-Language", "nb-NO,nb;q=0.9,en;q=0.7")

	resp, err := g.client.Do(req)
	if err != nil {
		return orb.Point{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return orb.Point{}, fmt.Errorf("geocoding service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return orb.Point{}, fmt.Errorf("failed to read response: %w", err)
	}

	var result nominatimResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return orb.Point{}, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(result) == 0 {
		return orb.Point{}, fmt.Errorf("no results found for address: %s", address)
	}

	lat, err := strconv.ParseFloat(result[0].Lat, 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid latitude %q: %w", result[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(result[0].Lon, 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid longitude %q: %w", result[0].Lon, err)
	}

	g.logger.WithFields(logrus.Fields{
		"address":   address,
		"latitude":  lat,
		"longitude": lon,
		"source":    "nominatim",
	}).Info("Successfully geocoded address")

	g.cacheLock.Lock()
	g.cache[cacheKey] = []float64{lat, lon}
	g.cacheLock.Unlock()

	g.saveCache()

	return orb.Point{lon, lat}, nil
}

// CoordinateStore persists geocoding outcomes.
type CoordinateStore interface {
	SetCoordinates(ctx context.Context, id int64, point orb.Point) error
	MarkGeocodingAttempted(ctx context.Context, id int64) error
}

// LocateProperty geocodes a property's address and stores the result. A failed
// lookup is still recorded so the startup backfill skips the property.
func (g *Geocoder) LocateProperty(ctx context.Context, store CoordinateStore, property *models.Property) error {
	point, err := g.GeocodeAddress(ctx, property.Address)
	if err != nil {
		if markErr := store.MarkGeocodingAttempted(ctx, property.ID); markErr != nil {
			g.logger.WithError(markErr).WithField("id", property.ID).Error("Failed to mark geocoding attempt")
		}
		return fmt.Errorf("failed to geocode property %s: %w", property.UniqueCode, err)
	}
	return store.SetCoordinates(ctx, property.ID, point)
}

// wait blocks until minInterval has passed since the previous request.
func (g *Geocoder) wait(ctx context.Context) error {
	g.rateLock.Lock()
	defer g.rateLock.Unlock()

	if delay := g.minInterval - time.Since(g.lastRequest); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	g.lastRequest = time.Now()
	return nil
}
