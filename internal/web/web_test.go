package web

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tefi/server/internal/models"
)

func TestTemplatesRenderDashboard(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, "dashboard.html", map[string]interface{}{
		"title":   Title,
		"patent":  Patent,
		"baseURL": "https://tefi.example.no/",
		"properties": []models.Property{
			{ID: 1, Address: "Storgata 1", PriceGuide: 1200000, UniqueCode: "ab12cd34", CreatedAt: time.Now()},
		},
	})
	require.NoError(t, err)

	body := buf.String()
	assert.Contains(t, body, "Storgata 1")
	assert.Contains(t, body, `data-price="1200000"`)
	assert.Contains(t, body, "https://tefi.example.no/bud/ab12cd34")
	assert.Contains(t, body, Patent)
}

func TestTemplatesRenderBidderWithLocation(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	lat, lon := 59.9139, 10.7522
	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, "bidder.html", map[string]interface{}{
		"title":  Title,
		"patent": Patent,
		"prop":   &models.Property{Address: "Karl Johans gate 1", PriceGuide: 5000000, UniqueCode: "ef56gh78", Latitude: &lat, Longitude: &lon},
	})
	require.NoError(t, err)

	body := buf.String()
	assert.Contains(t, body, "Karl Johans gate 1")
	assert.Contains(t, body, "openstreetmap.org")
	assert.Contains(t, body, "59.9139")
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	static := filepath.Join(root, "static")
	uploads := filepath.Join(root, "nested", "uploads")

	require.NoError(t, EnsureDirs(static, uploads, ""))

	for _, dir := range []string{static, uploads} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// Existing directories are fine
	assert.NoError(t, EnsureDirs(static))
}
