package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoDetails/config"
	"photoDetails/details"
)

var modified = time.Date(2021, 7, 4, 10, 30, 0, 0, time.UTC)

func testConfig(provider string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Display.TimeZone = "UTC"
	cfg.Location.Provider = provider
	cfg.Location.Latitude = 37.422
	cfg.Location.Longitude = -122.084
	return cfg
}

func writePNG(t *testing.T, name string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))))
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	require.NoError(t, os.Chtimes(path, modified, modified))
	return path
}

func TestDescribeFile_DeviceFallback(t *testing.T) {
	logger, _ := test.NewNullLogger()
	var out bytes.Buffer

	err := describeFile(&out, testConfig(config.ProviderStatic), logger, writePNG(t, "beach.png"), 2*time.Second, false)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "File:       beach.png\n")
	assert.Contains(t, text, "Size:       ")
	assert.Contains(t, text, "Date Taken: 7/4/2021, 10:30:00 AM\n")
	assert.Contains(t, text, "Location:   Unknown\n")
	assert.True(t, strings.HasSuffix(text, "Location:   Lat: 37.422000, Lng: -122.084000 (device)\n"), text)
}

func TestDescribeFile_NoProvider(t *testing.T) {
	logger, _ := test.NewNullLogger()
	var out bytes.Buffer

	err := describeFile(&out, testConfig(config.ProviderNone), logger, writePNG(t, "a.png"), time.Second, false)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out.String(), "Location:"))
	assert.Contains(t, out.String(), "Location:   Unknown\n")
}

func TestDescribeFile_ClientProviderUnavailable(t *testing.T) {
	logger, _ := test.NewNullLogger()
	var out bytes.Buffer

	err := describeFile(&out, testConfig(config.ProviderClient), logger, writePNG(t, "a.png"), time.Second, false)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out.String(), "Location:"))
}

func TestDescribeFile_JSON(t *testing.T) {
	logger, _ := test.NewNullLogger()
	var out bytes.Buffer

	err := describeFile(&out, testConfig(config.ProviderStatic), logger, writePNG(t, "beach.png"), 2*time.Second, true)
	require.NoError(t, err)

	var cards []fileCard
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var c fileCard
		require.NoError(t, json.Unmarshal(sc.Bytes(), &c))
		cards = append(cards, c)
	}
	require.Len(t, cards, 2)
	assert.Equal(t, details.UnknownLocation, cards[0].DisplayLocation)
	assert.True(t, cards[0].LocationPending)
	assert.Equal(t, "Lat: 37.422000, Lng: -122.084000", cards[1].DisplayLocation)
	assert.Equal(t, details.LocationSourceDevice, cards[1].LocationSource)
	assert.Equal(t, cards[0].SelectionID, cards[1].SelectionID)
	assert.Positive(t, cards[1].Bytes)
}

func TestDescribeFile_Rejected(t *testing.T) {
	logger, _ := test.NewNullLogger()
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("just words"), 0644))

	err := describeFile(&bytes.Buffer{}, testConfig(config.ProviderNone), logger, path, time.Second, false)
	require.Error(t, err)
	assert.Equal(t, "You can only upload image files!", err.Error())

	err = describeFile(&bytes.Buffer{}, testConfig(config.ProviderNone), logger, filepath.Join(t.TempDir(), "missing.jpg"), time.Second, false)
	assert.Error(t, err)
}

func TestNewLocator(t *testing.T) {
	logger, _ := test.NewNullLogger()

	loc, client := newLocator(testConfig(config.ProviderNone), logger, true)
	assert.Nil(t, loc)
	assert.Nil(t, client)

	loc, client = newLocator(testConfig(config.ProviderClient), logger, true)
	assert.NotNil(t, loc)
	assert.NotNil(t, client)

	loc, client = newLocator(testConfig(config.ProviderClient), logger, false)
	assert.Nil(t, loc)
	assert.Nil(t, client)

	cfg := testConfig(config.ProviderHTTP)
	cfg.Location.URL = "http://127.0.0.1:1/position"
	cfg.Location.TimeoutSeconds = 1
	loc, _ = newLocator(cfg, logger, false)
	assert.NotNil(t, loc)
}

func TestNewRouter(t *testing.T) {
	logger, _ := test.NewNullLogger()
	h, session, err := newRouter(testConfig(config.ProviderClient), logger)
	require.NoError(t, err)
	defer session.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Body.String(), version)
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photodetails.yaml")
	cfg := testConfig(config.ProviderStatic)
	var out bytes.Buffer

	require.NoError(t, saveConfig(&out, cfg, path))
	assert.Contains(t, out.String(), path)

	loaded, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Location, loaded.Location)
	assert.Equal(t, "UTC", loaded.Display.TimeZone)

	assert.Error(t, saveConfig(&out, cfg, path), "an existing file is never overwritten")
}
