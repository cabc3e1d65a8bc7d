package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/username/festival-planner/internal/catalog"
	"github.com/username/festival-planner/internal/config"
	"github.com/username/festival-planner/internal/holiday"
)

const testCatalog = `[
  {"id": "a", "name": "Juicy Beats", "startdatum": "2026-07-01", "enddatum": "2026-07-02"},
  {"id": "b", "name": "Haldern Pop", "startdatum": "2026-08-06", "enddatum": "2026-08-08"}
]`

const testFerien = "BEGIN:VEVENT\nDTSTART;VALUE=DATE:20260720\nDTEND;VALUE=DATE:20260902\nSUMMARY:Sommerferien\nEND:VEVENT\n"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	logger = zap.NewNop()

	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "festivals.json")
	ferienPath := filepath.Join(dir, "ferien.ics")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalog), 0o644))
	require.NoError(t, os.WriteFile(ferienPath, []byte(testFerien), 0o644))

	cfg := config.Default()
	cfg.Catalog.URL = catalogPath
	cfg.Holidays.URL = ferienPath
	cfg.Preferences.File = filepath.Join(dir, "prefs.json")
	return cfg
}

func TestMonthArg(t *testing.T) {
	month, err := monthArg([]string{"7"})
	require.NoError(t, err)
	assert.Equal(t, time.July, month)

	month, err = monthArg(nil)
	require.NoError(t, err)
	assert.Equal(t, time.Now().Month(), month)

	_, err = monthArg([]string{"0"})
	assert.Error(t, err)
	_, err = monthArg([]string{"Juli"})
	assert.Error(t, err)
}

func TestIsRemote(t *testing.T) {
	assert.True(t, isRemote("https://example.com/a.ics"))
	assert.True(t, isRemote("http://example.com/a.ics"))
	assert.False(t, isRemote("data/a.ics"))
	assert.False(t, isRemote("file:///tmp/a.ics"))
}

func TestInitializePlanner_LocalSources(t *testing.T) {
	cfg := testConfig(t)

	p := initializePlanner(cfg)
	p.store.Load()
	p.daemon.Refresh(context.Background())

	assert.Len(t, p.board.Events(), 2)
	assert.Equal(t, "Sommerferien", p.board.Holidays()["2026-08-01"])
	assert.Equal(t, "Neujahr", p.board.Holidays()["2026-01-01"])

	p.store.Toggle("b")

	reopened := initializePlanner(cfg)
	assert.True(t, reopened.store.Load().Has("b"))
}

func TestBuildSources_Fallbacks(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.FallbackFile = cfg.Catalog.URL
	cfg.Catalog.URL = filepath.Join(t.TempDir(), "missing.json")
	cfg.Holidays.FallbackFile = cfg.Holidays.URL
	cfg.Holidays.URL = "http://127.0.0.1:1/ferien.ics"
	cfg.Holidays.Timeout = "200ms"

	sources := buildSources(cfg)
	_, cached := sources.Holidays.(*holiday.CachedSource)
	assert.False(t, cached, "fallback wraps the cached source")

	p := initializePlanner(cfg)
	p.daemon.Refresh(context.Background())
	assert.Len(t, p.board.Events(), 2)
	assert.Equal(t, "Sommerferien", p.board.Holidays()["2026-07-20"])
}

func TestBuildSources_NoHolidayCalendar(t *testing.T) {
	cfg := testConfig(t)
	cfg.Holidays.URL = ""
	cfg.Holidays.PublicHolidays = false

	sources := buildSources(cfg)
	assert.Nil(t, sources.Holidays)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "festivals.ics")
	require.NoError(t, writeFile(path, []byte("BEGIN:VCALENDAR")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "BEGIN:VCALENDAR", string(data))
}

// useConfig writes cfg's sources to a config file and points the commands
// at it, capturing their output
func useConfig(t *testing.T, cfg *config.Config) *bytes.Buffer {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(
		"catalog:\n  url: "+cfg.Catalog.URL+"\n"+
			"holidays:\n  url: "+cfg.Holidays.URL+"\n"+
			"preferences:\n  file: "+cfg.Preferences.File+"\n"), 0o644))

	configPath = configFile
	var out bytes.Buffer
	stdout = &out
	t.Cleanup(func() {
		configPath = ""
		stdout = os.Stdout
	})
	return &out
}

func TestLikeAndWeeksCommands(t *testing.T) {
	out := useConfig(t, testConfig(t))

	like := likeCmd()
	like.SetArgs([]string{"a"})
	require.NoError(t, like.Execute())
	assert.Contains(t, out.String(), "★ Juicy Beats")

	out.Reset()
	weeks := weeksCmd()
	weeks.SetArgs([]string{"8"})
	require.NoError(t, weeks.Execute())
	assert.Contains(t, out.String(), "August 2026")
	assert.Contains(t, out.String(), "[b]")

	out.Reset()
	year := weeksCmd()
	year.SetArgs([]string{"--year"})
	require.NoError(t, year.Execute())
	assert.Contains(t, out.String(), "Januar 2026")
	assert.Contains(t, out.String(), "★ Juicy Beats")
	assert.Contains(t, out.String(), "Dezember 2026")
}

func TestImportCommandKeepsIDs(t *testing.T) {
	cfg := testConfig(t)
	out := useConfig(t, cfg)

	listing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><table><tbody class="vevent">
<tr><td>01.07.-02.07.</td><td><a href="/festivals/juicy-beats">Juicy Beats</a></td><td>DE</td><td>44135</td><td>Dortmund</td></tr>
<tr><td>17.07.-19.07.</td><td><a href="/festivals/parookaville">Parookaville</a></td><td>DE</td><td>47623</td><td>Weeze</td></tr>
</tbody></table></body></html>`)
	}))
	defer listing.Close()

	imp := importCmd()
	imp.SetArgs([]string{"--url", listing.URL})
	require.NoError(t, imp.Execute())
	assert.Contains(t, out.String(), "2 Festivals")

	data, err := os.ReadFile(cfg.Catalog.URL)
	require.NoError(t, err)
	events, errs := catalog.Decode(data)
	require.Empty(t, errs)
	require.Len(t, events, 2)

	assert.Equal(t, "a", events[0].ID)
	assert.Equal(t, "Parookaville", events[1].Name)
	assert.Len(t, events[1].ID, catalog.DefaultIDLength)
}
