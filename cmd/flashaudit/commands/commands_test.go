//go:build !windows

package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/flashaudit/pkg/audit"
)

// cli runs the root command against a private image and config directory.
type cli struct {
	t      *testing.T
	image  string
	config string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	t.Setenv("FLASHAUDIT_LOGGING_LEVEL", "ERROR")
	return &cli{
		t:      t,
		image:  filepath.Join(dir, "flash.img"),
		config: filepath.Join(dir, "missing.yaml"),
	}
}

// run executes args and returns stdout.
func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()

	// Flag variables outlive a single Execute.
	addFile, addAutoFlush = "", false
	getOut, formatForce, statsThreshold = "", false, 0
	outputFmt, noColor = "table", true
	logsFollow, logsLines, logsSince = false, 100, ""
	dumpArea, statsArea = "audit", "audit"

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--config", c.config, "--image", c.image}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, "flashaudit %s", strings.Join(args, " "))
	return out
}

func TestRecordLifecycle(t *testing.T) {
	c := newCLI(t)

	c.mustRun("format", "--force")

	assert.Equal(t, "1\n", c.mustRun("add", "user=alice action=login"))
	assert.Equal(t, "2\n", c.mustRun("add", "user=bob action=logout"))

	assert.Equal(t, "user=alice action=login", c.mustRun("get", "1"))
	assert.Equal(t, "22\n", c.mustRun("size", "0x2"))

	var listed []recordRef
	require.NoError(t, json.Unmarshal([]byte(c.mustRun("list", "-o", "json")), &listed))
	assert.Equal(t, []recordRef{{ID: 1, Size: 23}, {ID: 2, Size: 22}}, listed)

	c.mustRun("dispose", "1")
	_, err := c.run("get", "1")
	assert.ErrorIs(t, err, audit.ErrUnknownID)

	var res audit.FlushResult
	require.NoError(t, json.Unmarshal([]byte(c.mustRun("flush", "-o", "json")), &res))
	assert.Equal(t, 1, res.PagesErased)
	assert.Equal(t, 1, res.PartsMoved)

	var usage audit.Usage
	require.NoError(t, json.Unmarshal([]byte(c.mustRun("stats", "-o", "json")), &usage))
	assert.Equal(t, 1, usage.LiveRecords)
	assert.Zero(t, usage.TombstonedBytes)

	// Records survive reopening the image.
	assert.Equal(t, "user=bob action=logout", c.mustRun("get", "2"))
}

func TestAddFromFileAndGetToFile(t *testing.T) {
	c := newCLI(t)
	dir := t.TempDir()

	payload := bytes.Repeat([]byte{0x00, 0xA5, 0xFF}, 400) // spans several parts
	in := filepath.Join(dir, "event.bin")
	require.NoError(t, os.WriteFile(in, payload, 0644))

	id := strings.TrimSpace(c.mustRun("add", "--file", in))
	assert.Equal(t, "1", id)

	out := filepath.Join(dir, "copy.bin")
	c.mustRun("get", id, "--out", out)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestAddErrors(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("add")
	assert.ErrorContains(t, err, "no payload")

	_, err = c.run("add", "--file", "x", "text")
	assert.ErrorContains(t, err, "not both")

	empty := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err = c.run("add", "--file", empty)
	assert.ErrorIs(t, err, audit.ErrInvalidDataSize)
}

func TestRecordIDArguments(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("size", "0")
	assert.ErrorIs(t, err, audit.ErrInvalidID)

	_, err = c.run("size", "70000")
	assert.ErrorContains(t, err, "invalid record id")

	_, err = c.run("dispose", "5", "nope")
	assert.ErrorContains(t, err, "invalid record id")
}

func TestDumpTable(t *testing.T) {
	c := newCLI(t)
	c.mustRun("add", "event")

	out := c.mustRun("dump")
	assert.Contains(t, out, "ADDRESS")
	assert.Contains(t, out, "0x000008") // first part right after the page header
	assert.Contains(t, out, "unused")
}

func TestAreaFlag(t *testing.T) {
	c := newCLI(t)
	c.mustRun("add", "event")

	var audited, cfgArea []audit.PageDump
	require.NoError(t, json.Unmarshal([]byte(c.mustRun("dump", "-o", "json")), &audited))
	require.NoError(t, json.Unmarshal([]byte(c.mustRun("dump", "--area", "config", "-o", "json")), &cfgArea))

	assert.Equal(t, audit.PageUsed, audited[0].State)
	assert.Len(t, audited[0].Parts, 1)
	for _, pg := range cfgArea {
		assert.Equal(t, audit.PageUnused, pg.State, "config area untouched by add")
	}

	var usage audit.Usage
	require.NoError(t, json.Unmarshal([]byte(c.mustRun("stats", "--area", "config", "-o", "json")), &usage))
	assert.Zero(t, usage.LiveRecords)
	assert.Zero(t, usage.UsedPages)

	_, err := c.run("dump", "--area", "boot")
	assert.ErrorContains(t, err, "unknown flash area")
}

func TestGeometryMismatch(t *testing.T) {
	c := newCLI(t)
	c.mustRun("add", "event")

	t.Setenv("FLASHAUDIT_FLASH_PAGE_COUNT", "8")
	_, err := c.run("list")
	assert.ErrorContains(t, err, "geometry mismatch")
}

func TestLogs(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("logs")
	assert.ErrorContains(t, err, "not a file")

	logFile := filepath.Join(t.TempDir(), "serve.log")
	t.Setenv("FLASHAUDIT_LOGGING_OUTPUT", logFile)

	_, err = c.run("logs")
	assert.ErrorContains(t, err, "log file not found")

	lines := strings.Join([]string{
		`{"time":"2026-01-15T09:00:00Z","level":"INFO","msg":"Compactor started"}`,
		`{"time":"2026-01-15T10:00:00Z","level":"INFO","msg":"Audit flush completed"}`,
		`{"time":"2026-01-15T11:00:00Z","level":"INFO","msg":"Compactor stopped"}`,
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(logFile, []byte(lines), 0644))

	out := c.mustRun("logs", "-n", "2")
	assert.NotContains(t, out, "Compactor started")
	assert.Contains(t, out, "Audit flush completed")
	assert.Contains(t, out, "Compactor stopped")

	out = c.mustRun("logs", "--since", "2026-01-15T10:30:00Z")
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "Compactor stopped")

	_, err = c.run("logs", "--since", "yesterday")
	assert.ErrorContains(t, err, "RFC3339")
}

func TestLineTime(t *testing.T) {
	text := lineTime("2026-01-15 10:00:00.250 INFO  Audit flush completed passes=1")
	assert.Equal(t, time.Date(2026, 1, 15, 10, 0, 0, 250e6, time.Local), text)

	js := lineTime(`{"time":"2026-01-15T10:00:00Z","msg":"x"}`)
	assert.True(t, js.Equal(time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)))

	assert.True(t, lineTime("no timestamp here").IsZero())
}

func TestVersion(t *testing.T) {
	c := newCLI(t)
	out := c.mustRun("version")
	assert.Contains(t, out, "flashaudit dev")
}

func TestParseRecordID(t *testing.T) {
	tests := []struct {
		in      string
		want    audit.RecordID
		wantErr bool
	}{
		{"1", 1, false},
		{"65535", 65535, false},
		{"0x10", 16, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"65536", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseRecordID(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
