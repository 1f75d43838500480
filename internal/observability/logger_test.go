package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/driftbench/probeshot/internal/config"
)

// syncBuffer adapts bytes.Buffer to zapcore.WriteSyncer so tests can capture
// the console stream without touching os.Stdout.
type syncBuffer struct {
	bytes.Buffer
}

func (*syncBuffer) Sync() error { return nil }

func initForTest(t *testing.T, cfg config.LoggerConfig) *syncBuffer {
	t.Helper()
	ResetForTest()
	t.Cleanup(ResetForTest)

	buf := &syncBuffer{}
	Initialize(cfg, zapcore.Lock(buf))
	return buf
}

func TestInitialize_ConsoleFormat(t *testing.T) {
	buf := initForTest(t, config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "probeshot-test",
	})

	GetLogger().Info("readiness check passed")

	output := buf.String()
	assert.Contains(t, output, "INFO")
	assert.Contains(t, output, "readiness check passed")
	assert.Contains(t, output, "probeshot-test.")
}

func TestInitialize_JSONFormat(t *testing.T) {
	buf := initForTest(t, config.LoggerConfig{
		Level:       "info",
		Format:      "json",
		ServiceName: "jsontest",
	})

	GetLogger().Warn("capture skipped", zap.String("label", "login"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log output should be valid JSON")
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "jsontest", entry["logger"])
	assert.Equal(t, "capture skipped", entry["msg"])
	assert.Equal(t, "login", entry["label"])
}

func TestInitialize_LevelFiltering(t *testing.T) {
	buf := initForTest(t, config.LoggerConfig{
		Level:  "warn",
		Format: "json",
	})

	GetLogger().Info("too quiet to pass the filter")
	assert.Empty(t, buf.String())
}

func TestInitialize_InvalidLevelFallsBackToInfo(t *testing.T) {
	buf := initForTest(t, config.LoggerConfig{
		Level:  "shouting",
		Format: "json",
	})

	GetLogger().Debug("filtered at info")
	GetLogger().Info("kept at info")
	assert.NotContains(t, buf.String(), "filtered at info")
	assert.Contains(t, buf.String(), "kept at info")
}

func TestInitialize_FileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "probeshot-test.log")
	initForTest(t, config.LoggerConfig{
		Level:   "debug",
		Format:  "json",
		LogFile: logPath,
		MaxSize: 1,
	})

	GetLogger().Info("written to file")
	Sync()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestInitialize_OnlyOnce(t *testing.T) {
	buf := initForTest(t, config.LoggerConfig{Level: "info", Format: "json", ServiceName: "first"})

	// Second call must be a no-op.
	Initialize(config.LoggerConfig{Level: "debug", Format: "console", ServiceName: "second"}, zapcore.Lock(&syncBuffer{}))
	GetLogger().Info("still the first logger")

	assert.Contains(t, buf.String(), `"logger":"first"`)
}

func TestGetLogger_FallbackBeforeInitialize(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	require.NotNil(t, logger)
}
