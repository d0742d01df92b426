package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"trace": TRACE,
		"DEBUG": DEBUG,
		"":      INFO,
		"warn":  WARN,
		"Error": ERROR,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLoggerLevelsAndFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	require.NoError(t, Init(Options{Dir: dir, ConsoleLevel: WARN, FileLevel: DEBUG, Console: &console}))
	defer Close()

	Debug("отладка %d", 1)
	Warn("предупреждение %d", 2)

	out := console.String()
	assert.NotContains(t, out, "отладка", "DEBUG не должен попадать в консоль")
	assert.Contains(t, out, "[WARN] [main] предупреждение 2")

	files, err := filepath.Glob(filepath.Join(dir, "main_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	require.NoError(t, Close())
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "отладка 1"), "DEBUG должен попасть в файл")
}

func TestComponentLoggers(t *testing.T) {
	var console bytes.Buffer
	require.NoError(t, Init(Options{ConsoleLevel: INFO, Console: &console}))
	defer Close()

	lm := GetLoggerManager()
	codec := GetCodecLogger()
	assert.Same(t, codec, GetComponentLogger("codec"))
	assert.Contains(t, lm.ListComponents(), "codec")

	codec.Info("palette=%d", 16)
	assert.Contains(t, console.String(), "[INFO] [codec] palette=16")

	require.NoError(t, lm.SetLogLevel("codec", ERROR, ERROR))
	assert.False(t, codec.Enabled(WARN))
	assert.Error(t, lm.SetLogLevel("missing", INFO, INFO))
}

func TestApplyLevels(t *testing.T) {
	var console bytes.Buffer
	require.NoError(t, Init(Options{ConsoleLevel: INFO, Console: &console}))
	defer Close()

	lm := GetLoggerManager()
	existing := GetComponentLogger("levels-existing")
	require.NoError(t, lm.ApplyLevels(map[string]string{
		"levels-existing": "error",
		"Levels-Later":    "debug",
	}))
	assert.False(t, existing.Enabled(WARN))

	// Логгер, созданный после применения, получает свой уровень сразу
	later := GetComponentLogger("levels-later")
	later.Debug("видно")
	assert.Contains(t, console.String(), "[DEBUG] [levels-later] видно")

	assert.Error(t, lm.ApplyLevels(map[string]string{"codec": "loud"}))
}

func TestHexDump(t *testing.T) {
	assert.Equal(t, "No data", HexDump(nil))
	dump := HexDump(make([]byte, 1000))
	// 256 байт = 16 строк по 16 байт
	assert.Equal(t, 16, strings.Count(dump, "\n"))
}
