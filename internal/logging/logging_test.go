package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		program string
		want    string
	}{
		{
			name:    "basic path",
			logsDir: "vlmlogs",
			program: "vlm",
			want:    filepath.Join("vlmlogs", "vlm.20260212_213836.log"),
		},
		{
			name:    "relative path with dot",
			logsDir: "./vlmlogs",
			program: "vlm-server",
			want:    filepath.Join(".", "vlmlogs", "vlm-server.20260212_213836.log"),
		},
		{
			name:    "absolute path",
			logsDir: filepath.Join("/var", "log", "vlm"),
			program: "vlm",
			want:    filepath.Join("/var", "log", "vlm", "vlm.20260212_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, tt.program, sessionStart))
		})
	}
}

func TestOpenLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	start := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	f, err := OpenLogFile(dir, "vlm", start)
	require.NoError(t, err)
	_, err = f.WriteString("line\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(LogFilePath(dir, "vlm", start))
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))
}

func TestNewGraylogWriter(t *testing.T) {
	w, err := NewGraylogWriter("127.0.0.1:12201")
	require.NoError(t, err)
	assert.Equal(t, ServiceName, w.Facility)
	require.NoError(t, w.Close())

	_, err = NewGraylogWriter("not an address")
	assert.Error(t, err)
}
