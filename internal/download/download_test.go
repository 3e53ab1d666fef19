package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmeier/structure-harvester/internal/types"
)

func fakeFiles() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/S1.cif":
			_, _ = w.Write([]byte("data_S1\n"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestRun_DownloadsAndLogs(t *testing.T) {
	server := fakeFiles()
	defer server.Close()

	dir := t.TempDir()
	logPath := filepath.Join(dir, "download_log.csv")
	d := &Downloader{
		BaseURL: server.URL,
		OutDir:  filepath.Join(dir, "raw"),
		LogPath: logPath,
	}

	selected := []types.SelectedStructure{
		{StructureID: "S1", Accession: "A1", Resolution: 1.5, Method: "X-RAY DIFFRACTION"},
		{StructureID: "S2", Accession: "A2", Resolution: 2.0, Method: "X-RAY DIFFRACTION"},
	}

	records, err := d.Run(context.Background(), selected)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Downloaded", records[0].Status)
	assert.Equal(t, "A1_S1.cif", records[0].Filename)
	content, err := os.ReadFile(filepath.Join(dir, "raw", "A1_S1.cif"))
	require.NoError(t, err)
	assert.Equal(t, "data_S1\n", string(content))

	// The missing file is a per-record status, not an error.
	assert.Equal(t, "Failed (HTTP 404)", records[1].Status)
	assert.Empty(t, records[1].Filename)

	logContent, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logContent), "Accession,Structure_ID,Resolution,Method,Status,Filename")
	assert.Contains(t, string(logContent), "A1,S1,1.5,X-RAY DIFFRACTION,Downloaded,A1_S1.cif")
}

func TestRun_ConnectionErrorStatus(t *testing.T) {
	dir := t.TempDir()
	d := &Downloader{
		BaseURL: "http://127.0.0.1:1", // nothing listens here
		OutDir:  dir,
	}

	records, err := d.Run(context.Background(), []types.SelectedStructure{{StructureID: "S1", Accession: "A1"}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Failed (Connection Error)", records[0].Status)
}

func TestRun_ProgressCallback(t *testing.T) {
	server := fakeFiles()
	defer server.Close()

	var seen []string
	d := &Downloader{
		BaseURL: server.URL,
		OutDir:  t.TempDir(),
		OnProgress: func(rec Record) {
			seen = append(seen, rec.StructureID+":"+rec.Status)
		},
	}

	_, err := d.Run(context.Background(), []types.SelectedStructure{
		{StructureID: "S1", Accession: "A1"},
		{StructureID: "S2", Accession: "A2"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"S1:Downloaded", "S2:Failed (HTTP 404)"}, seen)
}

func TestRun_NoSelection(t *testing.T) {
	d := &Downloader{BaseURL: "http://unused.invalid", OutDir: t.TempDir(), LogPath: filepath.Join(t.TempDir(), "log.csv")}
	records, err := d.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
	// No attempts, no log file.
	_, statErr := os.Stat(d.LogPath)
	assert.True(t, os.IsNotExist(statErr))
}
