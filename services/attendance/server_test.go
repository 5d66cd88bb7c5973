package attendance

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func get(t testing.TB, handler http.Handler, target string) *http.Response {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec.Result()
}

func readBody(t testing.TB, res *http.Response) string {
	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestApiLatest(t *testing.T) {
	service, _ := setup(t, &fakeExtractor{}, nil)
	handler := NewHandler(service)

	res := get(t, handler, "/api/latest")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.JSONEq(t, `{"path": null, "timestamp": null, "content": null}`, readBody(t, res))

	content := "ATTEND-1"
	service.latest.Set(Record{
		Path:      "qr_code_20240902_081530_0.png",
		Timestamp: cycleTime,
		Content:   &content,
	})
	res = get(t, handler, "/api/latest")
	require.JSONEq(t, `{
		"path": "qr_code_20240902_081530_0.png",
		"timestamp": "2024-09-02 08:15:30",
		"content": "ATTEND-1"
	}`, readBody(t, res))
}

func TestIndex(t *testing.T) {
	service, _ := setup(t, &fakeExtractor{}, nil)
	handler := NewHandler(service)

	body := readBody(t, get(t, handler, "/"))
	require.Contains(t, body, "No QR code has been extracted yet.")

	service.latest.Set(Record{Path: "qr_code_20240902_081530_0.png", Timestamp: cycleTime})
	body = readBody(t, get(t, handler, "/"))
	require.Contains(t, body, `src="/qr_codes/qr_code_20240902_081530_0.png"`)
	require.Contains(t, body, "The QR code could not be decoded.")
}

func TestApiHistory(t *testing.T) {
	dir := t.TempDir()
	first := writeQR(t, dir, "qr_code_20240902_081530_0.png", "first")

	service, _ := setup(t, &fakeExtractor{results: [][]string{{first}}}, nil)
	_, err := service.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	handler := NewHandler(service)

	res := get(t, handler, "/api/history")
	require.Equal(t, http.StatusOK, res.StatusCode)

	var entries []historyResponse
	err = json.Unmarshal([]byte(readBody(t, res)), &entries)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, entries, 1)
	content := "first"
	expect := historyResponse{
		ID:        entries[0].ID,
		CycleID:   entries[0].CycleID,
		Path:      "qr_code_20240902_081530_0.png",
		Timestamp: "2024-09-02 08:15:30",
		Content:   &content,
	}
	if diff := cmp.Diff(expect, entries[0]); diff != "" {
		t.Fatalf("unexpected history entry (-want +got):\n%s", diff)
	}

	require.Equal(t, http.StatusBadRequest, get(t, handler, "/api/history?limit=abc").StatusCode)
	require.Equal(t, http.StatusBadRequest, get(t, handler, "/api/history?limit=0").StatusCode)
	require.Equal(t, http.StatusOK, get(t, handler, "/api/history?limit=100000").StatusCode)
}

func TestParseLimit(t *testing.T) {
	limit, ok := parseLimit("")
	require.True(t, ok)
	require.Equal(t, defaultHistoryLimit, limit)

	limit, ok = parseLimit("9999")
	require.True(t, ok)
	require.Equal(t, maxHistoryLimit, limit)

	_, ok = parseLimit("-1")
	require.False(t, ok)
}

func TestQrCodeFiles(t *testing.T) {
	service, _ := setup(t, &fakeExtractor{}, nil)
	handler := NewHandler(service)

	err := os.WriteFile(filepath.Join(service.OutputDir(), "qr_code_20240902_081530_0.png"), []byte("png bytes"), 0644)
	if err != nil {
		t.Fatal(err)
	}

	res := get(t, handler, "/qr_codes/qr_code_20240902_081530_0.png")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "png bytes", readBody(t, res))

	require.Equal(t, http.StatusNotFound, get(t, handler, "/qr_codes/missing.png").StatusCode)
	require.Equal(t, http.StatusBadRequest, get(t, handler, "/qr_codes/..secret").StatusCode)
}

func TestHealthcheck(t *testing.T) {
	service, _ := setup(t, &fakeExtractor{}, nil)
	res := get(t, NewHandler(service), "/healthcheck")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "OK", readBody(t, res))
}
