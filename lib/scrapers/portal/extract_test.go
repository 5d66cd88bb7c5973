package portal

import (
	"attendqr/lib/chrono"
	"attendqr/lib/htmlutil"
	"attendqr/lib/qrdecode"
	"attendqr/lib/telemetry"
	"attendqr/lib/testutil"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func fastSession() SessionOptions {
	opts := DefaultSessionOptions()
	opts.RequestsPerSecond = 1000
	opts.Burst = 100
	return opts
}

func TestExtractInlineQR(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:lib/scrapers/portal")
	defer cleanup()

	qr := testutil.QRCodePNG(t, "ATTEND-7A-20240902")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/TakeAttendanceStd.aspx" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `<html><body><img src="%s" alt="Attendance"></body></html>`, inline(qr))
	}))
	defer server.Close()

	extractor := NewExtractor(fastSession())
	extractor.Time = chrono.FixedTime(capturedAt)

	dir := filepath.Join(t.TempDir(), "qr_codes")
	saved, err := extractor.Extract(context.Background(), server.URL, nil, dir)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, []string{filepath.Join(dir, "qr_code_20240902_081530_0.png")}, saved)

	content, ok := qrdecode.DecodeFile(context.Background(), saved[0])
	require.True(t, ok)
	require.Equal(t, "ATTEND-7A-20240902", content)
}

func TestExtractWithLogin(t *testing.T) {
	qr := testutil.QRCodePNG(t, "logged in")
	authorized := func(r *http.Request) bool {
		cookie, err := r.Cookie("session")
		return err == nil && cookie.Value == "ok"
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/":
			fmt.Fprint(w, `<form action="Login.aspx?r=s" method="post">
				<input type="hidden" name="__VIEWSTATE" value="vs1">
				<input type="text" name="txtUser">
				<input type="password" name="txtPwd">
			</form>`)
		case r.URL.Path == "/Login.aspx" && r.Method == http.MethodGet:
			fmt.Fprint(w, `<form method="post">
				<input type="hidden" name="__VIEWSTATE" value="vs1">
				<input type="text" name="txtUser">
				<input type="password" name="txtPwd">
			</form>`)
		case r.URL.Path == "/Login.aspx" && r.Method == http.MethodPost:
			if r.FormValue("txtUser") != "alice" ||
				r.FormValue("txtPwd") != "secret" ||
				r.FormValue("__VIEWSTATE") != "vs1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "ok", Path: "/"})
			fmt.Fprint(w, "welcome")
		case r.URL.Path == "/qr" && authorized(r):
			fmt.Fprint(w, `<img src="/images/today_qr.png">`)
		case r.URL.Path == "/images/today_qr.png" && authorized(r):
			w.Header().Set("content-type", "image/png")
			w.Write(qr)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	extractor := NewExtractor(fastSession())
	extractor.Time = chrono.FixedTime(capturedAt)

	dir := t.TempDir()
	saved, err := extractor.Extract(context.Background(), server.URL, &Credentials{
		Username: "alice",
		Password: "secret",
	}, dir)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, saved, 1)

	content, ok := qrdecode.DecodeFile(context.Background(), saved[0])
	require.True(t, ok)
	require.Equal(t, "logged in", content)
}

func TestExtractAllPagesMissing(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:lib/scrapers/portal")
	defer cleanup()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	dir := t.TempDir()
	saved, err := NewExtractor(fastSession()).Extract(context.Background(), server.URL, nil, dir)
	require.NoError(t, err)
	require.Nil(t, saved)
	require.EqualValues(t, len(DefaultPagePaths), hits.Load())
}

func TestExtractNothingFound(t *testing.T) {
	f := &fakeFetcher{}
	dir := filepath.Join(t.TempDir(), "out")

	saved, err := f.extractor().Extract(context.Background(), "https://portal.example", nil, dir)
	require.NoError(t, err)
	require.Nil(t, saved)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	require.Empty(t, entries)
	require.Len(t, f.requests, len(DefaultPagePaths))
}

func TestExtractWithoutCredentials(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]Page{
			"https://portal.example": htmlPage(`<form action="/login"><input name="username"></form>`),
		},
	}

	_, err := f.extractor().Extract(context.Background(), "https://portal.example", nil, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	var expect []request
	for _, path := range DefaultPagePaths {
		expect = append(expect, request{
			Method: "GET",
			Url:    htmlutil.JoinURL("https://portal.example", path),
		})
	}
	require.Equal(t, expect, f.requests)
}

func TestExtractLoginFailureIsNotFatal(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]Page{
			"https://portal.example/checkin": htmlPage(`<img src="` + inline([]byte("img")) + `">`),
		},
		failures: map[string]error{
			"https://portal.example": fmt.Errorf("%w: connection refused", ErrTransport),
		},
	}
	extractor := f.extractor()
	extractor.Time = chrono.FixedTime(capturedAt)

	dir := t.TempDir()
	saved, err := extractor.Extract(context.Background(), "https://portal.example", &Credentials{Username: "a"}, dir)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, []string{filepath.Join(dir, "qr_code_20240902_081530_0.png")}, saved)
	for _, req := range f.requests {
		require.NotEqual(t, "POST", req.Method)
	}
}

func TestExtractAccumulatesPages(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]Page{
			"https://portal.example/attendance": htmlPage(`<img src="` + inline([]byte("a")) + `">`),
			"https://portal.example/scan":       htmlPage(`<img src="` + inline([]byte("b")) + `">`),
		},
	}
	extractor := f.extractor()
	extractor.Time = chrono.FixedTime(capturedAt)

	dir := t.TempDir()
	saved, err := extractor.Extract(context.Background(), "https://portal.example", nil, dir)
	if err != nil {
		t.Fatal(err)
	}
	// both pages share a timestamp and index, the second write must not clobber the first
	require.Equal(t, []string{filepath.Join(dir, "qr_code_20240902_081530_0.png")}, saved)

	contents, err := os.ReadFile(saved[0])
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "a", string(contents))
}

func TestExtractErrors(t *testing.T) {
	f := &fakeFetcher{}

	_, err := f.extractor().Extract(context.Background(), "not a url", nil, t.TempDir())
	require.Error(t, err)
	_, err = f.extractor().Extract(context.Background(), "ftp://portal.example", nil, t.TempDir())
	require.Error(t, err)

	blocker := filepath.Join(t.TempDir(), "file")
	err = os.WriteFile(blocker, nil, 0644)
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.extractor().Extract(context.Background(), "https://portal.example", nil, filepath.Join(blocker, "out"))
	require.ErrorIs(t, err, ErrPersist)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.extractor().Extract(ctx, "https://portal.example", nil, t.TempDir())
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, f.requests)
}
