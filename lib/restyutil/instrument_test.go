package restyutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	lock     sync.Mutex
	messages map[string]string
}

func (o *memoryOutput) Write(id string, contents string) {
	o.lock.Lock()
	defer o.lock.Unlock()
	o.messages[id] = contents
}

func TestInstrumentClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/qr.png" {
			w.Header().Set("content-type", "image/png")
			w.Write([]byte{0x89, 'P', 'N', 'G'})
			return
		}
		w.Header().Set("content-type", "text/html")
		w.Write([]byte("<html>attendance</html>"))
	}))
	defer server.Close()

	out := &memoryOutput{messages: map[string]string{}}
	client := resty.New()
	InstrumentClient(client, out)

	_, err := client.R().Get(server.URL + "/attendance")
	require.Nil(t, err)
	_, err = client.R().Get(server.URL + "/qr.png")
	require.Nil(t, err)

	require.Len(t, out.messages, 2)
	require.True(t, strings.Contains(out.messages["1"], "<html>attendance</html>"))
	require.True(t, strings.Contains(out.messages["2"], "<4 bytes of image/png>"))
	require.True(t, strings.Contains(out.messages["2"], "---- RESPONSE ----"))
}

func TestInstrumentClientNilOutput(t *testing.T) {
	client := resty.New()
	InstrumentClient(client, nil)
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "resty")
	out, err := NewFilesystemOutput(dir)
	require.Nil(t, err)

	out.Write("1", "hello")
	contents, err := os.ReadFile(filepath.Join(dir, "1"))
	require.Nil(t, err)
	require.Equal(t, "hello", string(contents))
}

func TestFormatRequestBody(t *testing.T) {
	req := httptest.NewRequest("GET", "https://portal.example", nil)
	req.GetBody = func() (io.ReadCloser, error) {
		return nil, nil
	}
	require.Equal(t, "", formatRequestBody(req))

	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("username=alice")), nil
	}
	require.Equal(t, "username=alice", formatRequestBody(req))

	require.Equal(t, "", formatRequestBody(nil))
}
