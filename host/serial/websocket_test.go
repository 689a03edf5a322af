package serial

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// echoServer splits every binary message into single-byte messages and
// sends them back, checking the Basic auth header on the way in
func echoServer(t *testing.T, wantAuth string) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantAuth != "" && r.Header.Get("Authorization") != wantAuth {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			conn.WriteMessage(websocket.TextMessage, []byte("ignored"))
			for _, b := range data {
				if err := conn.WriteMessage(mt, []byte{b}); err != nil {
					return
				}
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketPortByteStream(t *testing.T) {
	srv := echoServer(t, "")
	defer srv.Close()

	port, err := DialWebSocket(context.Background(), wsURL(srv), "", "", false)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer port.Close()

	want := []byte{3, 2, 28, 0, 0, 0}
	if _, err := port.Write(want); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, len(want))
	if _, err := io.ReadFull(port, got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestWebSocketBasicAuth(t *testing.T) {
	auth := "Basic " + base64.StdEncoding.EncodeToString([]byte("scope:secret"))
	srv := echoServer(t, auth)
	defer srv.Close()

	if _, err := DialWebSocket(context.Background(), wsURL(srv), "scope", "wrong", false); err == nil {
		t.Fatal("dial succeeded with a bad password")
	} else if !strings.Contains(err.Error(), "401") {
		t.Errorf("expected HTTP 401 in error, got %v", err)
	}

	port, err := DialWebSocket(context.Background(), wsURL(srv), "scope", "secret", false)
	if err != nil {
		t.Fatalf("dial with credentials: %v", err)
	}
	port.Close()
}

func TestDialWebSocketRejectsScheme(t *testing.T) {
	_, err := DialWebSocket(context.Background(), "http://localhost:1", "", "", false)
	if err == nil || !strings.Contains(err.Error(), "unsupported URL scheme") {
		t.Errorf("expected scheme error, got %v", err)
	}
}

func TestWebSocketReadAfterClose(t *testing.T) {
	srv := echoServer(t, "")
	defer srv.Close()

	port, err := DialWebSocket(context.Background(), wsURL(srv), "", "", false)
	if err != nil {
		t.Fatal(err)
	}
	srv.CloseClientConnections()

	done := make(chan error, 1)
	go func() {
		_, err := port.Read(make([]byte, 1))
		done <- err
	}()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("read succeeded on a dropped connection")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("read did not fail after the server dropped the connection")
	}
	if _, err := port.Read(make([]byte, 1)); err != ErrConnectionClosed {
		t.Errorf("expected ErrConnectionClosed on later reads, got %v", err)
	}
}

func TestReadPasswordLine(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"hunter2\n", "hunter2", false},
		{"  spaced  \r\n", "spaced", false},
		{"no-newline", "no-newline", false},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := readPasswordLine(strings.NewReader(tt.in))
		if (err != nil) != tt.wantErr {
			t.Errorf("readPasswordLine(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("readPasswordLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPortInfoString(t *testing.T) {
	p := PortInfo{Name: "/dev/ttyACM0", IsUSB: true, VID: "2e8a", PID: "000a", Product: "Pico"}
	if got := p.String(); got != "/dev/ttyACM0  USB 2e8a:000a  Pico" {
		t.Errorf("unexpected description %q", got)
	}
	if got := (PortInfo{Name: "/dev/ttyS0"}).String(); got != "/dev/ttyS0" {
		t.Errorf("unexpected description %q", got)
	}
}
