package chain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/interlay/vault-runner/internal/chainkey"
)

// fakeNode is a minimal state_getStorage server used to exercise Client
// without a real chain node.
func fakeNode(t *testing.T, storage map[string]string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var req rpcRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}

			resp := rpcResponse{ID: req.ID, JSONRPC: "2.0"}
			if req.Method != "state_getStorage" {
				resp.Error = &rpcError{Code: -32601, Message: "method not found"}
			} else {
				key, _ := req.Params[0].(string)
				if value, ok := storage[key]; ok {
					encoded, _ := json.Marshal(value)
					resp.Result = encoded
				} else {
					resp.Result = json.RawMessage("null")
				}
			}

			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	})

	return httptest.NewServer(handler)
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestClientQueryStorageFound(t *testing.T) {
	release := ClientRelease{URI: "https://example.org/releases/worker-bin"}
	blob := EncodeClientRelease(release)
	hexBlob := "0x" + hex.EncodeToString(blob)

	key := "0xdeadbeef"
	server := fakeNode(t, map[string]string{key: hexBlob})
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Dial(ctx, wsURL(server.URL), zap.NewNop())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()

	raw, err := client.QueryStorage(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw == nil {
		t.Fatalf("expected a result, got nil")
	}

	decoded, err := DecodeClientRelease(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.URI != release.URI {
		t.Fatalf("uri mismatch: got %q want %q", decoded.URI, release.URI)
	}
}

func TestClientQueryStorageMissing(t *testing.T) {
	server := fakeNode(t, map[string]string{})
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Dial(ctx, wsURL(server.URL), zap.NewNop())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()

	raw, err := client.QueryStorage(ctx, "0xnotpresent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != nil {
		t.Fatalf("expected nil for a missing key, got %x", raw)
	}
}

func TestClientTryGetReleaseDecodesCurrentRelease(t *testing.T) {
	release := ClientRelease{URI: "https://example.org/releases/worker-bin"}
	blob := EncodeClientRelease(release)
	hexBlob := "0x" + hex.EncodeToString(blob)

	key := chainkey.StorageKey(chainkey.Module, chainkey.ItemCurrentClientRelease)
	server := fakeNode(t, map[string]string{key: hexBlob})
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Dial(ctx, wsURL(server.URL), zap.NewNop())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()

	got, err := client.TryGetRelease(ctx, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatalf("expected a release, got nil")
	}
	if got.URI != release.URI {
		t.Fatalf("uri mismatch: got %q want %q", got.URI, release.URI)
	}
}

func TestClientTryGetReleaseNotFoundReturnsNil(t *testing.T) {
	server := fakeNode(t, map[string]string{})
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	client, err := Dial(ctx, wsURL(server.URL), zap.NewNop())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()

	release, err := client.TryGetRelease(ctx, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if release != nil {
		t.Fatalf("expected nil release, got %+v", release)
	}
}
