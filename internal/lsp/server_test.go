package lsp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/reflens/reflens/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frame encodes a JSON-RPC message with Content-Length framing.
func frame(t *testing.T, msg any) string {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)
}

func request(t *testing.T, id int, method string, params any) string {
	t.Helper()
	raw := json.RawMessage(strconv.Itoa(id))
	p, err := json.Marshal(params)
	require.NoError(t, err)
	return frame(t, JSONRPCMessage{JSONRPC: "2.0", ID: &raw, Method: method, Params: p})
}

func notification(t *testing.T, method string, params any) string {
	t.Helper()
	p, err := json.Marshal(params)
	require.NoError(t, err)
	return frame(t, JSONRPCMessage{JSONRPC: "2.0", Method: method, Params: p})
}

// decodeMessages parses every framed message the server wrote.
func decodeMessages(t *testing.T, out *bytes.Buffer) []JSONRPCMessage {
	t.Helper()
	r := bufio.NewReader(out)
	var msgs []JSONRPCMessage
	for {
		var contentLength int
		for {
			line, err := r.ReadString('\n')
			if err == io.EOF {
				return msgs
			}
			require.NoError(t, err)
			line = strings.TrimSpace(line)
			if line == "" {
				break
			}
			if n, ok := strings.CutPrefix(line, "Content-Length: "); ok {
				contentLength, err = strconv.Atoi(n)
				require.NoError(t, err)
			}
		}
		body := make([]byte, contentLength)
		_, err := io.ReadFull(r, body)
		require.NoError(t, err)
		var msg JSONRPCMessage
		require.NoError(t, json.Unmarshal(body, &msg))
		msgs = append(msgs, msg)
	}
}

// responseFor returns the response matching a request ID.
func responseFor(t *testing.T, msgs []JSONRPCMessage, id int) *JSONRPCMessage {
	t.Helper()
	want := strconv.Itoa(id)
	for i := range msgs {
		if msgs[i].ID != nil && string(*msgs[i].ID) == want {
			return &msgs[i]
		}
	}
	t.Fatalf("no response with id %d", id)
	return nil
}

func scaffoldWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "dbt_project.yml"),
		[]byte("name: shop\nversion: \"1.0\"\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "target"), 0o755))
	manifest := `{"nodes": {"model.shop.stg_orders": {
		"name": "stg_orders",
		"alias": "stg_orders",
		"description": "Staged orders",
		"columns": {"order_id": {"name": "order_id", "data_type": "int"}}
	}}}`
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "target", "manifest.json"),
		[]byte(manifest), 0o644))
	return root
}

func TestServer_InitializeHoverShutdown(t *testing.T) {
	root := scaffoldWorkspace(t)
	docURI := PathToURI(filepath.Join(root, "models", "orders.sql"))

	var in strings.Builder
	in.WriteString(request(t, 1, "initialize", InitializeParams{RootURI: PathToURI(root)}))
	in.WriteString(notification(t, "initialized", struct{}{}))
	in.WriteString(notification(t, "textDocument/didOpen", DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{
			URI:        docURI,
			LanguageID: "sql",
			Version:    1,
			Text:       "select * from {{ ref('stg_orders') }}\n",
		},
	}))
	in.WriteString(request(t, 2, "textDocument/hover", HoverParams{
		TextDocumentPositionParams: TextDocumentPositionParams{
			TextDocument: TextDocumentIdentifier{URI: docURI},
			Position:     Position{Line: 0, Character: 24},
		},
	}))
	in.WriteString(request(t, 3, "shutdown", nil))

	var out bytes.Buffer
	s := NewServerWithOptions(strings.NewReader(in.String()), &out, Options{
		Logger: testutil.NewTestLogger(t),
	})
	require.NoError(t, s.Run())

	msgs := decodeMessages(t, &out)

	var initResult InitializeResult
	require.NoError(t, json.Unmarshal(responseFor(t, msgs, 1).Result, &initResult))
	assert.True(t, initResult.Capabilities.HoverProvider)
	require.NotNil(t, initResult.Capabilities.TextDocumentSync)
	assert.Equal(t, TextDocumentSyncKindFull, initResult.Capabilities.TextDocumentSync.Change)

	var hover Hover
	require.NoError(t, json.Unmarshal(responseFor(t, msgs, 2).Result, &hover))
	assert.Equal(t, MarkupKindMarkdown, hover.Contents.Kind)
	assert.Contains(t, hover.Contents.Value, "(ref) **stg_orders**")
	assert.Contains(t, hover.Contents.Value, "Staged orders")
	assert.Contains(t, hover.Contents.Value, "(column) order_id - INT")

	shutdownResp := responseFor(t, msgs, 3)
	assert.Nil(t, shutdownResp.Error)
}

func TestServer_UnknownMethodReturnsError(t *testing.T) {
	var in strings.Builder
	in.WriteString(request(t, 1, "workspace/symbol", struct{}{}))

	var out bytes.Buffer
	s := NewServerWithOptions(strings.NewReader(in.String()), &out, Options{
		Logger: testutil.NewTestLogger(t),
	})
	require.NoError(t, s.Run(), "EOF ends the loop cleanly")

	msgs := decodeMessages(t, &out)
	resp := responseFor(t, msgs, 1)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32601, resp.Error.Code)
}

func TestServer_HoverOnUnopenedDocument(t *testing.T) {
	root := scaffoldWorkspace(t)

	var in strings.Builder
	in.WriteString(request(t, 1, "initialize", InitializeParams{RootURI: PathToURI(root)}))
	in.WriteString(request(t, 2, "textDocument/hover", HoverParams{
		TextDocumentPositionParams: TextDocumentPositionParams{
			TextDocument: TextDocumentIdentifier{URI: PathToURI(filepath.Join(root, "never_opened.sql"))},
			Position:     Position{Line: 0, Character: 0},
		},
	}))

	var out bytes.Buffer
	s := NewServerWithOptions(strings.NewReader(in.String()), &out, Options{
		Logger: testutil.NewTestLogger(t),
	})
	require.NoError(t, s.Run())

	msgs := decodeMessages(t, &out)
	resp := responseFor(t, msgs, 2)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "null", string(resp.Result))
}
