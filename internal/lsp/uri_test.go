package lsp

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestURIPathRoundTrip(t *testing.T) {
	cases := []struct {
		uri  string
		path string
	}{
		{"file:///home/user/lib/Foo.pm", "/home/user/lib/Foo.pm"},
		{"file:///tmp/with%20space/a.pl", "/tmp/with space/a.pl"},
	}
	for _, tc := range cases {
		if got := uriToPath(tc.uri); got != tc.path {
			t.Errorf("uriToPath(%q) = %q, want %q", tc.uri, got, tc.path)
		}
		if got := pathToURI(tc.path); uriToPath(got) != tc.path {
			t.Errorf("pathToURI(%q) = %q does not round-trip", tc.path, got)
		}
	}
}

func TestCanonicalURINormalizes(t *testing.T) {
	a := canonicalURI("file:///ws/main.pl")
	b := canonicalURI("file:///ws//main.pl")
	if a == "" || a != b {
		t.Fatalf("canonical forms differ: %q vs %q", a, b)
	}
	if canonicalURI("untitled:Untitled-1") != "" {
		t.Fatalf("non-file scheme accepted")
	}
}

func TestReadMessageFraming(t *testing.T) {
	raw := "Content-Length: 2\r\nContent-Type: application/vscode-jsonrpc\r\n\r\n{}"
	payload, err := readMessage(bufio.NewReader(strings.NewReader(raw)))
	if err != nil {
		t.Fatalf("readMessage: %v", err)
	}
	if string(payload) != "{}" {
		t.Fatalf("payload = %q", payload)
	}
}

func TestReadMessageMissingLength(t *testing.T) {
	raw := "Content-Type: application/vscode-jsonrpc\r\n\r\n{}"
	if _, err := readMessage(bufio.NewReader(strings.NewReader(raw))); err == nil {
		t.Fatalf("missing Content-Length accepted")
	}
}

func TestWriteMessageHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := writeMessage(&buf, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("writeMessage: %v", err)
	}
	if got := buf.String(); got != "Content-Length: 7\r\n\r\n{\"a\":1}" {
		t.Fatalf("frame = %q", got)
	}
}
