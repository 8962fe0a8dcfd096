package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExportCmdPosts(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		_, _ = rw.Write([]byte(`{"ok":true,"frame":42}` + "\n"))
	}))
	defer srv.Close()

	out := run(t, "--url", srv.URL+"/", "export")
	if gotMethod != http.MethodPost || gotPath != "/admin/v1/export" {
		t.Fatalf("request=%s %s", gotMethod, gotPath)
	}
	if strings.TrimSpace(out) != `{"ok":true,"frame":42}` {
		t.Fatalf("out=%q", out)
	}
}

func TestStateCmdFailsOnForbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		http.Error(rw, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--url", srv.URL, "state"})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("err=%v", err)
	}
	if !strings.Contains(out.String(), "forbidden") {
		t.Fatalf("out=%q", out.String())
	}
}
