package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReloadConfig(t *testing.T) {
	var gotPath, gotAuth, gotForce, gotMethod string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		gotForce = r.URL.Query().Get("force")
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		gotPath = body["path"]
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	c := New(ts.URL+"/", "s3cret")
	if err := c.ReloadConfig(context.Background(), "/etc/mihomo/config.yaml"); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if gotMethod != http.MethodPut || gotForce != "true" {
		t.Fatalf("method=%s force=%s", gotMethod, gotForce)
	}
	if gotAuth != "Bearer s3cret" {
		t.Fatalf("auth = %q", gotAuth)
	}
	if gotPath != "/etc/mihomo/config.yaml" {
		t.Fatalf("path = %q", gotPath)
	}
}

func TestUpdateProviderEscapesName(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	if err := New(ts.URL, "").UpdateProvider(context.Background(), "my provider"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/providers/proxies/my%20provider" {
		t.Fatalf("path = %q", gotPath)
	}
}

func TestAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer ts.Close()

	_, err := New(ts.URL, "wrong").Version(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
}

func TestProviders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"providers":{
			"zeta":{"name":"zeta","type":"Proxy","vehicleType":"HTTP","proxies":[{"name":"a"}]},
			"default":{"name":"default","type":"Proxy","vehicleType":"Compatible"},
			"alpha":{"name":"alpha","type":"Proxy","vehicleType":"File"}}}`))
	}))
	defer ts.Close()

	got, err := New(ts.URL, "").Providers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "alpha" || got[1].Name != "zeta" || len(got[1].Proxies) != 1 {
		t.Fatalf("providers = %+v", got)
	}
}

func TestVersion(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"version":"v1.18.0","meta":true}`))
	}))
	defer ts.Close()

	v, err := New(ts.URL, "").Version(context.Background())
	if err != nil || v.Version != "v1.18.0" || !v.Meta {
		t.Fatalf("version = %+v, %v", v, err)
	}
}
