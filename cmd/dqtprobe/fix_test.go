package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/loykin/dqtprobe/internal/mgmt"
)

type fakeFixAdmin struct {
	vhosts  []mgmt.Vhost
	listErr error
	setErr  error
	updates map[string]string
}

func (f *fakeFixAdmin) ListVhosts(_ context.Context) ([]mgmt.Vhost, error) {
	return f.vhosts, f.listErr
}

func (f *fakeFixAdmin) SetDefaultQueueType(_ context.Context, vhost, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	if f.updates == nil {
		f.updates = map[string]string{}
	}
	f.updates[vhost] = value
	return nil
}

func TestExecuteFix_RewritesOnlyUndefined(t *testing.T) {
	admin := &fakeFixAdmin{vhosts: []mgmt.Vhost{
		{Name: "/", DefaultQueueType: ""},
		{Name: "broken", DefaultQueueType: "undefined"},
		{Name: "quorum_vhost", DefaultQueueType: "quorum"},
		{Name: "also_broken", DefaultQueueType: "undefined"},
	}}

	fixed, err := executeFix(context.Background(), admin)
	if err != nil {
		t.Fatalf("executeFix: %v", err)
	}
	if fixed != 2 {
		t.Errorf("fixed = %d, want 2", fixed)
	}
	if admin.updates["broken"] != "classic" || admin.updates["also_broken"] != "classic" {
		t.Errorf("unexpected updates: %v", admin.updates)
	}
	if _, touched := admin.updates["quorum_vhost"]; touched {
		t.Errorf("healthy vhost must not be rewritten")
	}
	if _, touched := admin.updates["/"]; touched {
		t.Errorf("vhost without default_queue_type must not be rewritten")
	}
}

func TestExecuteFix_NothingToDo(t *testing.T) {
	admin := &fakeFixAdmin{vhosts: []mgmt.Vhost{
		{Name: "/", DefaultQueueType: "classic"},
	}}
	fixed, err := executeFix(context.Background(), admin)
	if err != nil || fixed != 0 {
		t.Fatalf("executeFix = %d, %v", fixed, err)
	}
}

func TestExecuteFix_ListError(t *testing.T) {
	admin := &fakeFixAdmin{listErr: errors.New("api down")}
	if _, err := executeFix(context.Background(), admin); err == nil {
		t.Fatalf("expected list error to propagate")
	}
}

func TestExecuteFix_AgainstManagementAPI(t *testing.T) {
	puts := map[string]string{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/vhosts", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"name": "/", "default_queue_type": "classic"},
			{"name": "broken", "metadata": {"default_queue_type": "undefined"}}
		]`))
	})
	mux.HandleFunc("/api/vhosts/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		name := strings.TrimPrefix(r.URL.Path, "/api/vhosts/")
		puts[name] = body["default_queue_type"]
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	admin := mgmt.New(mgmt.Config{URL: srv.URL, Username: "guest", Password: "guest"})
	fixed, err := executeFix(context.Background(), admin)
	if err != nil {
		t.Fatalf("executeFix: %v", err)
	}
	if fixed != 1 {
		t.Errorf("fixed = %d, want 1", fixed)
	}
	if puts["broken"] != "classic" {
		t.Errorf("broken vhost not rewritten: %v", puts)
	}
	if _, touched := puts["/"]; touched {
		t.Errorf("healthy vhost must not be rewritten")
	}
}

func TestExecuteFix_SetErrorStops(t *testing.T) {
	admin := &fakeFixAdmin{
		vhosts: []mgmt.Vhost{{Name: "broken", DefaultQueueType: "undefined"}},
		setErr: errors.New("forbidden"),
	}
	fixed, err := executeFix(context.Background(), admin)
	if err == nil {
		t.Fatalf("expected set error to propagate")
	}
	if fixed != 0 {
		t.Errorf("fixed = %d, want 0", fixed)
	}
}
