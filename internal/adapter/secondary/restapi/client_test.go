package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dmxctl/internal/domain"
)

func setupTest(t *testing.T) *Client {
	t.Helper()
	shows := []domain.Show{
		{ID: "s1", Name: "Intro", Steps: []domain.ShowStep{{PresetID: "p1", DelayMs: 1000, FadeMs: 200}}},
		{ID: "s2", Name: "Outro", Steps: []domain.ShowStep{{PresetID: "p2", DelayMs: 500}}},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/shows", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(shows)
	})
	mux.HandleFunc("/api/shows/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/shows/")
		for _, s := range shows {
			if s.ID == id {
				json.NewEncoder(w).Encode(s)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Show not found", "id": id})
	})
	mux.HandleFunc("/api/usb/interfaces", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]string{"/dev/ttyUSB0", "/dev/ttyACM0"})
	})
	mux.HandleFunc("/api/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "Failed to load project"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(srv.URL, time.Second)
}

func TestListShows(t *testing.T) {
	c := setupTest(t)
	shows, err := c.ListShows(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(shows) != 2 {
		t.Fatalf("got %d shows, want 2", len(shows))
	}
	if shows[0].Steps[0].FadeMs != 200 {
		t.Errorf("got fade %d, want 200", shows[0].Steps[0].FadeMs)
	}
}

func TestGetShow(t *testing.T) {
	c := setupTest(t)
	s, err := c.GetShow(context.Background(), "s2")
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "Outro" {
		t.Errorf("got %q, want %q", s.Name, "Outro")
	}

	_, err = c.GetShow(context.Background(), "nope")
	if !errors.Is(err, domain.ErrShowNotFound) {
		t.Errorf("got %v, want %v", err, domain.ErrShowNotFound)
	}
}

func TestListInterfaces(t *testing.T) {
	c := setupTest(t)
	ports, err := c.ListInterfaces(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ports) != 2 || ports[0] != "/dev/ttyUSB0" {
		t.Errorf("got %v", ports)
	}
}

func TestServerErrorMessage(t *testing.T) {
	c := setupTest(t)
	var out any
	err := c.get(context.Background(), "/api/broken", &out)
	if err == nil || !strings.Contains(err.Error(), "Failed to load project") {
		t.Errorf("got %v", err)
	}
}
