package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/ledpanel/internal/api"
	"github.com/coreman2200/ledpanel/internal/arbiter"
	"github.com/coreman2200/ledpanel/internal/layout"
	"github.com/coreman2200/ledpanel/internal/pattern"
	"github.com/coreman2200/ledpanel/internal/status"
)

func trivialDesc() layout.Description {
	return layout.Description{
		Grid: layout.GridDescription{GridWidth: 1, GridHeight: 1, PanelWidth: 1, PanelHeight: 1, WiringPattern: "sequential"},
		Panels: []layout.PanelDescription{
			{ID: 0, Position: [2]int{0, 0}, Rotation: 0},
		},
	}
}

func TestHealthReflectsArbiterSnapshot(t *testing.T) {
	a, err := arbiter.New(trivialDesc(), 10, false)
	assert.NoError(t, err)
	reg := pattern.NewRegistry()
	s := api.NewServer(a, reg, status.New(), nil, zerolog.Nop())
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "awake", body["schedule"])
}

func TestBrightnessEndpointValidatesRange(t *testing.T) {
	a, err := arbiter.New(trivialDesc(), 10, false)
	assert.NoError(t, err)
	reg := pattern.NewRegistry()
	s := api.NewServer(a, reg, status.New(), nil, zerolog.Nop())
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	body, _ := json.Marshal(map[string]int{"value": 999})
	resp, err := http.Post(srv.URL+"/brightness", "application/json", bytes.NewReader(body))
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestBrightnessEndpointAppliesValidValue(t *testing.T) {
	a, err := arbiter.New(trivialDesc(), 10, false)
	assert.NoError(t, err)
	reg := pattern.NewRegistry()
	s := api.NewServer(a, reg, status.New(), nil, zerolog.Nop())
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	body, _ := json.Marshal(map[string]int{"value": 128})
	resp, err := http.Post(srv.URL+"/brightness", "application/json", bytes.NewReader(body))
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, uint8(128), a.Current().Brightness)
}

func TestPatternEndpointRejectsUnknownGenerator(t *testing.T) {
	a, err := arbiter.New(trivialDesc(), 10, false)
	assert.NoError(t, err)
	reg := pattern.NewRegistry()
	s := api.NewServer(a, reg, status.New(), nil, zerolog.Nop())
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	body, _ := json.Marshal(map[string]any{"internal": true, "name": "nope"})
	resp, err := http.Post(srv.URL+"/pattern", "application/json", bytes.NewReader(body))
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestScheduleEndpointTogglesState(t *testing.T) {
	a, err := arbiter.New(trivialDesc(), 10, false)
	assert.NoError(t, err)
	reg := pattern.NewRegistry()
	s := api.NewServer(a, reg, status.New(), nil, zerolog.Nop())
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	body, _ := json.Marshal(map[string]string{"state": "asleep"})
	resp, err := http.Post(srv.URL+"/schedule", "application/json", bytes.NewReader(body))
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, arbiter.Asleep, a.Current().Schedule)
}

func TestPowerEndpointRejectsInvalidCeiling(t *testing.T) {
	a, err := arbiter.New(trivialDesc(), 10, false)
	assert.NoError(t, err)
	reg := pattern.NewRegistry()
	s := api.NewServer(a, reg, status.New(), nil, zerolog.Nop())
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	body, _ := json.Marshal(map[string]any{"ceiling_amps": -1, "enabled": true})
	resp, err := http.Post(srv.URL+"/power", "application/json", bytes.NewReader(body))
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}
