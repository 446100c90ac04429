package handlers

import (
	"net/http"

	"github.com/pulsepoint/eris-api/dispatch"
)

// Preferences exported for testing purposes
type Preferences struct {
	Engine *dispatch.Engine
}

// DarkMode is the dark mode preference
type DarkMode struct {
	DarkMode bool `json:"darkMode"`
}

// DarkModeHandler returns the dark mode preference
func (p Preferences) DarkModeHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DarkMode{DarkMode: p.Engine.Snapshot().DarkMode})
}

// SetDarkModeHandler stores the dark mode preference
func (p Preferences) SetDarkModeHandler(w http.ResponseWriter, r *http.Request) {
	var req DarkMode
	if !decodeBody(w, r, &req) {
		return
	}
	s, err := p.Engine.SetDarkMode(req.DarkMode)
	if err != nil {
		commandError("failed to set dark mode", w, err)
		return
	}
	writeJSON(w, http.StatusOK, DarkMode{DarkMode: s.DarkMode})
}
