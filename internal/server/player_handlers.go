package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"hygge/internal/player"
	"hygge/internal/session"
	"hygge/pkg/models"
)

// handleCreateSession mounts a player: it creates a session, resolves the
// requested queue (category listing or collection), and loads it.
func (hs *HyggeServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		hs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	var req struct {
		UserID       string `json:"userId"`
		DeviceName   string `json:"deviceName,omitempty"`
		Category     string `json:"category,omitempty"`
		Subcategory  string `json:"subcategory,omitempty"`
		CollectionID int    `json:"collectionId,omitempty"`
		StartIndex   int    `json:"startIndex"`
		Shuffle      bool   `json:"shuffle,omitempty"`
		Repeat       string `json:"repeat,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		hs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	if req.UserID == "" {
		hs.respondWithError(w, r, http.StatusBadRequest, "User ID is required", nil)
		return
	}

	var tracks []models.Track
	var err error
	switch {
	case req.CollectionID != 0:
		tracks, err = hs.db.GetCollectionTracks(req.CollectionID)
	case req.Category != "":
		tracks, err = hs.db.GetTracksByCategory(req.Category, req.Subcategory)
	default:
		hs.respondWithError(w, r, http.StatusBadRequest, "A category or collection is required", nil)
		return
	}
	if err != nil {
		hs.respondWithError(w, r, http.StatusInternalServerError, "Error resolving queue", err)
		return
	}
	if len(tracks) == 0 {
		hs.respondWithError(w, r, http.StatusNotFound, "No tracks found for the requested queue", nil)
		return
	}

	deviceName := req.DeviceName
	if deviceName == "" {
		deviceName = guessDeviceName(r.Header.Get("User-Agent"))
	}

	ps := hs.sessions.Create(req.UserID, r.Header.Get("User-Agent"), deviceName)

	if req.Shuffle {
		ps.Controller.SetShuffle(true)
	}
	if req.Repeat != "" {
		if err := ps.Controller.SetRepeat(player.RepeatMode(req.Repeat)); err != nil {
			hs.sessions.Remove(ps.Session.ID)
			hs.respondWithError(w, r, http.StatusBadRequest, "Invalid repeat mode", err)
			return
		}
	}

	if err := ps.Controller.LoadQueue(tracks, req.StartIndex); err != nil {
		hs.sessions.Remove(ps.Session.ID)
		hs.respondWithError(w, r, http.StatusBadRequest, "Could not load queue", err)
		return
	}

	hs.respondJSON(w, map[string]interface{}{
		"sessionId":  ps.Session.ID,
		"deviceName": ps.Session.DeviceName,
		"queueSize":  len(tracks),
		"state":      ps.Controller.State(),
	})
}

// handleCloseSession unmounts a player. The accumulator flushes whole
// unreported minutes before the response is written.
func (hs *HyggeServer) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		hs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		hs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	ps := hs.sessions.Get(req.SessionID)
	if ps == nil {
		hs.respondWithError(w, r, http.StatusNotFound, "Session not found", nil)
		return
	}

	hs.sessions.Remove(req.SessionID)
	hs.respondJSON(w, map[string]interface{}{"success": true})
}

// handleGetSessions lists live sessions with their playback snapshots.
func (hs *HyggeServer) handleGetSessions(w http.ResponseWriter, r *http.Request) {
	type sessionView struct {
		Session *session.Session `json:"session"`
		State   player.State     `json:"state"`
	}

	all := hs.sessions.All()
	views := make([]sessionView, 0, len(all))
	for _, ps := range all {
		views = append(views, sessionView{Session: ps.Session, State: ps.Controller.State()})
	}

	response := map[string]interface{}{"sessions": views}
	if active := hs.sessions.Active(); active != nil {
		response["activeSessionId"] = active.Session.ID
	}

	hs.respondJSON(w, response)
}

// sessionFromQuery resolves the session named by the request's query string
// and marks it active.
func (hs *HyggeServer) sessionFromQuery(w http.ResponseWriter, r *http.Request) *session.PlayerSession {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		hs.respondWithError(w, r, http.StatusBadRequest, "Session ID is required", nil)
		return nil
	}

	ps := hs.sessions.Get(sessionID)
	if ps == nil {
		hs.respondWithError(w, r, http.StatusNotFound, "Session not found", nil)
		return nil
	}

	hs.sessions.Touch(sessionID)
	return ps
}

// sessionFromBody decodes a JSON body into dst (which must embed a sessionId
// field) and resolves the session.
func (hs *HyggeServer) sessionFromBody(w http.ResponseWriter, r *http.Request, dst interface{}, sessionID func() string) *session.PlayerSession {
	if r.Method != http.MethodPost {
		hs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return nil
	}

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		hs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return nil
	}

	id := sessionID()
	if id == "" {
		hs.respondWithError(w, r, http.StatusBadRequest, "Session ID is required", nil)
		return nil
	}

	ps := hs.sessions.Get(id)
	if ps == nil {
		hs.respondWithError(w, r, http.StatusNotFound, "Session not found", nil)
		return nil
	}

	hs.sessions.Touch(id)
	return ps
}

// handlePlayerState returns the current playback snapshot.
func (hs *HyggeServer) handlePlayerState(w http.ResponseWriter, r *http.Request) {
	ps := hs.sessionFromQuery(w, r)
	if ps == nil {
		return
	}

	hs.respondJSON(w, ps.Controller.State())
}

func (hs *HyggeServer) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	ps := hs.sessionFromBody(w, r, &req, func() string { return req.SessionID })
	if ps == nil {
		return
	}

	if err := ps.Controller.TogglePlayPause(); err != nil {
		hs.respondWithError(w, r, http.StatusConflict, "Nothing to play", err)
		return
	}

	hs.respondJSON(w, ps.Controller.State())
}

func (hs *HyggeServer) handleNext(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	ps := hs.sessionFromBody(w, r, &req, func() string { return req.SessionID })
	if ps == nil {
		return
	}

	ps.Controller.Next()
	hs.respondJSON(w, ps.Controller.State())
}

func (hs *HyggeServer) handlePrevious(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	ps := hs.sessionFromBody(w, r, &req, func() string { return req.SessionID })
	if ps == nil {
		return
	}

	ps.Controller.Previous()
	hs.respondJSON(w, ps.Controller.State())
}

func (hs *HyggeServer) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string  `json:"sessionId"`
		Fraction  float64 `json:"fraction"`
	}
	ps := hs.sessionFromBody(w, r, &req, func() string { return req.SessionID })
	if ps == nil {
		return
	}

	if err := ps.Controller.SeekFraction(req.Fraction); err != nil {
		hs.respondWithError(w, r, http.StatusConflict, "No track loaded", err)
		return
	}

	hs.respondJSON(w, ps.Controller.State())
}

func (hs *HyggeServer) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	ps := hs.sessionFromBody(w, r, &req, func() string { return req.SessionID })
	if ps == nil {
		return
	}

	speed := ps.Controller.CycleSpeed()
	hs.respondJSON(w, map[string]interface{}{
		"speed": speed,
		"state": ps.Controller.State(),
	})
}

func (hs *HyggeServer) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string  `json:"sessionId"`
		Volume    float64 `json:"volume"`
	}
	ps := hs.sessionFromBody(w, r, &req, func() string { return req.SessionID })
	if ps == nil {
		return
	}

	ps.Controller.SetVolume(req.Volume)
	hs.respondJSON(w, ps.Controller.State())
}

func (hs *HyggeServer) handleShuffle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
		Enabled   bool   `json:"enabled"`
	}
	ps := hs.sessionFromBody(w, r, &req, func() string { return req.SessionID })
	if ps == nil {
		return
	}

	ps.Controller.SetShuffle(req.Enabled)
	hs.respondJSON(w, ps.Controller.State())
}

func (hs *HyggeServer) handleRepeat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
		Mode      string `json:"mode"`
	}
	ps := hs.sessionFromBody(w, r, &req, func() string { return req.SessionID })
	if ps == nil {
		return
	}

	if err := ps.Controller.SetRepeat(player.RepeatMode(req.Mode)); err != nil {
		hs.respondWithError(w, r, http.StatusBadRequest, "Invalid repeat mode", err)
		return
	}

	hs.respondJSON(w, ps.Controller.State())
}

// handlePlayerEvents ingests media element events from the client: periodic
// progress reports and the natural end-of-track signal.
func (hs *HyggeServer) handlePlayerEvents(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID   string  `json:"sessionId"`
		Event       string  `json:"event"`
		CurrentTime float64 `json:"currentTime"`
		Duration    float64 `json:"duration"`
	}
	ps := hs.sessionFromBody(w, r, &req, func() string { return req.SessionID })
	if ps == nil {
		return
	}

	switch req.Event {
	case "progress":
		ps.Controller.HandleProgress(req.CurrentTime, req.Duration)
	case "ended":
		ps.Controller.HandleEnded()
	default:
		hs.respondWithError(w, r, http.StatusBadRequest, "Unknown event type", nil)
		return
	}

	hs.respondJSON(w, ps.Controller.State())
}

// handlePlayerCommands drains the session's queued media commands. Clients
// poll this endpoint and apply the commands to their media element in order.
func (hs *HyggeServer) handlePlayerCommands(w http.ResponseWriter, r *http.Request) {
	ps := hs.sessionFromQuery(w, r)
	if ps == nil {
		return
	}

	commands := ps.Binding.Drain()
	if commands == nil {
		commands = []player.Command{}
	}

	hs.respondJSON(w, map[string]interface{}{"commands": commands})
}

// guessDeviceName tries to guess device name from user agent
func guessDeviceName(userAgent string) string {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "iphone"):
		return "iPhone"
	case strings.Contains(ua, "ipad"):
		return "iPad"
	case strings.Contains(ua, "android"):
		return "Android Device"
	case strings.Contains(ua, "mac"):
		return "Mac"
	case strings.Contains(ua, "windows"):
		return "Windows PC"
	case strings.Contains(ua, "linux"):
		return "Linux PC"
	}

	return "Companion Device"
}
