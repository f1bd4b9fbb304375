package server

import (
	"net/http"
	"time"
)

// handleGetActivity returns accumulated activity minutes for a user. With a
// `day` parameter it returns that day's breakdown; with `since` it returns
// the running history from that date.
func (hs *HyggeServer) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		hs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	query := r.URL.Query()
	userID := query.Get("user")
	if userID == "" {
		hs.respondWithError(w, r, http.StatusBadRequest, "User ID is required", nil)
		return
	}

	day := query.Get("day")
	since := query.Get("since")

	if day != "" {
		if _, err := time.Parse("2006-01-02", day); err != nil {
			hs.respondWithError(w, r, http.StatusBadRequest, "Invalid day format, expected YYYY-MM-DD", err)
			return
		}
		records, err := hs.db.GetActivityForDay(userID, day)
		if err != nil {
			hs.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving activity", err)
			return
		}
		hs.respondJSON(w, records)
		return
	}

	if since == "" {
		// Default window: the past week
		since = time.Now().AddDate(0, 0, -7).Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", since); err != nil {
		hs.respondWithError(w, r, http.StatusBadRequest, "Invalid since format, expected YYYY-MM-DD", err)
		return
	}

	records, err := hs.db.GetActivitySince(userID, since)
	if err != nil {
		hs.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving activity", err)
		return
	}

	hs.respondJSON(w, records)
}
