package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"phonesim/pkg/sim"
	"phonesim/pkg/utils"

	"github.com/gorilla/mux"
)

// RegisterPhone registers all phone simulation routes on the router.
func RegisterPhone(r *mux.Router, svc *sim.Service) {
	h := &phoneHandlers{svc: svc}

	r.HandleFunc("/threads", h.listThreads).Methods(http.MethodGet)
	r.HandleFunc("/threads", h.createThread).Methods(http.MethodPost)
	r.HandleFunc("/threads/{id}", h.getThread).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}/read", h.markRead).Methods(http.MethodPost)
	r.HandleFunc("/threads/{id}/messages", h.sendMessage).Methods(http.MethodPost)

	r.HandleFunc("/poll", h.poll).Methods(http.MethodPost)

	r.HandleFunc("/contacts", h.getContacts).Methods(http.MethodGet)
	r.HandleFunc("/contacts/{name}", h.setContactKnown).Methods(http.MethodPut)

	r.HandleFunc("/reset", h.reset).Methods(http.MethodPost)
}

type phoneHandlers struct {
	svc *sim.Service
}

// listThreads handles GET /v1/threads: summaries sorted by last activity.
func (h *phoneHandlers) listThreads(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListThreads()
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Threads interface{} `json:"threads"`
	}{Threads: out})
}

// createThread handles POST /v1/threads. Body: {participants, title?}.
func (h *phoneHandlers) createThread(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Participants []string `json:"participants"`
		Title        string   `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	t, err := h.svc.CreateThread(body.Participants, body.Title)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, t)
}

// getThread handles GET /v1/threads/{id}. Returns 404 when unknown.
func (h *phoneHandlers) getThread(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	t, err := h.svc.GetThread(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if t == nil {
		utils.JSONError(w, http.StatusNotFound, "thread not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, t)
}

// markRead handles POST /v1/threads/{id}/read.
func (h *phoneHandlers) markRead(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ok, err := h.svc.MarkRead(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if !ok {
		utils.JSONError(w, http.StatusNotFound, "thread not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]bool{"ok": true})
}

// sendMessage handles POST /v1/threads/{id}/messages. Body: {text,
// active_characters?}.
func (h *phoneHandlers) sendMessage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Text             string   `json:"text"`
		ActiveCharacters []string `json:"active_characters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	t, err := h.svc.SendMessage(r.Context(), id, body.Text, sim.SendOptions{ActiveCharacters: body.ActiveCharacters})
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, t)
}

// poll handles POST /v1/poll: one scheduler tick.
func (h *phoneHandlers) poll(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Trigger          string   `json:"trigger"`
		MinIntervalMs    *int64   `json:"min_interval_ms"`
		Force            bool     `json:"force"`
		StoryText        string   `json:"story_text"`
		ActiveCharacters []string `json:"active_characters"`
		MessageCount     int      `json:"message_count"`
		Action           string   `json:"action"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}
	opts := sim.PollOptions{
		Trigger:          body.Trigger,
		Force:            body.Force,
		StoryText:        body.StoryText,
		ActiveCharacters: body.ActiveCharacters,
		MessageCount:     body.MessageCount,
		Action:           body.Action,
	}
	if body.MinIntervalMs != nil {
		d := time.Duration(*body.MinIntervalMs) * time.Millisecond
		opts.MinInterval = &d
	}
	res, err := h.svc.PollUpdates(r.Context(), opts)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, res)
}

// getContacts handles GET /v1/contacts.
func (h *phoneHandlers) getContacts(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.GetContacts()
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Contacts interface{} `json:"contacts"`
	}{Contacts: out})
}

// setContactKnown handles PUT /v1/contacts/{name}. Body: {has_number} or
// ?has_number= query.
func (h *phoneHandlers) setContactKnown(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var body struct {
		HasNumber *bool `json:"has_number"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}
	has := true
	if body.HasNumber != nil {
		has = *body.HasNumber
	} else if q := r.URL.Query().Get("has_number"); q != "" {
		if v, err := strconv.ParseBool(q); err == nil {
			has = v
		}
	}
	ok, err := h.svc.SetContactKnown(name, has)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]bool{"ok": ok})
}

// reset handles POST /v1/reset: drops all threads and reseeds contacts.
func (h *phoneHandlers) reset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ResetState(); err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]bool{"ok": true})
}
