package server

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/curtiv3/gpthome-refurbished/internal/logging"
	"github.com/curtiv3/gpthome-refurbished/internal/store"
	"github.com/curtiv3/gpthome-refurbished/internal/types"
	"github.com/curtiv3/gpthome-refurbished/internal/wake"
)

type wakeReply struct {
	OK     bool          `json:"ok"`
	Result *wake.Summary `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func (s *Server) handleWake(w http.ResponseWriter, r *http.Request) {
	if s.deps.Waker == nil {
		writeJSON(w, http.StatusServiceUnavailable, wakeReply{Error: "Wake cycle is not available."})
		return
	}
	ctx, cancel := s.cycleContext(r)
	defer cancel()
	summary, err := s.deps.Waker.Wake(ctx, "manual")
	switch {
	case errors.Is(err, wake.ErrWakeInProgress):
		writeJSON(w, http.StatusConflict, wakeReply{Error: "A wake cycle is already running."})
	case err != nil:
		logging.Get(logging.CategoryServer).Error("Manual wake failed: %v", err)
		s.logActivity("wake_error", preview(err.Error(), 200))
		writeJSON(w, http.StatusOK, wakeReply{Error: "Wake cycle failed. Check server logs."})
	default:
		writeJSON(w, http.StatusOK, wakeReply{OK: true, Result: summary})
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	mem, err := s.deps.Store.ReadMemory()
	if err != nil {
		writeInternalError(w, "read memory", err)
		return
	}

	counts := map[string]int{}
	for _, sec := range types.Sections {
		n, err := s.deps.Store.CountEntries(sec)
		if err != nil {
			writeInternalError(w, "count entries", err)
			return
		}
		counts[string(sec)] = n
	}

	var lastEntry interface{}
	if t, ok, err := s.deps.Store.LastEntryTime(); err != nil {
		writeInternalError(w, "last entry time", err)
		return
	} else if ok {
		lastEntry = t
	}

	var selfPrompt interface{}
	if s.deps.SelfPromptPath != "" {
		if data, err := os.ReadFile(s.deps.SelfPromptPath); err == nil {
			if text := strings.TrimSpace(string(data)); text != "" {
				selfPrompt = text
			}
		}
	}

	mode := ""
	if s.deps.Waker != nil {
		mode = strings.ToLower(s.deps.Waker.Mode())
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"mode":            mode,
		"last_wake":       mem.LastWakeTime,
		"mood":            mem.Mood,
		"plans":           mem.Plans,
		"self_prompt":     selfPrompt,
		"last_entry_time": lastEntry,
		"counts":          counts,
	})
}

type newsInput struct {
	Content string `json:"content"`
}

func (s *Server) handlePostNews(w http.ResponseWriter, r *http.Request) {
	var in newsInput
	if err := decodeJSON(w, r, &in); err != nil || strings.TrimSpace(in.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	item, err := s.deps.Store.AddNews(strings.TrimSpace(in.Content))
	if err != nil {
		writeInternalError(w, "add news", err)
		return
	}
	s.logActivity("news_posted", preview(item.Content, 100))
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "news": item})
}

func (s *Server) handleListNews(w http.ResponseWriter, r *http.Request) {
	news, err := s.deps.Store.ListNews(queryInt(r, "limit", 100, 1, 500))
	if err != nil {
		writeInternalError(w, "list news", err)
		return
	}
	writeJSON(w, http.StatusOK, news)
}

func (s *Server) handleListVisitors(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Store.ListEntries(types.SectionVisitor,
		queryInt(r, "limit", 100, 1, 500), queryInt(r, "offset", 0, 0, 1<<30))
	if err != nil {
		writeInternalError(w, "list visitors", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type moderateInput struct {
	Action string `json:"action"`
}

func (s *Server) handleModerate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var in moderateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid action")
		return
	}

	entry, err := s.deps.Store.GetEntry(id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && entry.Section != types.SectionVisitor) {
		writeJSON(w, http.StatusNotFound, map[string]bool{"ok": false})
		return
	}
	if err != nil {
		writeInternalError(w, "get entry", err)
		return
	}

	switch in.Action {
	case "delete":
		err = s.deps.Store.DeleteEntry(id)
	case "approve":
		err = s.deps.Store.SetEntryStatus(id, types.StatusApproved)
	case "hide":
		err = s.deps.Store.SetEntryStatus(id, types.StatusHidden)
	default:
		writeError(w, http.StatusBadRequest, "Invalid action")
		return
	}
	if err != nil {
		writeInternalError(w, "moderate visitor", err)
		return
	}
	s.logActivity("visitor_"+in.Action, id)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type banInput struct {
	Fingerprint string `json:"fingerprint"`
	Reason      string `json:"reason"`
}

func (s *Server) decodeBan(w http.ResponseWriter, r *http.Request) (banInput, bool) {
	var in banInput
	if err := decodeJSON(w, r, &in); err != nil || strings.TrimSpace(in.Fingerprint) == "" {
		writeError(w, http.StatusBadRequest, "fingerprint is required")
		return in, false
	}
	in.Fingerprint = strings.TrimSpace(in.Fingerprint)
	return in, true
}

func (s *Server) handleBan(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeBan(w, r)
	if !ok {
		return
	}
	reason := in.Reason
	if reason == "" {
		reason = "admin"
	}
	if err := s.deps.Store.Block(in.Fingerprint, reason); err != nil {
		writeInternalError(w, "ban", err)
		return
	}
	s.logActivity("visitor_banned", in.Fingerprint)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleUnban(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeBan(w, r)
	if !ok {
		return
	}
	err := s.deps.Store.Unblock(in.Fingerprint)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]bool{"ok": false})
		return
	}
	if err != nil {
		writeInternalError(w, "unban", err)
		return
	}
	s.logActivity("visitor_unbanned", in.Fingerprint)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleListBlocked(w http.ResponseWriter, _ *http.Request) {
	blocked, err := s.deps.Store.ListBlocked()
	if err != nil {
		writeInternalError(w, "list blocked", err)
		return
	}
	writeJSON(w, http.StatusOK, blocked)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	events, err := s.deps.Store.ListActivity(queryInt(r, "limit", 50, 1, 500), queryInt(r, "offset", 0, 0, 1<<30))
	if err != nil {
		writeInternalError(w, "list activity", err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleMemory(w http.ResponseWriter, _ *http.Request) {
	mem, err := s.deps.Store.ReadMemory()
	if err != nil {
		writeInternalError(w, "read memory", err)
		return
	}
	writeJSON(w, http.StatusOK, mem)
}

// queryInt reads an integer query parameter clamped to [lo, hi].
func queryInt(r *http.Request, key string, def, lo, hi int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		v = def
	}
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return v
}
