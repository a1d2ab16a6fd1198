package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/curtiv3/gpthome-refurbished/internal/logging"
	"github.com/curtiv3/gpthome-refurbished/internal/safety"
	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

const (
	defaultVisitorName = "Anonymous"
	activityPreview    = 60
)

type visitorMessage struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

type visitorReceipt struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Remaining int    `json:"remaining"`
}

func (s *Server) handleVisitorCount(w http.ResponseWriter, _ *http.Request) {
	n, err := s.deps.Store.CountEntries(types.SectionVisitor)
	if err != nil {
		writeInternalError(w, "count visitors", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": n,
		"note":  "Messages are read by the resident, not displayed publicly.",
	})
}

// handleVisitorPost accepts a visitor message. Rejections never say which
// rule matched.
func (s *Server) handleVisitorPost(w http.ResponseWriter, r *http.Request) {
	fp := safety.Fingerprint(clientIP(r), r.UserAgent())

	blocked, err := s.deps.Store.IsBlocked(fp)
	if err != nil {
		writeInternalError(w, "check block", err)
		return
	}
	if blocked {
		s.observe("blocked")
		writeError(w, http.StatusForbidden, "You are not allowed to leave messages.")
		return
	}

	var msg visitorMessage
	if err := decodeJSON(w, r, &msg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	verdict := safety.Classify(msg.Message)
	if !verdict.Safe {
		s.observe("rejected")
		s.logActivity("injection_blocked", fmt.Sprintf("reason=%s fp=%s preview=%s",
			verdict.Reason, fp, preview(msg.Message, activityPreview)))
		if safety.ShouldAutoBlock(verdict.Reason) {
			if err := s.deps.Store.Block(fp, string(verdict.Reason)); err != nil {
				logging.ServerWarn("Auto-block of %s failed: %v", fp, err)
			} else {
				s.logActivity("auto_blocked", fmt.Sprintf("fingerprint=%s reason=%s", fp, verdict.Reason))
			}
		}
		writeError(w, http.StatusBadRequest, "Message could not be processed.")
		return
	}

	name := strings.TrimSpace(msg.Name)
	if name != "" && !safety.Classify(name).Safe {
		s.observe("rejected")
		writeError(w, http.StatusBadRequest, "Invalid name.")
		return
	}
	if name == "" {
		name = defaultVisitorName
	}
	if runes := []rune(name); len(runes) > s.deps.MaxNameLength {
		name = string(runes[:s.deps.MaxNameLength])
	}

	allowed, remaining, err := s.deps.Store.CheckRateLimit(fp, s.deps.RateLimit, s.deps.RateWindow)
	if err != nil {
		writeInternalError(w, "rate limit", err)
		return
	}
	if !allowed {
		s.observe("rate_limited")
		writeError(w, http.StatusTooManyRequests, "Too many messages. Please wait before sending another.")
		return
	}

	content := strings.TrimSpace(msg.Message)
	saved, err := s.deps.Store.SaveEntry(types.Entry{
		Section: types.SectionVisitor,
		Author:  name,
		Content: content,
		Status:  types.StatusPending,
	})
	if err != nil {
		writeInternalError(w, "save visitor entry", err)
		return
	}
	s.logActivity("visitor_message", fmt.Sprintf("%s: %s", name, preview(content, activityPreview)))
	s.observe("accepted")

	if s.deps.Echo != nil {
		if err := s.deps.Echo.Submit(saved.ID, content); err != nil {
			logging.ServerWarn("Echo for %s not queued: %v", saved.ID, err)
		}
	}

	writeJSON(w, http.StatusCreated, visitorReceipt{ID: saved.ID, Name: name, Remaining: remaining})
}

func (s *Server) logActivity(kind, detail string) {
	if err := s.deps.Store.LogActivity(kind, detail); err != nil {
		logging.ServerWarn("Failed to log %s: %v", kind, err)
	}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
