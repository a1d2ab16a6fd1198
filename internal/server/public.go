package server

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/curtiv3/gpthome-refurbished/internal/store"
	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

type entryList struct {
	Entries []types.Entry `json:"entries"`
	Count   int           `json:"count"`
}

func (s *Server) handleListSection(section types.Section) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := s.deps.Store.ListEntries(section,
			queryInt(r, "limit", 20, 1, 100), queryInt(r, "offset", 0, 0, 1<<30))
		if err != nil {
			writeInternalError(w, "list "+string(section), err)
			return
		}
		if entries == nil {
			entries = []types.Entry{}
		}
		writeJSON(w, http.StatusOK, entryList{Entries: entries, Count: len(entries)})
	}
}

// handleGetEntry serves one public entry. Visitor messages are private.
func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.deps.Store.GetEntry(mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) || (err == nil && e.Section == types.SectionVisitor) {
		writeError(w, http.StatusNotFound, "Entry not found")
		return
	}
	if err != nil {
		writeInternalError(w, "get entry", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleListPages(w http.ResponseWriter, _ *http.Request) {
	pages, err := s.deps.Store.ListPages()
	if err != nil {
		writeInternalError(w, "list pages", err)
		return
	}
	if pages == nil {
		pages = []types.Page{}
	}
	writeJSON(w, http.StatusOK, pages)
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Store.GetPage(mux.Vars(r)["slug"])
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Page not found")
		return
	}
	if err != nil {
		writeInternalError(w, "get page", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
