package http

import (
	"bytes"
	"net/http"
	"strconv"

	"keuangan/internal/log"
)

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	opts, err := ParseListOptions(r.URL.Query())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	entries, err := s.entries.List(r.Context(), opts)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeData(w, entries)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	entry, err := s.entries.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeData(w, entry)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, log.OpTotals, err)
		return
	}
	totals, err := s.entries.Totals(r.Context(), f)
	if err != nil {
		writeError(w, r, log.OpTotals, err)
		return
	}
	writeData(w, totals)
}

func (s *Server) handleTotalsByType(w http.ResponseWriter, r *http.Request) {
	tipe, err := ParseID(r, "tipe")
	if err != nil {
		writeError(w, r, log.OpBalance, err)
		return
	}
	totals, err := s.entries.TotalsByType(r.Context(), tipe)
	if err != nil {
		writeError(w, r, log.OpBalance, err)
		return
	}
	writeData(w, totals)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	opts, err := ParseListOptions(r.URL.Query())
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}

	var buf bytes.Buffer
	n, err := s.entries.Export(r.Context(), &buf, opts)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="entries.csv"`)
	w.Header().Set("X-Total-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	in, err := ParseEntryInput(parser)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	res, err := s.entries.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Body(map[string]int64{"insertId": res.InsertID}).
		Write(w)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	patch, err := ParseEntryPatch(parser)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	affected, err := s.entries.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	if affected == 0 {
		NotFoundError("Not found or no changes").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]int64{"affectedRows": affected}).Write(w)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	affected, err := s.entries.Remove(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if affected == 0 {
		NotFoundError("Not found").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]int64{"affectedRows": affected}).Write(w)
}
