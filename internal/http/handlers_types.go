package http

import (
	"net/http"

	"keuangan/internal/log"
)

func (s *Server) handleListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.types.List(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeData(w, types)
}

func (s *Server) handleGetType(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	t, err := s.types.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeData(w, t)
}

func (s *Server) handleCreateType(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	label, err := ParseLabel(parser)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	id, err := s.types.Create(r.Context(), label)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(map[string]int64{"id": id}).Write(w)
}

func (s *Server) handleUpdateType(w http.ResponseWriter, r *http.Request) {
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
	label, err := ParseLabel(parser)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	affected, err := s.types.Update(r.Context(), id, label)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	if affected == 0 {
		NotFoundError("Not found").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]int64{"id": id}).Write(w)
}

func (s *Server) handleDeleteType(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	affected, err := s.types.Remove(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if affected == 0 {
		NotFoundError("Not found").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]int64{"id": id}).Write(w)
}
