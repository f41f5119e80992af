package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/docsynth/internal/audit"
	"github.com/ziadkadry99/docsynth/internal/documents"
	"github.com/ziadkadry99/docsynth/internal/ingest"
	"github.com/ziadkadry99/docsynth/internal/research"
)

type queryResponse struct {
	IndividualAnswers []research.DocumentAnswers `json:"individual_answers"`
}

type themeResponse struct {
	Themes []research.Theme `json:"themes"`
}

type uploadResponse struct {
	UploadResults []ingest.Result `json:"upload_results"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req research.QueryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	answers, err := s.research.QueryDocuments(r.Context(), req)
	if err != nil {
		s.writeResearchError(w, err)
		return
	}
	if answers == nil {
		answers = []research.DocumentAnswers{}
	}
	answered := make([]string, len(answers))
	for i, a := range answers {
		answered[i] = a.DocID
	}
	s.record(r, audit.Entry{
		Action:   audit.ActionDocumentsQueried,
		DocIDs:   answered,
		Question: req.Question,
		Summary:  fmt.Sprintf("%d document(s) answered", len(answers)),
	})
	writeJSON(w, http.StatusOK, queryResponse{IndividualAnswers: answers})
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	var req research.ThemeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	themes, err := s.research.IdentifyThemes(r.Context(), req)
	if err != nil {
		s.writeResearchError(w, err)
		return
	}
	if themes == nil {
		themes = []research.Theme{}
	}
	s.record(r, audit.Entry{
		Action:   audit.ActionThemesIdentified,
		DocIDs:   req.DocIDs,
		Question: req.Question,
		Summary:  fmt.Sprintf("%d theme(s) identified", len(themes)),
	})
	writeJSON(w, http.StatusOK, themeResponse{Themes: themes})
}

func (s *Server) writeResearchError(w http.ResponseWriter, err error) {
	if errors.Is(err, research.ErrNoDocuments) || errors.Is(err, research.ErrEmptyQuestion) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error("research request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "request failed")
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "No files provided for upload.")
		return
	}
	for _, fh := range files {
		if err := ingest.ValidateFilename(fh.Filename); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	meta := ingest.Metadata{Author: strings.TrimSpace(r.FormValue("author"))}
	if v := r.FormValue("doc_date"); v != "" {
		t, err := documents.ParseDate(v, false)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		meta.DocDate = &t
	}

	results := make([]ingest.Result, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			results = append(results, ingest.Result{
				Filename: fh.Filename,
				Status:   ingest.StatusError,
				Detail:   fmt.Sprintf("Failed to read upload: %v", err),
			})
			continue
		}
		res := s.ingest.Upload(r.Context(), fh.Filename, f, meta)
		f.Close()
		results = append(results, res)
		if res.Status == ingest.StatusIndexed {
			s.record(r, audit.Entry{
				Action:  audit.ActionDocumentUploaded,
				DocIDs:  []string{res.DocID},
				Summary: fmt.Sprintf("%s: %s", res.Filename, res.Detail),
			})
		}
	}
	writeJSON(w, http.StatusCreated, uploadResponse{UploadResults: results})
}

func (s *Server) handleListDocs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := documents.Filter{
		Author:  q.Get("author"),
		DocType: q.Get("doc_type"),
	}
	for _, bound := range []struct {
		param string
		upper bool
		dst   **time.Time
	}{
		{"date_from", false, &filter.From},
		{"date_to", true, &filter.To},
	} {
		v := q.Get(bound.param)
		if v == "" {
			continue
		}
		t, err := documents.ParseDate(v, bound.upper)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s: %v", bound.param, err))
			return
		}
		*bound.dst = &t
	}

	docs, err := s.docs.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing documents failed", "error", err)
		writeError(w, http.StatusInternalServerError, "listing documents failed")
		return
	}
	if docs == nil {
		docs = []documents.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.Get(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		s.writeDocError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDoc(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if err := s.ingest.Delete(r.Context(), docID); err != nil {
		s.writeDocError(w, err)
		return
	}
	s.record(r, audit.Entry{
		Action:  audit.ActionDocumentDeleted,
		DocIDs:  []string{docID},
		Summary: "document and embeddings deleted",
	})
	writeJSON(w, http.StatusOK, detailResponse{
		Detail: fmt.Sprintf("Document %s and its embeddings have been deleted.", docID),
	})
}

func (s *Server) writeDocError(w http.ResponseWriter, err error) {
	if errors.Is(err, documents.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Error("document request failed", "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

// record appends to the activity log when one is configured. Failures are
// logged and never fail the request.
func (s *Server) record(r *http.Request, e audit.Entry) {
	if s.activity == nil {
		return
	}
	e.ActorType = audit.ActorAPI
	if err := s.activity.Log(r.Context(), e); err != nil {
		s.logger.Warn("recording activity failed", "action", e.Action, "error", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}
