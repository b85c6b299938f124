package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MimeLyc/srt-editor/internal/jobs"
	"github.com/MimeLyc/srt-editor/internal/session"
	"github.com/MimeLyc/srt-editor/internal/subtitle"
	"github.com/MimeLyc/srt-editor/internal/translator"
	"github.com/MimeLyc/srt-editor/pkg/file"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.List())
}

// handleCreateSession accepts the SRT either as the raw body or as the
// multipart field "file". The ?name= query names raw uploads.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	name, data, err := readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("subtitle file exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if name != "" && !subtitle.IsSRTName(name) {
		writeError(w, http.StatusBadRequest, "only SRT format subtitle files are supported")
		return
	}

	sess := s.sessions.Create(name, subtitle.ReadBytes(data))
	writeJSON(w, http.StatusCreated, sess.View())
}

func readUpload(r *http.Request) (string, []byte, error) {
	name := filepath.Base(strings.TrimSpace(r.URL.Query().Get("name")))
	if name == "." || name == "/" {
		name = ""
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return "", nil, err
		}
		return name, data, nil
	}

	upload, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, err
		}
		return "", nil, fmt.Errorf("multipart field %q is required", "file")
	}
	defer upload.Close()

	data, err := io.ReadAll(upload)
	if err != nil {
		return "", nil, err
	}
	if name == "" {
		name = filepath.Base(header.Filename)
	}
	return name, data, nil
}

func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return sess, true
}

func cueIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cue index must be an integer")
		return 0, false
	}
	return index, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	// ?lang=es names the download movie.es.srt
	name := file.InsertTag(sess.FileName, r.URL.Query().Get("lang"))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": name,
	}))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, sess.Export())
}

type updateCueRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (s *Server) handleUpdateCue(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	index, ok := cueIndex(w, r)
	if !ok {
		return
	}

	var req updateCueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	field, err := subtitle.ParseField(req.Field)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if field != subtitle.FieldText && !subtitle.ValidTimecode(req.Value) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must look like HH:MM:SS,mmm", field))
		return
	}

	cue, err := sess.SetField(index, field, req.Value)
	if err != nil {
		writeCueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cue)
}

type translateCueRequest struct {
	TargetLanguage string `json:"targetLanguage"`
	IncludeContext *bool  `json:"includeContext,omitempty"`
	APIKey         string `json:"apiKey,omitempty"`
}

func (r translateCueRequest) includeContext() bool {
	return r.IncludeContext == nil || *r.IncludeContext
}

func (s *Server) handleTranslateCue(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	index, ok := cueIndex(w, r)
	if !ok {
		return
	}

	var req translateCueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	cue, err := sess.TranslateCue(r.Context(), s.translator, session.CueTranslation{
		Index:          index,
		TargetLanguage: s.targetLanguage(req.TargetLanguage),
		IncludeContext: req.includeContext(),
		Credential:     s.credential(req.APIKey),
	})
	if err != nil {
		writeCueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cue)
}

type translateSessionRequest struct {
	translateCueRequest
	Source string `json:"source,omitempty"`
}

func (s *Server) handleTranslateSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	var req translateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	credential := s.credential(req.APIKey)
	if credential == "" {
		writeTranslationError(w, translator.NewError(translator.ErrAuthentication, "missing API key"))
		return
	}
	if req.Source == "" {
		req.Source = "manual"
	}
	target := s.targetLanguage(req.TargetLanguage)

	job, created := s.queue.Enqueue(jobs.EnqueueRequest{
		Source:    req.Source,
		DedupeKey: sess.ID + "|" + target,
		Payload: jobs.JobPayload{
			SessionID:      sess.ID,
			TargetLanguage: target,
			IncludeContext: req.includeContext(),
			Credential:     credential,
		},
	})
	code := http.StatusCreated
	if !created {
		code = http.StatusOK
	}
	writeJSON(w, code, map[string]any{
		"created": created,
		"job":     job,
	})
}

func writeCueError(w http.ResponseWriter, err error) {
	if errors.Is(err, subtitle.ErrCueNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeTranslationError(w, err)
}
