package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MimeLyc/srt-editor/internal/config"
	"github.com/MimeLyc/srt-editor/internal/translator"
	"github.com/MimeLyc/srt-editor/pkg/log"
)

type translateRequest struct {
	translator.Request
	APIKey string `json:"apiKey,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	text, err := s.translator.Translate(r.Context(), req.Request, s.credential(req.APIKey))
	if err != nil {
		writeTranslationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, translateResponse{TranslatedText: text})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	}
	if s.health != nil {
		for k, v := range s.health() {
			body[k] = v
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}
	settings, err := s.settings.GetRuntimeSettings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}

	var req config.RuntimeSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.lockAPIURL {
		current, err := s.settings.GetRuntimeSettings()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if req.LLMAPIURL != current.LLMAPIURL {
			writeError(w, http.StatusForbidden, "llm_api_url is fixed while the server supplies the api key")
			return
		}
	}
	saved, err := s.settings.UpdateRuntimeSettings(req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.setDefaultTarget(saved.DefaultTargetLanguage)
	writeJSON(w, http.StatusOK, saved)
}

// translationStatus maps translator errors onto HTTP statuses.
func translationStatus(err error) int {
	var terr *translator.Error
	if !errors.As(err, &terr) {
		return http.StatusInternalServerError
	}
	switch terr.Type {
	case translator.ErrInvalidRequest, translator.ErrAuthentication:
		return http.StatusBadRequest
	case translator.ErrProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeTranslationError(w http.ResponseWriter, err error) {
	status := translationStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("Translation failed: %v", err)
	}

	msg := err.Error()
	var terr *translator.Error
	if errors.As(err, &terr) {
		msg = terr.Message
		if terr.Cause != nil && terr.Type == translator.ErrProvider {
			msg += ": " + terr.Cause.Error()
		}
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
		"type":  translationErrorType(err),
	})
}

func translationErrorType(err error) string {
	var terr *translator.Error
	if errors.As(err, &terr) {
		return terr.Type.String()
	}
	return "Internal"
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
