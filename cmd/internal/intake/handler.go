package intake

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"getcanvapro/cmd/internal/storage"
	"getcanvapro/cmd/security/token"
)

// multipartOverhead covers boundaries and text fields on top of the résumé cap.
const multipartOverhead = 1 << 20

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type applyResponse struct {
	Message     string              `json:"message"`
	Application storage.Application `json:"application"`
}

type listResponse struct {
	Applications []storage.Application `json:"applications"`
}

// Handler serves the intake HTTP endpoints.
type Handler struct {
	log   *slog.Logger
	svc   *Service
	admin token.Verifier
}

// NewHandler wires the endpoints. An empty adminToken disables the list endpoint.
func NewHandler(log *slog.Logger, svc *Service, adminToken string) *Handler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Handler{log: log, svc: svc, admin: token.NewVerifier(adminToken)}
}

// Apply handles POST /api/internship/apply (multipart/form-data).
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	maxBytes := h.svc.MaxResumeBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", FileTooLargeMessage(maxBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", "expected multipart/form-data")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	in := ApplyInput{
		Name:       r.FormValue("name"),
		Email:      r.FormValue("email"),
		Phone:      r.FormValue("phone"),
		ResumeSize: -1,
	}

	file, hdr, err := r.FormFile("resume")
	switch {
	case err == nil:
		defer func() { _ = file.Close() }()
		in.ResumeName = hdr.Filename
		in.ResumeSize = hdr.Size
		in.Resume = file
	case errors.Is(err, http.ErrMissingFile):
	default:
		writeError(w, http.StatusBadRequest, "bad_request", "unreadable resume")
		return
	}

	app, err := h.svc.Apply(r.Context(), in)
	if err != nil {
		h.writeApplyError(w, err, maxBytes)
		return
	}

	writeJSON(w, http.StatusCreated, applyResponse{
		Message:     "Application submitted successfully",
		Application: app,
	})
}

func (h *Handler) writeApplyError(w http.ResponseWriter, err error, maxBytes int64) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "validation_failed",
			Message: MsgCheckFields,
			Fields:  ve.Fields,
		})
	case errors.Is(err, ErrInvalidFileType):
		writeError(w, http.StatusBadRequest, "invalid_file_type", MsgInvalidFileType)
	case errors.Is(err, ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", FileTooLargeMessage(maxBytes))
	case errors.Is(err, ErrEmptyFile):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "validation_failed",
			Message: MsgCheckFields,
			Fields:  map[string]string{"resume": "Please upload your resume"},
		})
	default:
		writeError(w, http.StatusInternalServerError, "submission_failed", MsgSubmissionFailed)
	}
}

// List handles GET /api/internship/applications for holders of the admin token.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.admin.Enabled() {
		writeError(w, http.StatusNotFound, "not_found", "not found")
		return
	}
	if !h.admin.VerifyRequest(r) {
		w.Header().Set("WWW-Authenticate", `Bearer realm="getcanvapro"`)
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Applications: h.svc.List(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
