package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nguyenthenguyen/docx"

	"github.com/example/jobtracker/internal/classify"
	"github.com/example/jobtracker/internal/model"
)

const maxResumeBytes = 10 << 20

func (s *Server) handleListResumes(w http.ResponseWriter, r *http.Request) {
	resumes, err := s.Store.ListResumes(r.Context(), s.owner(r))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, resumes)
}

func (s *Server) handleUploadResume(w http.ResponseWriter, r *http.Request) {
	file, header, err := resumeFormFile(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxResumeBytes+1))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("read upload: %w", err))
		return
	}
	if len(data) > maxResumeBytes {
		writeErr(w, http.StatusRequestEntityTooLarge, fmt.Errorf("resume exceeds %d bytes", maxResumeBytes))
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	id := uuid.NewString()
	key := filepath.Join("resumes", id+ext)
	if _, err := s.Blobs.Put(key, bytes.NewReader(data)); err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("store resume: %w", err))
		return
	}

	text, _ := extractResumeText(data, ext)

	ctx := r.Context()
	owner := s.owner(r)
	// first resume becomes active automatically
	_, activeErr := s.Store.ActiveResume(ctx, owner)
	resume := model.Resume{
		ID:            id,
		Owner:         owner,
		Filename:      header.Filename,
		FileKey:       key,
		ContentType:   contentTypeForExt(ext),
		SizeBytes:     int64(len(data)),
		Active:        activeErr == model.ErrNotFound,
		ExtractedText: text,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.Store.CreateResume(ctx, resume); err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("create resume: %w", err))
		return
	}
	writeJSON(w, http.StatusCreated, resume)
}

func (s *Server) handleActiveResume(w http.ResponseWriter, r *http.Request) {
	resume, err := s.Store.ActiveResume(r.Context(), s.owner(r))
	if err != nil {
		writeNotFoundOr500(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resume)
}

func (s *Server) handleDownloadResume(w http.ResponseWriter, r *http.Request) {
	resume, err := s.Store.GetResume(r.Context(), s.owner(r), chi.URLParam(r, "id"))
	if err != nil {
		writeNotFoundOr500(w, err)
		return
	}
	f, err := s.Blobs.Open(resume.FileKey)
	if err != nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("resume file missing"))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", resume.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", resume.Filename))
	_, _ = io.Copy(w, f)
}

func (s *Server) handleActivateResume(w http.ResponseWriter, r *http.Request) {
	owner, id := s.owner(r), chi.URLParam(r, "id")
	if err := s.Store.ActivateResume(r.Context(), owner, id); err != nil {
		writeNotFoundOr500(w, err)
		return
	}
	resume, err := s.Store.GetResume(r.Context(), owner, id)
	if err != nil {
		writeNotFoundOr500(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resume)
}

func (s *Server) handleDeleteResume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := s.owner(r)
	resume, err := s.Store.GetResume(ctx, owner, chi.URLParam(r, "id"))
	if err != nil {
		writeNotFoundOr500(w, err)
		return
	}
	if err := s.Store.DeleteResume(ctx, owner, resume.ID); err != nil {
		writeNotFoundOr500(w, err)
		return
	}
	_ = s.Blobs.Delete(resume.FileKey)
	writeJSON(w, http.StatusOK, map[string]any{"message": "resume deleted"})
}

// handleExtractText extracts plain text from an uploaded file without
// persisting anything.
func (s *Server) handleExtractText(w http.ResponseWriter, r *http.Request) {
	file, header, err := resumeFormFile(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxResumeBytes))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("read upload: %w", err))
		return
	}
	text, err := extractResumeText(data, strings.ToLower(filepath.Ext(header.Filename)))
	if err != nil {
		writeErr(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"text": text})
}

const atsPromptTemplate = `You are an ATS (applicant tracking system) analyzer. Score this resume.

Resume text:
%s

Return ONLY valid JSON with:
1. score: integer 0-100
2. strengths: array of short strings
3. weaknesses: array of short strings
4. suggestions: array of short strings

JSON:`

// handleAnalyzeATS asks the model for an ATS verdict on a stored resume.
func (s *Server) handleAnalyzeATS(w http.ResponseWriter, r *http.Request) {
	if s.Generator == nil {
		writeErr(w, http.StatusServiceUnavailable, fmt.Errorf("ai is not configured"))
		return
	}
	ctx := r.Context()
	resume, err := s.Store.GetResume(ctx, s.owner(r), chi.URLParam(r, "id"))
	if err != nil {
		writeNotFoundOr500(w, err)
		return
	}
	if resume.ExtractedText == "" {
		writeErr(w, http.StatusUnprocessableEntity, fmt.Errorf("no text could be extracted from this resume"))
		return
	}

	out, err := s.Generator.Generate(ctx, fmt.Sprintf(atsPromptTemplate, resume.ExtractedText))
	if err != nil {
		writeErr(w, http.StatusBadGateway, fmt.Errorf("analyze resume: %w", err))
		return
	}
	payload, err := classify.ExtractJSON(out)
	if err != nil {
		writeErr(w, http.StatusBadGateway, fmt.Errorf("model returned no usable verdict"))
		return
	}
	writeJSON(w, http.StatusOK, json.RawMessage(payload))
}

func resumeFormFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(maxResumeBytes); err != nil {
		return nil, nil, fmt.Errorf("parse multipart: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, fmt.Errorf("missing 'file' upload: %w", err)
	}
	return file, header, nil
}

func contentTypeForExt(ext string) string {
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	}
	return "application/octet-stream"
}

var xmlTag = regexp.MustCompile(`<[^>]+>`)

// extractResumeText pulls plain text out of txt and docx uploads. PDF text
// extraction is not supported; those resumes can still be stored and served.
func extractResumeText(data []byte, ext string) (string, error) {
	switch ext {
	case ".txt":
		return string(data), nil
	case ".docx":
		doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return "", fmt.Errorf("read docx: %w", err)
		}
		defer doc.Close()
		content := doc.Editable().GetContent()
		// paragraph boundaries become newlines before the markup is stripped
		content = strings.ReplaceAll(content, "</w:p>", "\n")
		text := xmlTag.ReplaceAllString(content, "")
		return strings.TrimSpace(html.UnescapeString(text)), nil
	default:
		return "", fmt.Errorf("unsupported file type %q", ext)
	}
}
