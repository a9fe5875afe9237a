package api

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/keepsake/internal/analysis"
	"github.com/MikeSquared-Agency/keepsake/internal/chat"
	"github.com/MikeSquared-Agency/keepsake/internal/keypool"
)

const maxUploadBytes = 32 << 20

// analyze accepts a multipart upload ("whatsapp" .txt export required,
// "instagram" .json export optional), runs the full pipeline and returns the
// report as JSON.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	msgs, ok := s.parseUploads(w, r)
	if !ok {
		return
	}

	report, err := s.pipeline.Run(r.Context(), msgs)
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrNoMessages):
			writeError(w, http.StatusBadRequest, "no messages found in the uploaded files")
		case errors.Is(err, keypool.ErrNoAccounts):
			writeError(w, http.StatusServiceUnavailable, "no API credentials configured")
		default:
			s.logger.Error("pipeline run failed", "error", err)
			writeError(w, http.StatusInternalServerError, "analysis failed")
		}
		return
	}

	if s.store != nil {
		if err := s.store.WriteRun(r.Context(), report); err != nil {
			s.logger.Error("failed to persist run", "run_id", report.RunID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, report)
}

// preprocess parses the same uploads as analyze but skips the LLM entirely,
// returning a zip with the compact transcript and the extraction instruction.
func (s *Server) preprocess(w http.ResponseWriter, r *http.Request) {
	msgs, ok := s.parseUploads(w, r)
	if !ok {
		return
	}
	if len(msgs) == 0 {
		writeError(w, http.StatusBadRequest, "no messages found in the uploaded files")
		return
	}

	type archiveFile struct {
		name    string
		content []byte
	}

	// Table-encoded JSON is the primary output; large transcripts split
	// into part files so each stays within one model request.
	chunks := chat.OptimizeTranscript(msgs).Split(0)
	var files []archiveFile
	for i, c := range chunks {
		name := "processed_data/processed_chat.json"
		if len(chunks) > 1 {
			name = fmt.Sprintf("processed_data/processed_chat_part%d.json", i+1)
		}
		data, err := json.Marshal(c)
		if err != nil {
			s.logger.Error("failed to encode optimized transcript", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to build archive")
			return
		}
		files = append(files, archiveFile{name, data})
	}
	files = append(files,
		archiveFile{"compressed_data/compressed_chat.txt", []byte(chat.CompactTranscript(msgs))},
		archiveFile{"prompts/system_instruction.txt", []byte(analysis.ExtractionInstruction())},
	)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		entry, err := zw.Create(f.name)
		if err == nil {
			_, err = entry.Write(f.content)
		}
		if err != nil {
			s.logger.Error("failed to build archive", "file", f.name, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to build archive")
			return
		}
	}
	if err := zw.Close(); err != nil {
		s.logger.Error("failed to build archive", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build archive")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="keepsake_preprocessed.zip"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "persistence is not configured")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("run %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "persistence is not configured")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// parseUploads reads the multipart form and returns the merged, time-sorted
// transcript. On failure it writes the error response and returns ok=false.
func (s *Server) parseUploads(w http.ResponseWriter, r *http.Request) ([]chat.Message, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "expected a multipart form upload")
		return nil, false
	}

	wa, header, err := r.FormFile("whatsapp")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing whatsapp chat export (field: whatsapp)")
		return nil, false
	}
	defer wa.Close()
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".txt") {
		writeError(w, http.StatusBadRequest, "whatsapp export must be a .txt file")
		return nil, false
	}

	msgs, err := chat.ParseWhatsApp(wa)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse whatsapp export: %v", err))
		return nil, false
	}

	if ig, header, err := r.FormFile("instagram"); err == nil {
		defer ig.Close()
		if !strings.HasSuffix(strings.ToLower(header.Filename), ".json") {
			writeError(w, http.StatusBadRequest, "instagram export must be a .json file")
			return nil, false
		}
		igMsgs, err := chat.ParseInstagram(ig)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse instagram export: %v", err))
			return nil, false
		}
		msgs = append(msgs, igMsgs...)
	}

	chat.SortByTime(msgs)
	return msgs, true
}
