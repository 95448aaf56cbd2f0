package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
)

// SummaryHandler handles GET /api/summary.
type SummaryHandler struct {
	DB      *sql.DB
	Version string
}

type summaryResponse struct {
	Version        string    `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	Algorithm      string    `json:"algorithm"`
	FilesScanned   int64     `json:"files_scanned"`
	FilesFailed    int64     `json:"files_failed"`
	GroupsFound    int64     `json:"groups_found"`
	DuplicateFiles int64     `json:"duplicate_files"`
	BytesRead      int64     `json:"bytes_read"`
	BytesReadHuman string    `json:"bytes_read_human"`
	DurationMs     int64     `json:"duration_ms"`
}

// ServeHTTP returns the most recent run recorded in the report.
func (h *SummaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := summaryResponse{Version: h.Version}
	var createdAt int64
	err := h.DB.QueryRowContext(r.Context(), `
		SELECT created_at, algorithm, files_scanned, files_failed,
		       groups_found, duplicate_files, bytes_read, duration_ms
		FROM runs ORDER BY id DESC LIMIT 1`,
	).Scan(&createdAt, &resp.Algorithm, &resp.FilesScanned, &resp.FilesFailed,
		&resp.GroupsFound, &resp.DuplicateFiles, &resp.BytesRead, &resp.DurationMs)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Report has no runs")
		return
	}
	if err != nil {
		writeInternal(w, "latest run", err)
		return
	}
	resp.CreatedAt = time.Unix(createdAt, 0).UTC()
	resp.BytesReadHuman = humanize.Bytes(uint64(resp.BytesRead))

	writeJSON(w, http.StatusOK, resp)
}
