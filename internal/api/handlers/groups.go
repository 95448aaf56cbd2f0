package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// GroupsHandler serves the duplicate groups of a report.
type GroupsHandler struct {
	DB *sql.DB
}

type groupItem struct {
	ID        int64    `json:"id"`
	Hash      string   `json:"hash"`
	FileCount int      `json:"file_count"`
	Files     []string `json:"files,omitempty"`
}

// List handles GET /api/groups, ordered by group ID.
func (h *GroupsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAGINATION", err.Error())
		return
	}
	ctx := r.Context()

	var total int
	if err := h.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM duplicate_groups`).Scan(&total); err != nil {
		writeInternal(w, "count groups", err)
		return
	}

	rows, err := h.DB.QueryContext(ctx,
		`SELECT id, hash, file_count FROM duplicate_groups ORDER BY id LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		writeInternal(w, "list groups", err)
		return
	}
	defer rows.Close()

	items := []groupItem{}
	for rows.Next() {
		var g groupItem
		if err := rows.Scan(&g.ID, &g.Hash, &g.FileCount); err != nil {
			writeInternal(w, "scan group", err)
			return
		}
		items = append(items, g)
	}
	if err := rows.Err(); err != nil {
		writeInternal(w, "list groups", err)
		return
	}

	writeJSON(w, http.StatusOK, ListResponse[groupItem]{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /api/groups/{id}; the response includes member paths in
// the order they were reported.
func (h *GroupsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid group ID")
		return
	}
	ctx := r.Context()

	var g groupItem
	err = h.DB.QueryRowContext(ctx,
		`SELECT id, hash, file_count FROM duplicate_groups WHERE id = ?`, id,
	).Scan(&g.ID, &g.Hash, &g.FileCount)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Group not found")
		return
	}
	if err != nil {
		writeInternal(w, "get group", err, "id", id)
		return
	}

	rows, err := h.DB.QueryContext(ctx,
		`SELECT path FROM duplicate_files WHERE group_id = ? ORDER BY id`, id)
	if err != nil {
		writeInternal(w, "group files", err, "id", id)
		return
	}
	defer rows.Close()

	g.Files = make([]string, 0, g.FileCount)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			writeInternal(w, "scan file", err, "id", id)
			return
		}
		g.Files = append(g.Files, p)
	}
	if err := rows.Err(); err != nil {
		writeInternal(w, "group files", err, "id", id)
		return
	}

	writeJSON(w, http.StatusOK, g)
}
