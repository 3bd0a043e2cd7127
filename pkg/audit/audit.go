// Package audit provides a shared audit trail for catalogd's
// administrative actions.
//
// Every mutation reachable from the admin API — starting or stopping a
// scrape run, deleting albums by date or range, editing a settings
// category — is written to the audit_log table via LogActionWithRequest. This
// gives an operator a record of who changed what, separate from the
// structured request logs that only capture the HTTP transaction.
//
// Actor types: "admin" | "system"
// Action naming convention: "{resource}.{verb}", e.g. "scrape.start",
// "albums.delete_by_date", "settings.update".
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
)

// LogAction inserts a row into the audit_log table.
//
// actorID and resourceID are catalogd's own domain identifiers — the
// admin account's numeric id (see internal/auth.AdminClaims.Subject),
// an album_id, a playlist id, or a date string — not UUIDs, so they
// are stored as plain text rather than parsed.
//
// On error the failure is logged by the caller but never propagated
// up to a user-visible response: audit log writes are best-effort.
func LogAction(
	ctx context.Context,
	db *sql.DB,
	actorType, actorID, action, resourceType, resourceID string,
	details map[string]interface{},
) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO audit_log (
			actor_type, actor_id, action,
			resource_type, resource_id, details
		) VALUES ($1, NULLIF($2, ''), $3, $4, NULLIF($5, ''), $6)`,
		actorType, actorID, action,
		resourceType, resourceID, string(detailsJSON),
	)
	return err
}

// LogActionWithRequest is a convenience wrapper that also captures the
// request's IP address and User-Agent from an http.Request.
func LogActionWithRequest(
	r *http.Request,
	db *sql.DB,
	actorType, actorID, action, resourceType, resourceID string,
	details map[string]interface{},
) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	ip := r.Header.Get("CF-Connecting-IP")
	if ip == "" {
		ip = r.Header.Get("X-Forwarded-For")
	}
	if ip == "" {
		ip = r.RemoteAddr
	}
	ua := r.Header.Get("User-Agent")

	_, err = db.ExecContext(r.Context(), `
		INSERT INTO audit_log (
			actor_type, actor_id, action,
			resource_type, resource_id, details,
			ip_address, user_agent
		) VALUES ($1, NULLIF($2, ''), $3, $4, NULLIF($5, ''), $6, $7, $8)`,
		actorType, actorID, action,
		resourceType, resourceID, string(detailsJSON),
		ip, ua,
	)
	return err
}

// Entry represents a row returned from the audit_log query.
type Entry struct {
	ID           int64                  `json:"id"`
	ActorType    string                 `json:"actor_type"`
	ActorID      *string                `json:"actor_id"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   *string                `json:"resource_id"`
	Details      map[string]interface{} `json:"details"`
	IPAddress    *string                `json:"ip_address"`
	UserAgent    *string                `json:"user_agent"`
	CreatedAt    string                 `json:"created_at"`
}

// Query fetches paginated audit log entries with optional filters.
// Recognized filter keys: "actor_id", "action", "resource_id",
// "resource_type", "date_from" (RFC3339), "date_to" (RFC3339).
func Query(
	ctx context.Context,
	db *sql.DB,
	filters map[string]string,
	limit, offset int,
) ([]Entry, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	addFilter := func(col, op string) {
		if v, ok := filters[col]; ok && v != "" {
			where += fmt.Sprintf(" AND %s %s $%d", col, op, argIdx)
			if op == "ILIKE" {
				args = append(args, "%"+v+"%")
			} else {
				args = append(args, v)
			}
			argIdx++
		}
	}
	addFilter("actor_id", "=")
	addFilter("action", "ILIKE")
	addFilter("resource_type", "=")
	addFilter("resource_id", "=")
	if v, ok := filters["date_from"]; ok && v != "" {
		where += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, v)
		argIdx++
	}
	if v, ok := filters["date_to"]; ok && v != "" {
		where += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, v)
		argIdx++
	}

	countArgs := make([]interface{}, len(args))
	copy(countArgs, args)
	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_log "+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := db.QueryContext(ctx, `
		SELECT id, actor_type, actor_id, action,
		       resource_type, resource_id, details,
		       ip_address, user_agent, created_at
		FROM audit_log
		`+where+`
		ORDER BY created_at DESC
		LIMIT $`+fmt.Sprintf("%d", argIdx)+` OFFSET $`+fmt.Sprintf("%d", argIdx+1),
		args...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var detailsJSON string
		if err := rows.Scan(
			&e.ID, &e.ActorType, &e.ActorID, &e.Action,
			&e.ResourceType, &e.ResourceID, &detailsJSON,
			&e.IPAddress, &e.UserAgent, &e.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		_ = json.Unmarshal([]byte(detailsJSON), &e.Details)
		entries = append(entries, e)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, total, rows.Err()
}
