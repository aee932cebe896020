package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	ActionOrganizationCreated     = "organization.created"
	ActionOrganizationClaimed     = "organization.claimed"
	ActionOwnershipTransferred    = "organization.ownership_transferred"
	ActionOrganizationLinksEdited = "organization.links_updated"
	ActionUserDeleted             = "user.deleted"

	ResourceOrganization = "organization"
	ResourceUser         = "user"
)

type AuditLog struct {
	ID           string                 `json:"id"`
	UserID       string                 `json:"user_id"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id"`
	Metadata     map[string]interface{} `json:"metadata"`
	IPAddress    string                 `json:"ip_address"`
	UserAgent    string                 `json:"user_agent"`
	CreatedAt    int64                  `json:"created_at"`
}

// Request carries the caller details attached to every entry.
type Request struct {
	IPAddress string
	UserAgent string
}

type requestKey struct{}

func WithRequest(ctx context.Context, req Request) context.Context {
	return context.WithValue(ctx, requestKey{}, req)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type Logger struct {
	db *sql.DB
}

func NewLogger(db *sql.DB) *Logger {
	return &Logger{db: db}
}

// Log writes an entry outside any transaction. Failures are logged and
// swallowed; auditing never fails the request.
func (l *Logger) Log(ctx context.Context, userID, action, resourceType, resourceID string, metadata map[string]interface{}) {
	if err := l.write(ctx, l.db, userID, action, resourceType, resourceID, metadata); err != nil {
		log.Error().Err(err).Str("action", action).Str("resource_id", resourceID).Msg("failed to write audit log")
	}
}

// LogTx writes an entry as part of tx so it commits or rolls back with the
// change it describes.
func (l *Logger) LogTx(ctx context.Context, tx *sql.Tx, userID, action, resourceType, resourceID string, metadata map[string]interface{}) error {
	return l.write(ctx, tx, userID, action, resourceType, resourceID, metadata)
}

func (l *Logger) write(ctx context.Context, q execer, userID, action, resourceType, resourceID string, metadata map[string]interface{}) error {
	req, _ := ctx.Value(requestKey{}).(Request)

	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	entry := &AuditLog{
		ID:           "audit_" + uuid.New().String(),
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     metadata,
		IPAddress:    req.IPAddress,
		UserAgent:    req.UserAgent,
		CreatedAt:    time.Now().Unix(),
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO audit_logs (id, user_id, action, resource_type, resource_id, metadata, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.UserID, entry.Action, entry.ResourceType, entry.ResourceID, string(metaJSON), entry.IPAddress, entry.UserAgent, entry.CreatedAt)
	return err
}

// ListByResource returns the newest entries first.
func (l *Logger) ListByResource(ctx context.Context, resourceType, resourceID string, limit int) ([]*AuditLog, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, user_id, action, resource_type, resource_id, metadata, ip_address, user_agent, created_at
		FROM audit_logs WHERE resource_type = ? AND resource_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, resourceType, resourceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*AuditLog
	for rows.Next() {
		entry := &AuditLog{}
		var metaStr string
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Action, &entry.ResourceType, &entry.ResourceID, &metaStr, &entry.IPAddress, &entry.UserAgent, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(metaStr), &entry.Metadata); err != nil {
			log.Warn().Err(err).Str("audit_id", entry.ID).Msg("failed to decode audit metadata")
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
