// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/mdregistry/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Admin controls logging for workgroup and membership changes.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
	// Security controls logging for denied operations. Same values as Admin.
	Security string
}

// Logging modes for Config.Admin and Config.Security.
const (
	ModeAll = "all"
	ModeDB  = "db"
	ModeLog = "log"
	ModeOff = "off"
)

// ValidMode reports whether m is a known mode. Empty means ModeAll.
func ValidMode(m string) bool {
	switch m {
	case "", ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// EventStore persists audit events. audit.Store and the in-memory backend
// both satisfy it.
type EventStore interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger provides convenience methods for logging audit events.
// It logs to both the event store and structured logs (via zap).
type Logger struct {
	store  EventStore
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store EventStore, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

type requestInfoKey struct{}

type requestInfo struct {
	ip        string
	userAgent string
}

// WithRequest records the client address and user agent of r on ctx so
// events logged further down the call chain carry them.
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, requestInfo{
		ip:        getClientIP(r),
		userAgent: r.UserAgent(),
	})
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for reverse proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}

	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.WorkgroupID != nil {
		fields = append(fields, zap.String("workgroup_id", event.WorkgroupID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAdmin:
		setting = l.config.Admin
	case audit.CategorySecurity:
		setting = l.config.Security
	}
	if setting == "" {
		setting = ModeAll
	}
	if setting == ModeOff {
		return
	}

	if info, ok := ctx.Value(requestInfoKey{}).(requestInfo); ok {
		if event.IP == "" {
			event.IP = info.ip
		}
		if event.UserAgent == "" {
			event.UserAgent = info.userAgent
		}
	}

	if setting == ModeAll || setting == ModeLog {
		l.logToZap(event)
	}

	if (setting == ModeAll || setting == ModeDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func (l *Logger) admin(ctx context.Context, eventType string, actorID primitive.ObjectID, workgroupID, userID *primitive.ObjectID, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:    audit.CategoryAdmin,
		EventType:   eventType,
		ActorID:     &actorID,
		WorkgroupID: workgroupID,
		UserID:      userID,
		Success:     true,
		Details:     details,
	})
}

// --- Workgroup Events ---

// WorkgroupCreated logs creation of a workgroup.
func (l *Logger) WorkgroupCreated(ctx context.Context, actorID, workgroupID primitive.ObjectID, name string) {
	l.admin(ctx, audit.EventWorkgroupCreated, actorID, &workgroupID, nil, map[string]string{
		"name": name,
	})
}

// WorkgroupUpdated logs a name/definition edit.
func (l *Logger) WorkgroupUpdated(ctx context.Context, actorID, workgroupID primitive.ObjectID, fieldsChanged string) {
	l.admin(ctx, audit.EventWorkgroupUpdated, actorID, &workgroupID, nil, map[string]string{
		"fields_changed": fieldsChanged,
	})
}

// ArchiveToggled logs an archive or unarchive.
func (l *Logger) ArchiveToggled(ctx context.Context, actorID, workgroupID primitive.ObjectID, archived bool) {
	eventType := audit.EventWorkgroupUnarchived
	if archived {
		eventType = audit.EventWorkgroupArchived
	}
	l.admin(ctx, eventType, actorID, &workgroupID, nil, map[string]string{
		"archived": strconv.FormatBool(archived),
	})
}

// --- Membership Events ---

// MemberRolesAdded logs roles granted to a user.
func (l *Logger) MemberRolesAdded(ctx context.Context, actorID, workgroupID, userID primitive.ObjectID, roles string) {
	l.admin(ctx, audit.EventMemberRolesAdded, actorID, &workgroupID, &userID, map[string]string{
		"roles": roles,
	})
}

// MemberRolesChanged logs replacement of a user's role set.
func (l *Logger) MemberRolesChanged(ctx context.Context, actorID, workgroupID, userID primitive.ObjectID, from, to string) {
	l.admin(ctx, audit.EventMemberRolesChanged, actorID, &workgroupID, &userID, map[string]string{
		"from": from,
		"to":   to,
	})
}

// MemberRemoved logs removal of a user by a manager.
func (l *Logger) MemberRemoved(ctx context.Context, actorID, workgroupID, userID primitive.ObjectID) {
	l.admin(ctx, audit.EventMemberRemoved, actorID, &workgroupID, &userID, nil)
}

// MemberLeft logs a user removing themselves.
func (l *Logger) MemberLeft(ctx context.Context, workgroupID, userID primitive.ObjectID) {
	l.admin(ctx, audit.EventMemberLeft, userID, &workgroupID, &userID, nil)
}

// ItemAssigned logs a metadata item moving into a workgroup.
func (l *Logger) ItemAssigned(ctx context.Context, actorID, workgroupID, itemID primitive.ObjectID, fromWorkgroup string) {
	details := map[string]string{"item_id": itemID.Hex()}
	if fromWorkgroup != "" {
		details["from_workgroup_id"] = fromWorkgroup
	}
	l.admin(ctx, audit.EventItemAssigned, actorID, &workgroupID, nil, details)
}

// AdminBootstrapped logs the startup grant of the registry-admin capability.
func (l *Logger) AdminBootstrapped(ctx context.Context, userID primitive.ObjectID, email string) {
	l.admin(ctx, audit.EventAdminBootstrapped, userID, nil, &userID, map[string]string{
		"email": email,
	})
}

// --- Security Events ---

// PermissionDenied logs a rejected operation. actorID is nil for
// unauthenticated callers.
func (l *Logger) PermissionDenied(ctx context.Context, actorID, workgroupID *primitive.ObjectID, action, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategorySecurity,
		EventType:     audit.EventPermissionDenied,
		ActorID:       actorID,
		WorkgroupID:   workgroupID,
		Success:       false,
		FailureReason: reason,
		Details: map[string]string{
			"action": action,
		},
	})
}
