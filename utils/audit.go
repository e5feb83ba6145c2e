package utils

import (
	"context"
	"fmt"
	"time"

	"jagruk-be/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// AuditEntry is the input for one audit log write.
type AuditEntry struct {
	UserType   models.LogUserType
	UserID     string
	Action     string
	IssueID    string
	Details    string
	Severity   models.LogSeverity
	IPAddress  string
	DeviceInfo string
}

// AuditSink appends audit entries to the logs collection. It is an explicit
// dependency of every mutating handler rather than response-interception
// middleware. Record is fire-and-forget: a failing log write must never fail
// the operation that triggered it. Append surfaces errors for the manual
// create-log endpoint.
type AuditSink struct {
	Logs *mongo.Collection
	Log  *zap.SugaredLogger
}

func NewAuditSink(logs *mongo.Collection, logger *zap.SugaredLogger) *AuditSink {
	return &AuditSink{Logs: logs, Log: logger}
}

func (s *AuditSink) Append(ctx context.Context, e AuditEntry) (*models.Log, error) {
	if e.UserType == "" {
		e.UserType = models.UserTypeUser
	}
	if e.Severity == "" {
		e.Severity = models.SeverityInfo
	}
	if !e.UserType.Valid() {
		return nil, fmt.Errorf("invalid user type %q", e.UserType)
	}
	if !e.Severity.Valid() {
		return nil, fmt.Errorf("invalid severity %q", e.Severity)
	}
	if e.UserID == "" || e.Action == "" {
		return nil, fmt.Errorf("userId and action are required")
	}

	now := time.Now()
	entry := models.Log{
		UserType:   e.UserType,
		UserID:     e.UserID,
		Action:     e.Action,
		IssueID:    e.IssueID,
		Details:    e.Details,
		Severity:   e.Severity,
		IPAddress:  e.IPAddress,
		DeviceInfo: e.DeviceInfo,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	result, err := s.Logs.InsertOne(ctx, entry)
	if err != nil {
		return nil, err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		entry.ID = oid
	}
	return &entry, nil
}

// Record writes the entry best-effort. Errors are logged and swallowed; the
// caller's context is not used so a finished request cannot cancel the write.
func (s *AuditSink) Record(e AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.Append(ctx, e); err != nil {
		s.Log.Warnw("audit write failed",
			"action", e.Action,
			"userId", e.UserID,
			"error", err,
		)
	}
}

// WithRequest fills provenance fields from the originating HTTP request.
func (e AuditEntry) WithRequest(c *gin.Context) AuditEntry {
	if e.IPAddress == "" {
		e.IPAddress = c.ClientIP()
	}
	if e.DeviceInfo == "" {
		e.DeviceInfo = c.Request.UserAgent()
	}
	return e
}
