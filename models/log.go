package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LogUserType enum
type LogUserType string

const (
	UserTypeAdmin   LogUserType = "admin"
	UserTypeOfficer LogUserType = "officer"
	UserTypeUser    LogUserType = "user"
)

func (t LogUserType) Valid() bool {
	return t == UserTypeAdmin || t == UserTypeOfficer || t == UserTypeUser
}

// LogSeverity enum
type LogSeverity string

const (
	SeverityInfo     LogSeverity = "info"
	SeverityWarning  LogSeverity = "warning"
	SeverityCritical LogSeverity = "critical"
)

func (s LogSeverity) Valid() bool {
	return s == SeverityInfo || s == SeverityWarning || s == SeverityCritical
}

// Log is an append-only audit entry. Entries are never updated; retention
// cleanup deletes old ones but keeps critical entries regardless of age.
// IssueID is a weak string reference, not a foreign key.
type Log struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserType   LogUserType        `bson:"userType" json:"userType"`
	UserID     string             `bson:"userId" json:"userId"`
	Action     string             `bson:"action" json:"action"`
	IssueID    string             `bson:"issueId,omitempty" json:"issueId,omitempty"`
	Details    string             `bson:"details,omitempty" json:"details,omitempty"`
	Severity   LogSeverity        `bson:"severity" json:"severity"`
	IPAddress  string             `bson:"ipAddress,omitempty" json:"ipAddress,omitempty"`
	DeviceInfo string             `bson:"deviceInfo,omitempty" json:"deviceInfo,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}
