package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType enum
type NotificationType string

const (
	NotifyIssueCreated       NotificationType = "issue_created"
	NotifyIssueAssigned      NotificationType = "issue_assigned"
	NotifyIssueStatusUpdated NotificationType = "issue_status_updated"
	NotifyIssueResolved      NotificationType = "issue_resolved"
	NotifyIssueClosed        NotificationType = "issue_closed"
	NotifyOfficerAssigned    NotificationType = "officer_assigned"
	NotifyVoteReceived       NotificationType = "vote_received"
	NotifySystemAlert        NotificationType = "system_alert"
	NotifyAdmin              NotificationType = "admin_notification"
)

// NotificationPriority enum
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

func (p NotificationPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Notification targets a single recipient. IssueID and OfficerID are weak
// references resolved at read time; a deleted issue or officer just leaves
// them unresolvable. IsRead only ever moves false -> true.
type Notification struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID    string               `bson:"userId" json:"userId"`
	Type      NotificationType     `bson:"type" json:"type"`
	Title     string               `bson:"title" json:"title"`
	Message   string               `bson:"message" json:"message"`
	IsRead    bool                 `bson:"isRead" json:"isRead"`
	Priority  NotificationPriority `bson:"priority" json:"priority"`
	IssueID   *primitive.ObjectID  `bson:"issueId,omitempty" json:"issueId,omitempty"`
	OfficerID *primitive.ObjectID  `bson:"officerId,omitempty" json:"officerId,omitempty"`
	Metadata  bson.M               `bson:"metadata,omitempty" json:"metadata,omitempty"`
	ExpiresAt *time.Time           `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}
