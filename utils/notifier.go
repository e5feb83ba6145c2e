package utils

import (
	"context"
	"fmt"
	"time"

	"jagruk-be/models"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// UnreadCountKey is the Redis cache key for a user's unread notification count.
func UnreadCountKey(userID string) string {
	return "notifications:unread:" + userID
}

// Notifier reacts to issue lifecycle events by fanning notifications out to
// the affected users. Fan-out runs after the primary mutation has committed
// and is best-effort: failures are logged and never propagated, so a broken
// notifications collection cannot fail an issue write.
//
// Recipient rules:
//
//	issue created    -> all officers + the reporter          (medium)
//	status updated   -> reporter; + all officers if resolved (medium, high if resolved)
//	officer assigned -> the officer and the reporter,
//	                    with distinct copy for each          (high)
//	vote received    -> reporter, unless the voter is the
//	                    reporter themselves                  (low)
type Notifier struct {
	Notifications *mongo.Collection
	Officers      *mongo.Collection
	Redis         *redis.Client
	Log           *zap.SugaredLogger
}

func NewNotifier(notifications, officers *mongo.Collection, rdb *redis.Client, logger *zap.SugaredLogger) *Notifier {
	return &Notifier{Notifications: notifications, Officers: officers, Redis: rdb, Log: logger}
}

func (n *Notifier) IssueCreated(issue *models.Issue) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	officerIDs, err := n.officerUserIDs(ctx)
	if err != nil {
		n.Log.Warnw("issue created fan-out: officer lookup failed", "issueId", issue.ID.Hex(), "error", err)
	}
	n.deliver(ctx, issueCreatedBatch(issue, officerIDs))
}

func (n *Notifier) StatusUpdated(issue *models.Issue, previous models.IssueStatus, updatedBy string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var officerIDs []string
	if issue.Status == models.StatusResolved {
		ids, err := n.officerUserIDs(ctx)
		if err != nil {
			n.Log.Warnw("status fan-out: officer lookup failed", "issueId", issue.ID.Hex(), "error", err)
		}
		officerIDs = ids
	}
	n.deliver(ctx, statusUpdateBatch(issue, previous, updatedBy, officerIDs))
}

func (n *Notifier) OfficerAssigned(issue *models.Issue, officer *models.Officer) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n.deliver(ctx, assignmentBatch(issue, officer))
}

func (n *Notifier) VoteReceived(issue *models.Issue, voterID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n.deliver(ctx, voteBatch(issue, voterID))
}

// SystemAlert sends a manual alert to an explicit list of users. Unlike the
// lifecycle fan-outs this surfaces errors; it backs an admin endpoint.
func (n *Notifier) SystemAlert(ctx context.Context, userIDs []string, title, message string, priority models.NotificationPriority, metadata bson.M) ([]models.Notification, error) {
	return n.manualBatch(ctx, models.NotifySystemAlert, userIDs, title, message, priority, metadata)
}

// AdminNotification sends a manual notification to admin users.
func (n *Notifier) AdminNotification(ctx context.Context, userIDs []string, title, message string, priority models.NotificationPriority, metadata bson.M) ([]models.Notification, error) {
	return n.manualBatch(ctx, models.NotifyAdmin, userIDs, title, message, priority, metadata)
}

func (n *Notifier) manualBatch(ctx context.Context, kind models.NotificationType, userIDs []string, title, message string, priority models.NotificationPriority, metadata bson.M) ([]models.Notification, error) {
	if priority == "" {
		priority = models.PriorityMedium
		if kind == models.NotifyAdmin {
			priority = models.PriorityHigh
		}
	}

	batch := make([]models.Notification, 0, len(userIDs))
	for _, userID := range userIDs {
		batch = append(batch, newNotification(userID, kind, title, message, priority, metadata))
	}
	if len(batch) == 0 {
		return batch, nil
	}

	docs := make([]interface{}, len(batch))
	for i := range batch {
		docs[i] = batch[i]
	}
	if _, err := n.Notifications.InsertMany(ctx, docs); err != nil {
		return nil, err
	}
	n.invalidateUnreadCounts(ctx, batch)
	return batch, nil
}

// officerUserIDs lists every officer id as an opaque recipient string.
func (n *Notifier) officerUserIDs(ctx context.Context) ([]string, error) {
	cursor, err := n.Officers.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var officers []models.Officer
	if err := cursor.All(ctx, &officers); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(officers))
	for _, o := range officers {
		ids = append(ids, o.ID.Hex())
	}
	return ids, nil
}

func (n *Notifier) deliver(ctx context.Context, batch []models.Notification) {
	if len(batch) == 0 {
		return
	}

	docs := make([]interface{}, len(batch))
	for i := range batch {
		docs[i] = batch[i]
	}
	if _, err := n.Notifications.InsertMany(ctx, docs); err != nil {
		n.Log.Warnw("notification fan-out failed", "type", batch[0].Type, "count", len(batch), "error", err)
		return
	}
	n.invalidateUnreadCounts(ctx, batch)
}

// invalidateUnreadCounts drops the cached unread counters for every recipient
// in the batch so the next poll recomputes them.
func (n *Notifier) invalidateUnreadCounts(ctx context.Context, batch []models.Notification) {
	if n.Redis == nil {
		return
	}
	keys := make([]string, 0, len(batch))
	seen := make(map[string]bool, len(batch))
	for _, notification := range batch {
		if !seen[notification.UserID] {
			seen[notification.UserID] = true
			keys = append(keys, UnreadCountKey(notification.UserID))
		}
	}
	if err := n.Redis.Del(ctx, keys...).Err(); err != nil {
		n.Log.Debugw("unread count invalidation failed", "error", err)
	}
}

func newNotification(userID string, kind models.NotificationType, title, message string, priority models.NotificationPriority, metadata bson.M) models.Notification {
	now := time.Now()
	return models.Notification{
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Message:   message,
		IsRead:    false,
		Priority:  priority,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// issueCreatedBatch builds one notification per officer plus one for the
// reporter.
func issueCreatedBatch(issue *models.Issue, officerIDs []string) []models.Notification {
	recipients := append(append([]string{}, officerIDs...), issue.UserID)
	metadata := bson.M{
		"category":   issue.Category,
		"location":   issue.Place(),
		"reporterId": issue.UserID,
	}

	batch := make([]models.Notification, 0, len(recipients))
	for _, userID := range recipients {
		notification := newNotification(
			userID,
			models.NotifyIssueCreated,
			"New Issue Reported",
			fmt.Sprintf("A new issue %q has been reported in %s, %s", issue.Title, issue.City, issue.State),
			models.PriorityMedium,
			metadata,
		)
		id := issue.ID
		notification.IssueID = &id
		batch = append(batch, notification)
	}
	return batch
}

// statusUpdateBatch notifies the reporter about any transition and, when the
// new status is resolved, escalates priority and copies all officers in.
func statusUpdateBatch(issue *models.Issue, previous models.IssueStatus, updatedBy string, officerIDs []string) []models.Notification {
	priority := models.PriorityMedium
	recipients := []string{issue.UserID}
	if issue.Status == models.StatusResolved {
		priority = models.PriorityHigh
		recipients = append(recipients, officerIDs...)
	}

	metadata := bson.M{
		"previousStatus": string(previous),
		"newStatus":      string(issue.Status),
		"updatedBy":      updatedBy,
		"location":       issue.Place(),
	}

	batch := make([]models.Notification, 0, len(recipients))
	for _, userID := range recipients {
		notification := newNotification(
			userID,
			models.NotifyIssueStatusUpdated,
			"Issue Status Updated",
			fmt.Sprintf("Issue %q status changed from %q to %q", issue.Title, previous, issue.Status),
			priority,
			metadata,
		)
		id := issue.ID
		notification.IssueID = &id
		batch = append(batch, notification)
	}
	return batch
}

// assignmentBatch notifies the assigned officer and the reporter with
// distinct message copy for each.
func assignmentBatch(issue *models.Issue, officer *models.Officer) []models.Notification {
	metadata := bson.M{
		"officerName":  officer.FullName,
		"officerEmail": officer.Email,
		"location":     issue.Place(),
		"category":     issue.Category,
	}

	officerNote := newNotification(
		officer.ID.Hex(),
		models.NotifyOfficerAssigned,
		"Issue Assigned to Officer",
		fmt.Sprintf("Issue %q has been assigned to Officer %s", issue.Title, officer.FullName),
		models.PriorityHigh,
		metadata,
	)
	reporterNote := newNotification(
		issue.UserID,
		models.NotifyOfficerAssigned,
		"Your Issue Has Been Assigned",
		fmt.Sprintf("Your issue %q has been assigned to Officer %s", issue.Title, officer.FullName),
		models.PriorityHigh,
		metadata,
	)

	issueID := issue.ID
	officerID := officer.ID
	for _, note := range []*models.Notification{&officerNote, &reporterNote} {
		note.IssueID = &issueID
		note.OfficerID = &officerID
	}
	return []models.Notification{officerNote, reporterNote}
}

// voteBatch notifies the reporter about a received vote. A self-vote
// produces no notification at all.
func voteBatch(issue *models.Issue, voterID string) []models.Notification {
	if issue.UserID == voterID {
		return nil
	}

	notification := newNotification(
		issue.UserID,
		models.NotifyVoteReceived,
		"Issue Received a Vote",
		fmt.Sprintf("Your issue %q received a vote (Total: %d)", issue.Title, issue.Votes),
		models.PriorityLow,
		bson.M{
			"totalVotes": issue.Votes,
			"voterId":    voterID,
			"location":   issue.Place(),
		},
	)
	id := issue.ID
	notification.IssueID = &id
	return []models.Notification{notification}
}
