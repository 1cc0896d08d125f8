package audit

import (
	"time"

	"github.com/platinummonkey/taskboard/pkg/models"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authorization events
	EventTypeAuthzAccessDenied EventType = "authz.access_denied"

	// Registration events
	EventTypeOrgRegister  EventType = "auth.org_register"
	EventTypeUserRegister EventType = "auth.user_register"

	// Admin events
	EventTypeAdminUserCreate     EventType = "admin.user_create"
	EventTypeAdminUserUpdate     EventType = "admin.user_update"
	EventTypeAdminUserApprove    EventType = "admin.user_approve"
	EventTypeAdminUserReject     EventType = "admin.user_reject"
	EventTypeAdminUserDeactivate EventType = "admin.user_deactivate"
	EventTypeAdminUserDelete     EventType = "admin.user_delete"

	// Cascade events
	EventTypeCascadeUserDelete    EventType = "cascade.user_delete"
	EventTypeCascadeProjectDelete EventType = "cascade.project_delete"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourceTypeProject      ResourceType = "project"
	ResourceTypeTask         ResourceType = "task"
	ResourceTypeUser         ResourceType = "user"
	ResourceTypeOrganization ResourceType = "organization"
)

// AuditEvent represents a single audit log entry
type AuditEvent struct {
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor information
	UserID         string `json:"user_id,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`

	// Resource information
	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`

	RequestID string `json:"request_id,omitempty"`

	Message      string                 `json:"message,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

func actor(user *models.User) (string, string) {
	if user == nil {
		return "", ""
	}
	return user.ID, user.OrganizationID
}

// AccessDenied builds the event for a refused access decision
func AccessDenied(user *models.User, action string, resourceType ResourceType, resourceID, reason string) *AuditEvent {
	userID, orgID := actor(user)
	return &AuditEvent{
		EventType:      EventTypeAuthzAccessDenied,
		Status:         EventStatusDenied,
		UserID:         userID,
		OrganizationID: orgID,
		ResourceType:   resourceType,
		ResourceID:     resourceID,
		Message:        reason,
		Metadata:       map[string]interface{}{"action": action},
	}
}

// AdminAction builds the event for an administrative change to a user
func AdminAction(eventType EventType, admin *models.User, targetID, message string) *AuditEvent {
	userID, orgID := actor(admin)
	return &AuditEvent{
		EventType:      eventType,
		Status:         EventStatusSuccess,
		UserID:         userID,
		OrganizationID: orgID,
		ResourceType:   ResourceTypeUser,
		ResourceID:     targetID,
		Message:        message,
	}
}

// Cascade builds the event for a completed or failed cascading delete.
// effects holds the number of records touched per rewrite.
func Cascade(eventType EventType, actorUser *models.User, resourceType ResourceType, resourceID string, effects map[string]int64, err error) *AuditEvent {
	userID, orgID := actor(actorUser)
	event := &AuditEvent{
		EventType:      eventType,
		Status:         EventStatusSuccess,
		UserID:         userID,
		OrganizationID: orgID,
		ResourceType:   resourceType,
		ResourceID:     resourceID,
		Metadata:       make(map[string]interface{}, len(effects)),
	}
	for k, v := range effects {
		event.Metadata[k] = v
	}
	if err != nil {
		event.Status = EventStatusFailure
		event.ErrorMessage = err.Error()
	}
	return event
}
