package broker

type EventType string

const (
	// Standardized event types in format: <resource>.<action>
	TaskCreated EventType = "task.created"
	TaskUpdated EventType = "task.updated"
	TaskDeleted EventType = "task.deleted"

	UserCreated EventType = "user.created"
	UserUpdated EventType = "user.updated"
	UserDeleted EventType = "user.deleted"
)

const subjectPrefix = "taskmanager.events"

const (
	TaskSubject = subjectPrefix + ".task"
	UserSubject = subjectPrefix + ".user"
)

// SubjectForEntity maps an event entity to the NATS subject it is published on
func SubjectForEntity(entity string) string {
	switch entity {
	case "task":
		return TaskSubject
	case "user":
		return UserSubject
	default:
		return subjectPrefix + "." + entity
	}
}
