package eventbus

import "time"

// Topic identifies a logical channel on the bus.
type Topic string

const (
	TopicPrefsChanged      Topic = "prefs.changed"
	TopicSessionsLifecycle Topic = "sessions.lifecycle"
	TopicDefaultsChanged   Topic = "defaults.changed"
)

// Source describes which component produced an event.
type Source string

const (
	SourcePrefsManager Source = "prefs_manager"
	SourceAPIServer    Source = "api_server"
	SourceClient       Source = "client"
	SourceUnknown      Source = "unknown"
)

// Envelope wraps every message published on the bus.
type Envelope struct {
	Topic     Topic
	Timestamp time.Time
	Source    Source
	Payload   any
}

// SessionState summarises session lifecycle changes.
type SessionState string

const (
	SessionStateCreated SessionState = "created"
	SessionStateRemoved SessionState = "removed"
)

// SessionReasonExpired is the Reason value set on lifecycle events published
// when the idle reaper discards a session. Consumers can use it to tell
// explicit removals apart from idle expiry.
const SessionReasonExpired = "session_expired"

// PreferenceChangedEvent notifies consumers that one preference field of a
// session's store was written.
type PreferenceChangedEvent struct {
	SessionID string
	Field     string
	Value     any
}

// SessionLifecycleEvent notifies consumers about session create/remove.
type SessionLifecycleEvent struct {
	SessionID string
	State     SessionState
	Reason    string
}

// DefaultsChangedEvent signals that the seed defaults stored in the
// configuration database were updated.
type DefaultsChangedEvent struct {
	PageSize int
}

// ---------------------------------------------------------------------------
// Typed topic descriptors
// ---------------------------------------------------------------------------
// Each TopicDef binds a Topic constant to its payload type, enabling
// compile-time enforcement via Publish[T] and SubscribeTo[T].

// Prefs groups preference topic descriptors.
var Prefs = struct {
	Changed TopicDef[PreferenceChangedEvent]
}{
	Changed: NewTopicDef[PreferenceChangedEvent](TopicPrefsChanged),
}

// Sessions groups session-related topic descriptors.
var Sessions = struct {
	Lifecycle TopicDef[SessionLifecycleEvent]
}{
	Lifecycle: NewTopicDef[SessionLifecycleEvent](TopicSessionsLifecycle),
}

// Defaults groups seed-default topic descriptors.
var Defaults = struct {
	Changed TopicDef[DefaultsChangedEvent]
}{
	Changed: NewTopicDef[DefaultsChangedEvent](TopicDefaultsChanged),
}
