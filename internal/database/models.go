package database

import (
	"database/sql"
	"time"
)

// MemberRole enumerates group membership roles. MEMBER is the only role
// assigned automatically; elevation is an explicit operation.
type MemberRole string

const (
	RoleMember MemberRole = "MEMBER"
	RoleAdmin  MemberRole = "ADMIN"
	RoleOwner  MemberRole = "OWNER"
)

// Sender enumerates who produced a conversation entry.
type Sender string

const (
	SenderUser Sender = "USER"
	SenderAI   Sender = "AI"
)

// MessageType enumerates the kinds of message payloads recorded in the
// conversation log.
type MessageType string

const (
	MessageTypeText     MessageType = "TEXT"
	MessageTypeImage    MessageType = "IMAGE"
	MessageTypeDocument MessageType = "DOCUMENT"
	MessageTypeAudio    MessageType = "AUDIO"
	MessageTypeSystem   MessageType = "SYSTEM"
)

// User is the durable identity anchor. Each platform identifier column is
// nullable and globally unique when present; once set it is never
// reassigned to a different user.
type User struct {
	ID         string         `db:"id"`
	WhatsAppID sql.NullString `db:"whatsapp_id"`
	TelegramID sql.NullString `db:"telegram_id"`
	APIID      sql.NullString `db:"api_id"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

// PlatformID returns the user's identifier on the given platform column,
// or "" when the slot is empty.
func (u *User) PlatformID(column string) string {
	switch column {
	case "whatsapp_id":
		return u.WhatsAppID.String
	case "telegram_id":
		return u.TelegramID.String
	case "api_id":
		return u.APIID.String
	}
	return ""
}

// Group is the container for group-scoped conversation. Groups are
// soft-deactivated via IsActive, never hard-deleted.
type Group struct {
	ID          string         `db:"id"`
	WhatsAppID  sql.NullString `db:"whatsapp_id"`
	TelegramID  sql.NullString `db:"telegram_id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	IsActive    bool           `db:"is_active"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// GroupMember relates a user to a group. A row with a NULL left_at is an
// active membership; leaving closes the row and rejoining inserts a new
// one, preserving the membership history.
type GroupMember struct {
	ID       string       `db:"id"`
	UserID   string       `db:"user_id"`
	GroupID  string       `db:"group_id"`
	Role     MemberRole   `db:"role"`
	JoinedAt time.Time    `db:"joined_at"`
	LeftAt   sql.NullTime `db:"left_at"`
}

// IsActive reports whether the membership is current.
func (m *GroupMember) IsActive() bool {
	return !m.LeftAt.Valid
}

// Conversation is one immutable message event. A NULL GroupID means the
// entry belongs to the user's private scope; a non-NULL GroupID pins it to
// exactly that group. Seq is the insertion-ordered tie breaker for entries
// sharing a timestamp.
type Conversation struct {
	ID          string         `db:"id"`
	Seq         int64          `db:"seq"`
	UserID      string         `db:"user_id"`
	GroupID     sql.NullString `db:"group_id"`
	Message     string         `db:"message"`
	Sender      Sender         `db:"sender"`
	Platform    string         `db:"platform"`
	MessageType MessageType    `db:"message_type"`
	Context     sql.NullString `db:"context"`
	Timestamp   time.Time      `db:"timestamp"`
}

// HistoryPage is one page of conversation history plus the pagination
// facts computed alongside it.
type HistoryPage struct {
	Entries []Conversation
	Total   int
	HasMore bool
}
