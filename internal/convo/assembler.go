// Package convo assembles AI conversation context from the append-only
// conversation log and records complete chat turns. Scope is always an
// explicit parameter: a nil group id means the user's private
// conversation, a value means exactly that group. Nothing here keeps
// conversational state outside the store.
package convo

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/convocore/convocore/internal/database"
	apperrors "github.com/convocore/convocore/internal/errors"
	"github.com/convocore/convocore/internal/platform"
)

// DefaultContextLimit bounds how many history entries feed one AI context
// when the caller does not choose a limit.
const DefaultContextLimit = 10

// Empty-scope context messages. The wording distinguishes private from
// group but never names the group, so no scope detail leaks through the
// rendered text.
const (
	emptyPrivateContext = "This is the beginning of your private chat conversation."
	emptyGroupContext   = "This is the beginning of your group chat conversation."
)

// Responder is the single operation consumed from the inference
// component: new user message plus assembled context in, reply text out.
// It is stateless from convocore's point of view.
type Responder interface {
	Respond(ctx context.Context, message, contextText string) (string, error)
}

// Assembler reads scoped history and renders it for the inference
// component, and records chat turns back into the log.
type Assembler struct {
	store     database.Store
	responder Responder
	logger    *slog.Logger
}

// NewAssembler creates a context assembler. responder may be nil when
// only BuildContext/Append/History are used (no full turns).
func NewAssembler(store database.Store, responder Responder, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		store:     store,
		responder: responder,
		logger:    logger.With("component", "context_assembler"),
	}
}

// AppendParams describes one conversation entry to record.
type AppendParams struct {
	UserID      string
	GroupID     *string
	Message     string
	Sender      database.Sender
	Platform    platform.Platform
	MessageType database.MessageType
	ContextNote string
}

func (p *AppendParams) validate() error {
	if p.UserID == "" {
		return apperrors.NewValidationError("user id is required", nil)
	}
	if strings.TrimSpace(p.Message) == "" {
		return apperrors.NewValidationError("message text is required", nil)
	}
	switch p.Sender {
	case database.SenderUser, database.SenderAI:
	default:
		return apperrors.NewValidationError(fmt.Sprintf("invalid sender %q", p.Sender), nil)
	}
	if _, err := platform.Parse(string(p.Platform)); err != nil {
		return err
	}
	switch p.MessageType {
	case "", database.MessageTypeText, database.MessageTypeImage,
		database.MessageTypeDocument, database.MessageTypeAudio, database.MessageTypeSystem:
	default:
		return apperrors.NewValidationError(fmt.Sprintf("invalid message type %q", p.MessageType), nil)
	}
	return nil
}

func (p *AppendParams) toEntry() *database.Conversation {
	entry := &database.Conversation{
		UserID:      p.UserID,
		Message:     p.Message,
		Sender:      p.Sender,
		Platform:    string(p.Platform),
		MessageType: p.MessageType,
	}
	if p.GroupID != nil {
		entry.GroupID = sql.NullString{String: *p.GroupID, Valid: true}
	}
	if p.ContextNote != "" {
		entry.Context = sql.NullString{String: p.ContextNote, Valid: true}
	}
	return entry
}

// Append records one immutable conversation entry under the given scope.
func (a *Assembler) Append(ctx context.Context, params AppendParams) (*database.Conversation, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	entry := params.toEntry()
	if err := a.store.AppendConversation(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// History reads one page of scoped history, newest first.
func (a *Assembler) History(ctx context.Context, userID string, groupID *string, limit, offset int) (*database.HistoryPage, error) {
	return a.store.ConversationHistory(ctx, userID, groupID, limit, offset)
}

// BuildContext renders the most recent entries of the scope as the text
// block handed to the inference component. The store returns newest
// first; the rendering is oldest first, one speaker-labeled line per
// entry with the message text verbatim.
func (a *Assembler) BuildContext(ctx context.Context, userID string, groupID *string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultContextLimit
	}
	page, err := a.store.ConversationHistory(ctx, userID, groupID, limit, 0)
	if err != nil {
		return "", err
	}

	if len(page.Entries) == 0 {
		if groupID != nil {
			return emptyGroupContext, nil
		}
		return emptyPrivateContext, nil
	}

	scope := "private"
	if groupID != nil {
		scope = "group"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recent %s conversation:\n", scope)
	for i := len(page.Entries) - 1; i >= 0; i-- {
		entry := page.Entries[i]
		label := "User"
		if entry.Sender == database.SenderAI {
			label = "AI"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(entry.Message)
		if i > 0 {
			b.WriteByte('\n')
		}
	}

	a.logger.DebugContext(ctx, "Context assembled",
		"user_id", userID, "group_scoped", groupID != nil, "entries", len(page.Entries))
	return b.String(), nil
}

// TurnParams describes one inbound chat message to process end to end.
type TurnParams struct {
	UserID       string
	GroupID      *string
	Message      string
	Platform     platform.Platform
	MessageType  database.MessageType
	ContextNote  string
	ContextLimit int
}

// Turn runs one complete chat turn: the inbound message is committed
// first, then context is read and the inference component invoked, and
// the reply is committed before returning. A turn cancelled mid-flight
// leaves at most the inbound entry; a reply is never recorded without its
// committed inbound message.
func (a *Assembler) Turn(ctx context.Context, params TurnParams) (string, error) {
	if a.responder == nil {
		return "", apperrors.NewStorageError("no inference component configured", nil)
	}

	_, err := a.Append(ctx, AppendParams{
		UserID:      params.UserID,
		GroupID:     params.GroupID,
		Message:     params.Message,
		Sender:      database.SenderUser,
		Platform:    params.Platform,
		MessageType: params.MessageType,
		ContextNote: params.ContextNote,
	})
	if err != nil {
		return "", err
	}

	contextText, err := a.BuildContext(ctx, params.UserID, params.GroupID, params.ContextLimit)
	if err != nil {
		return "", err
	}

	reply, err := a.responder.Respond(ctx, params.Message, contextText)
	if err != nil {
		return "", fmt.Errorf("inference failed: %w", err)
	}

	_, err = a.Append(ctx, AppendParams{
		UserID:      params.UserID,
		GroupID:     params.GroupID,
		Message:     reply,
		Sender:      database.SenderAI,
		Platform:    params.Platform,
		MessageType: database.MessageTypeText,
	})
	if err != nil {
		return "", err
	}

	return reply, nil
}
