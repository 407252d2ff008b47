package convo_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/convocore/convocore/internal/convo"
	"github.com/convocore/convocore/internal/database"
	apperrors "github.com/convocore/convocore/internal/errors"
	"github.com/convocore/convocore/internal/platform"
)

// fakeResponder records what it was asked and returns a canned reply.
type fakeResponder struct {
	lastMessage string
	lastContext string
	reply       string
	err         error
}

func (f *fakeResponder) Respond(_ context.Context, message, contextText string) (string, error) {
	f.lastMessage = message
	f.lastContext = contextText
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestAssembler(t *testing.T, responder convo.Responder) (*convo.Assembler, database.Store) {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "convo.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	store := database.NewStore(db, nil)
	return convo.NewAssembler(store, responder, nil), store
}

func createUser(t *testing.T, store database.Store, apiID string) *database.User {
	t.Helper()

	user := &database.User{APIID: sql.NullString{String: apiID, Valid: true}}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func createGroup(t *testing.T, store database.Store, telegramID string) *database.Group {
	t.Helper()

	group := &database.Group{TelegramID: sql.NullString{String: telegramID, Valid: true}, Name: "g"}
	if err := store.CreateGroup(context.Background(), group); err != nil {
		t.Fatalf("failed to create group: %v", err)
	}
	return group
}

func TestAppendValidation(t *testing.T) {
	t.Parallel()

	assembler, store := newTestAssembler(t, nil)
	ctx := context.Background()
	user := createUser(t, store, "append-user")

	tests := []struct {
		name   string
		params convo.AppendParams
	}{
		{
			name:   "missing user id",
			params: convo.AppendParams{Message: "hi", Sender: database.SenderUser, Platform: platform.API},
		},
		{
			name:   "blank message",
			params: convo.AppendParams{UserID: user.ID, Message: "   ", Sender: database.SenderUser, Platform: platform.API},
		},
		{
			name:   "bad sender",
			params: convo.AppendParams{UserID: user.ID, Message: "hi", Sender: "ROBOT", Platform: platform.API},
		},
		{
			name:   "bad platform",
			params: convo.AppendParams{UserID: user.ID, Message: "hi", Sender: database.SenderUser, Platform: "SIGNAL"},
		},
		{
			name:   "bad message type",
			params: convo.AppendParams{UserID: user.ID, Message: "hi", Sender: database.SenderUser, Platform: platform.API, MessageType: "VIDEO"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := assembler.Append(ctx, tt.params)
			if !apperrors.HasCode(err, apperrors.CodeValidation) {
				t.Errorf("Append error code = %q, want %q", apperrors.Code(err), apperrors.CodeValidation)
			}
		})
	}
}

func TestAppendDefaultsMessageType(t *testing.T) {
	t.Parallel()

	assembler, store := newTestAssembler(t, nil)
	ctx := context.Background()
	user := createUser(t, store, "default-type-user")

	entry, err := assembler.Append(ctx, convo.AppendParams{
		UserID:   user.ID,
		Message:  "hello",
		Sender:   database.SenderUser,
		Platform: platform.API,
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if entry.MessageType != database.MessageTypeText {
		t.Errorf("message type = %q, want %q", entry.MessageType, database.MessageTypeText)
	}
	if entry.ID == "" || entry.Seq == 0 {
		t.Errorf("entry id/seq not assigned: id %q seq %d", entry.ID, entry.Seq)
	}
}

func TestBuildContextEmptyScopes(t *testing.T) {
	t.Parallel()

	assembler, store := newTestAssembler(t, nil)
	ctx := context.Background()
	user := createUser(t, store, "empty-ctx-user")
	group := createGroup(t, store, "-100123123123")

	private, err := assembler.BuildContext(ctx, user.ID, nil, 0)
	if err != nil {
		t.Fatalf("private BuildContext failed: %v", err)
	}
	if private != "This is the beginning of your private chat conversation." {
		t.Errorf("private empty context = %q", private)
	}

	scoped, err := assembler.BuildContext(ctx, user.ID, &group.ID, 0)
	if err != nil {
		t.Fatalf("group BuildContext failed: %v", err)
	}
	if scoped != "This is the beginning of your group chat conversation." {
		t.Errorf("group empty context = %q", scoped)
	}
}

func TestBuildContextRendersOldestFirst(t *testing.T) {
	t.Parallel()

	assembler, store := newTestAssembler(t, nil)
	ctx := context.Background()
	user := createUser(t, store, "render-user")

	turns := []struct {
		sender  database.Sender
		message string
	}{
		{database.SenderUser, "what's the weather"},
		{database.SenderAI, "sunny all week"},
		{database.SenderUser, "and tomorrow?"},
	}
	for _, turn := range turns {
		if _, err := assembler.Append(ctx, convo.AppendParams{
			UserID:   user.ID,
			Message:  turn.message,
			Sender:   turn.sender,
			Platform: platform.API,
		}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := assembler.BuildContext(ctx, user.ID, nil, 0)
	if err != nil {
		t.Fatalf("BuildContext failed: %v", err)
	}

	want := "Recent private conversation:\n" +
		"User: what's the weather\n" +
		"AI: sunny all week\n" +
		"User: and tomorrow?"
	if got != want {
		t.Errorf("BuildContext =\n%q\nwant\n%q", got, want)
	}
}

func TestBuildContextGroupHeading(t *testing.T) {
	t.Parallel()

	assembler, store := newTestAssembler(t, nil)
	ctx := context.Background()
	user := createUser(t, store, "heading-user")
	group := createGroup(t, store, "-100456456456")

	if _, err := assembler.Append(ctx, convo.AppendParams{
		UserID:   user.ID,
		GroupID:  &group.ID,
		Message:  "hello group",
		Sender:   database.SenderUser,
		Platform: platform.Telegram,
	}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got, err := assembler.BuildContext(ctx, user.ID, &group.ID, 0)
	if err != nil {
		t.Fatalf("BuildContext failed: %v", err)
	}
	if !strings.HasPrefix(got, "Recent group conversation:\n") {
		t.Errorf("group context heading wrong: %q", got)
	}
}

func TestBuildContextLimit(t *testing.T) {
	t.Parallel()

	assembler, store := newTestAssembler(t, nil)
	ctx := context.Background()
	user := createUser(t, store, "limit-user")

	for _, msg := range []string{"one", "two", "three", "four"} {
		if _, err := assembler.Append(ctx, convo.AppendParams{
			UserID:   user.ID,
			Message:  msg,
			Sender:   database.SenderUser,
			Platform: platform.API,
		}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := assembler.BuildContext(ctx, user.ID, nil, 2)
	if err != nil {
		t.Fatalf("BuildContext failed: %v", err)
	}

	// Only the two most recent entries, still oldest first.
	want := "Recent private conversation:\nUser: three\nUser: four"
	if got != want {
		t.Errorf("BuildContext = %q, want %q", got, want)
	}
}

func TestTurnRecordsBothSides(t *testing.T) {
	t.Parallel()

	responder := &fakeResponder{reply: "the answer is 42"}
	assembler, store := newTestAssembler(t, responder)
	ctx := context.Background()
	user := createUser(t, store, "turn-user")

	reply, err := assembler.Turn(ctx, convo.TurnParams{
		UserID:   user.ID,
		Message:  "what is the answer",
		Platform: platform.API,
	})
	if err != nil {
		t.Fatalf("Turn failed: %v", err)
	}
	if reply != "the answer is 42" {
		t.Errorf("Turn reply = %q, want %q", reply, "the answer is 42")
	}

	// The inbound message was committed before the responder ran, so it
	// appears in the context the responder saw.
	if !strings.Contains(responder.lastContext, "User: what is the answer") {
		t.Errorf("responder context missing inbound message: %q", responder.lastContext)
	}

	page, err := store.ConversationHistory(ctx, user.ID, nil, 10, 0)
	if err != nil {
		t.Fatalf("ConversationHistory failed: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("history total after turn = %d, want 2", page.Total)
	}
	if page.Entries[0].Sender != database.SenderAI || page.Entries[0].Message != "the answer is 42" {
		t.Errorf("newest entry = (%s, %q), want AI reply", page.Entries[0].Sender, page.Entries[0].Message)
	}
	if page.Entries[1].Sender != database.SenderUser {
		t.Errorf("older entry sender = %s, want USER", page.Entries[1].Sender)
	}
}

func TestTurnFailedInferenceKeepsInboundOnly(t *testing.T) {
	t.Parallel()

	responder := &fakeResponder{err: errors.New("model unavailable")}
	assembler, store := newTestAssembler(t, responder)
	ctx := context.Background()
	user := createUser(t, store, "fail-turn-user")

	_, err := assembler.Turn(ctx, convo.TurnParams{
		UserID:   user.ID,
		Message:  "hello?",
		Platform: platform.API,
	})
	if err == nil {
		t.Fatal("Turn with failing responder succeeded")
	}

	page, histErr := store.ConversationHistory(ctx, user.ID, nil, 10, 0)
	if histErr != nil {
		t.Fatalf("ConversationHistory failed: %v", histErr)
	}
	if page.Total != 1 {
		t.Fatalf("history total after failed turn = %d, want 1", page.Total)
	}
	if page.Entries[0].Sender != database.SenderUser {
		t.Errorf("surviving entry sender = %s, want USER", page.Entries[0].Sender)
	}
}

func TestTurnWithoutResponder(t *testing.T) {
	t.Parallel()

	assembler, store := newTestAssembler(t, nil)
	user := createUser(t, store, "no-responder-user")

	_, err := assembler.Turn(context.Background(), convo.TurnParams{
		UserID:   user.ID,
		Message:  "anyone there",
		Platform: platform.API,
	})
	if err == nil {
		t.Fatal("Turn without responder succeeded")
	}
}
