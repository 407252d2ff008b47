package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apperrors "github.com/convocore/convocore/internal/errors"
)

// User platform identifier columns, in resolution priority order.
// Group platform columns are the same minus api_id.
const (
	ColumnWhatsAppID = "whatsapp_id"
	ColumnTelegramID = "telegram_id"
	ColumnAPIID      = "api_id"
)

// DefaultHistoryLimit is used when a caller passes a non-positive limit to
// a history read. MaxHistoryLimit caps every history read.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// Store defines the interface for database operations. Methods accept
// context.Context for cancellation and timeouts. Lookup methods return
// (nil, nil) when no row matches.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// CreateUser inserts a new user row. A unique-identifier collision
	// with a concurrent create surfaces as a CONFLICT error for the
	// resolver to recover from.
	CreateUser(ctx context.Context, user *User) error

	// GetUserByID retrieves a user by primary id.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByPlatformID retrieves a user by one platform identifier
	// column (ColumnWhatsAppID, ColumnTelegramID, ColumnAPIID).
	GetUserByPlatformID(ctx context.Context, column, platformID string) (*User, error)

	// TouchUser bumps the user's updated_at ("last seen") timestamp.
	TouchUser(ctx context.Context, id string) error

	// SetUserPlatformID fills a previously-empty platform identifier slot.
	// It never overwrites: the update is a no-op unless the slot is NULL.
	SetUserPlatformID(ctx context.Context, id, column, platformID string) error

	// CreateGroup inserts a new group row; collisions surface as CONFLICT.
	CreateGroup(ctx context.Context, group *Group) error

	// GetGroupByID retrieves a group by primary id.
	GetGroupByID(ctx context.Context, id string) (*Group, error)

	// GetGroupByPlatformID retrieves a group by one platform identifier
	// column (ColumnWhatsAppID, ColumnTelegramID).
	GetGroupByPlatformID(ctx context.Context, column, platformID string) (*Group, error)

	// DeactivateGroup clears the group's active flag. Groups are never
	// hard-deleted.
	DeactivateGroup(ctx context.Context, id string) error

	// CreateMembership inserts a membership row. An existing active row
	// for the same (user, group) surfaces as CONFLICT via the partial
	// unique index.
	CreateMembership(ctx context.Context, member *GroupMember) error

	// GetActiveMembership retrieves the single active membership for
	// (user, group), or (nil, nil).
	GetActiveMembership(ctx context.Context, userID, groupID string) (*GroupMember, error)

	// CloseMembership sets left_at on the active membership row. Returns
	// false when there was no active row to close.
	CloseMembership(ctx context.Context, userID, groupID string) (bool, error)

	// ListMemberships returns every membership row for (user, group),
	// active and closed, oldest first.
	ListMemberships(ctx context.Context, userID, groupID string) ([]GroupMember, error)

	// AppendConversation inserts one immutable conversation entry after
	// verifying the referenced user (and group, if scoped) exist.
	AppendConversation(ctx context.Context, entry *Conversation) error

	// ConversationHistory reads one page of a user's history, newest
	// first. groupID nil selects only private (NULL group) rows; a value
	// selects only rows of exactly that group.
	ConversationHistory(ctx context.Context, userID string, groupID *string, limit, offset int) (*HistoryPage, error)

	// GroupHistory reads one page of a group's history across all its
	// members, newest first. The group predicate is always pinned, so
	// private rows can never appear.
	GroupHistory(ctx context.Context, groupID string, limit, offset int) (*HistoryPage, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx. It requires
// a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

var userColumns = map[string]bool{
	ColumnWhatsAppID: true,
	ColumnTelegramID: true,
	ColumnAPIID:      true,
}

var groupColumns = map[string]bool{
	ColumnWhatsAppID: true,
	ColumnTelegramID: true,
}

// isUniqueViolation reports whether err is a SQLite unique-constraint
// failure, the signal that a create raced a concurrent create.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// wrapStorageErr classifies a driver error: context expiry and transport
// failures become STORAGE errors so the caller can retry with backoff.
func wrapStorageErr(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.NewStorageError(msg+" (timed out)", err)
	}
	return apperrors.NewStorageError(msg, err)
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return wrapStorageErr("database ping failed", err)
	}
	return nil
}

// CreateUser inserts a new user row.
func (s *sqlxStore) CreateUser(ctx context.Context, user *User) error {
	if user == nil {
		return apperrors.NewValidationError("cannot create nil user", nil)
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
        INSERT INTO users (id, whatsapp_id, telegram_id, api_id, created_at, updated_at)
        VALUES (:id, :whatsapp_id, :telegram_id, :api_id, :created_at, :updated_at);
    `
	if _, err := s.db.NamedExecContext(ctx, query, user); err != nil {
		if isUniqueViolation(err) {
			s.logger.DebugContext(ctx, "User create lost identifier race", "user_id", user.ID)
			return apperrors.NewConflictError("user identifier already exists", err)
		}
		s.logger.ErrorContext(ctx, "Error creating user", "user_id", user.ID, "error", err)
		return wrapStorageErr("failed to create user", err)
	}

	s.logger.DebugContext(ctx, "User created", "user_id", user.ID)
	return nil
}

// GetUserByID retrieves a user by primary id.
func (s *sqlxStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, apperrors.NewValidationError("user id cannot be empty", nil)
	}

	var user User
	err := s.db.GetContext(ctx, &user,
		`SELECT id, whatsapp_id, telegram_id, api_id, created_at, updated_at FROM users WHERE id = ?`, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user by id", "user_id", id, "error", err)
		return nil, wrapStorageErr(fmt.Sprintf("failed to get user %s", id), err)
	}
	return &user, nil
}

// GetUserByPlatformID retrieves a user by one platform identifier column.
func (s *sqlxStore) GetUserByPlatformID(ctx context.Context, column, platformID string) (*User, error) {
	if !userColumns[column] {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid user platform column %q", column), nil)
	}
	if platformID == "" {
		return nil, apperrors.NewValidationError("platform identifier cannot be empty", nil)
	}

	var user User
	query := fmt.Sprintf(
		`SELECT id, whatsapp_id, telegram_id, api_id, created_at, updated_at FROM users WHERE %s = ?`, column)
	err := s.db.GetContext(ctx, &user, query, platformID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user by platform id", "column", column, "error", err)
		return nil, wrapStorageErr("failed to get user by platform identifier", err)
	}
	return &user, nil
}

// TouchUser bumps the user's updated_at timestamp.
func (s *sqlxStore) TouchUser(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.NewValidationError("user id cannot be empty", nil)
	}
	_, err := s.db.ExecContext(ctx, `UPDATE users SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error touching user", "user_id", id, "error", err)
		return wrapStorageErr("failed to update user last-seen timestamp", err)
	}
	return nil
}

// SetUserPlatformID fills a previously-empty platform identifier slot.
func (s *sqlxStore) SetUserPlatformID(ctx context.Context, id, column, platformID string) error {
	if !userColumns[column] {
		return apperrors.NewValidationError(fmt.Sprintf("invalid user platform column %q", column), nil)
	}
	if id == "" || platformID == "" {
		return apperrors.NewValidationError("user id and platform identifier are required", nil)
	}

	// The IS NULL guard keeps a set slot from ever being reassigned.
	query := fmt.Sprintf(
		`UPDATE users SET %s = ?, updated_at = ? WHERE id = ? AND %s IS NULL`, column, column)
	_, err := s.db.ExecContext(ctx, query, platformID, time.Now().UTC(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("platform identifier already owned by another user", err)
		}
		s.logger.ErrorContext(ctx, "Error setting user platform id", "user_id", id, "column", column, "error", err)
		return wrapStorageErr("failed to set user platform identifier", err)
	}
	return nil
}

// CreateGroup inserts a new group row.
func (s *sqlxStore) CreateGroup(ctx context.Context, group *Group) error {
	if group == nil {
		return apperrors.NewValidationError("cannot create nil group", nil)
	}
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	group.CreatedAt = now
	group.UpdatedAt = now
	group.IsActive = true

	query := `
        INSERT INTO groups (id, whatsapp_id, telegram_id, name, description, is_active, created_at, updated_at)
        VALUES (:id, :whatsapp_id, :telegram_id, :name, :description, :is_active, :created_at, :updated_at);
    `
	if _, err := s.db.NamedExecContext(ctx, query, group); err != nil {
		if isUniqueViolation(err) {
			s.logger.DebugContext(ctx, "Group create lost identifier race", "group_id", group.ID)
			return apperrors.NewConflictError("group identifier already exists", err)
		}
		s.logger.ErrorContext(ctx, "Error creating group", "group_id", group.ID, "error", err)
		return wrapStorageErr("failed to create group", err)
	}

	s.logger.DebugContext(ctx, "Group created", "group_id", group.ID, "name", group.Name)
	return nil
}

// GetGroupByID retrieves a group by primary id.
func (s *sqlxStore) GetGroupByID(ctx context.Context, id string) (*Group, error) {
	if id == "" {
		return nil, apperrors.NewValidationError("group id cannot be empty", nil)
	}

	var group Group
	err := s.db.GetContext(ctx, &group,
		`SELECT id, whatsapp_id, telegram_id, name, description, is_active, created_at, updated_at
         FROM groups WHERE id = ?`, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting group by id", "group_id", id, "error", err)
		return nil, wrapStorageErr(fmt.Sprintf("failed to get group %s", id), err)
	}
	return &group, nil
}

// GetGroupByPlatformID retrieves a group by one platform identifier column.
func (s *sqlxStore) GetGroupByPlatformID(ctx context.Context, column, platformID string) (*Group, error) {
	if !groupColumns[column] {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid group platform column %q", column), nil)
	}
	if platformID == "" {
		return nil, apperrors.NewValidationError("platform identifier cannot be empty", nil)
	}

	var group Group
	query := fmt.Sprintf(
		`SELECT id, whatsapp_id, telegram_id, name, description, is_active, created_at, updated_at
         FROM groups WHERE %s = ?`, column)
	err := s.db.GetContext(ctx, &group, query, platformID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting group by platform id", "column", column, "error", err)
		return nil, wrapStorageErr("failed to get group by platform identifier", err)
	}
	return &group, nil
}

// DeactivateGroup clears the group's active flag.
func (s *sqlxStore) DeactivateGroup(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.NewValidationError("group id cannot be empty", nil)
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE groups SET is_active = 0, updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deactivating group", "group_id", id, "error", err)
		return wrapStorageErr("failed to deactivate group", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("group %s does not exist", id), nil)
	}
	s.logger.InfoContext(ctx, "Group deactivated", "group_id", id)
	return nil
}

// CreateMembership inserts a membership row.
func (s *sqlxStore) CreateMembership(ctx context.Context, member *GroupMember) error {
	if member == nil {
		return apperrors.NewValidationError("cannot create nil membership", nil)
	}
	if member.UserID == "" || member.GroupID == "" {
		return apperrors.NewValidationError("membership requires user and group ids", nil)
	}
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	if member.Role == "" {
		member.Role = RoleMember
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO group_members (id, user_id, group_id, role, joined_at, left_at)
        VALUES (:id, :user_id, :group_id, :role, :joined_at, :left_at);
    `
	if _, err := s.db.NamedExecContext(ctx, query, member); err != nil {
		if isUniqueViolation(err) {
			s.logger.DebugContext(ctx, "Membership create lost race",
				"user_id", member.UserID, "group_id", member.GroupID)
			return apperrors.NewConflictError("active membership already exists", err)
		}
		s.logger.ErrorContext(ctx, "Error creating membership",
			"user_id", member.UserID, "group_id", member.GroupID, "error", err)
		return wrapStorageErr("failed to create membership", err)
	}

	s.logger.DebugContext(ctx, "Membership created",
		"user_id", member.UserID, "group_id", member.GroupID, "role", member.Role)
	return nil
}

// GetActiveMembership retrieves the active membership for (user, group).
func (s *sqlxStore) GetActiveMembership(ctx context.Context, userID, groupID string) (*GroupMember, error) {
	if userID == "" || groupID == "" {
		return nil, apperrors.NewValidationError("user and group ids are required", nil)
	}

	var member GroupMember
	err := s.db.GetContext(ctx, &member,
		`SELECT id, user_id, group_id, role, joined_at, left_at
         FROM group_members
         WHERE user_id = ? AND group_id = ? AND left_at IS NULL`, userID, groupID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting active membership",
			"user_id", userID, "group_id", groupID, "error", err)
		return nil, wrapStorageErr("failed to get active membership", err)
	}
	return &member, nil
}

// CloseMembership sets left_at on the active membership row.
func (s *sqlxStore) CloseMembership(ctx context.Context, userID, groupID string) (bool, error) {
	if userID == "" || groupID == "" {
		return false, apperrors.NewValidationError("user and group ids are required", nil)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE group_members SET left_at = ?
         WHERE user_id = ? AND group_id = ? AND left_at IS NULL`,
		time.Now().UTC(), userID, groupID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error closing membership",
			"user_id", userID, "group_id", groupID, "error", err)
		return false, wrapStorageErr("failed to close membership", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, wrapStorageErr("failed to read close-membership result", err)
	}
	return affected > 0, nil
}

// ListMemberships returns every membership row for (user, group).
func (s *sqlxStore) ListMemberships(ctx context.Context, userID, groupID string) ([]GroupMember, error) {
	if userID == "" || groupID == "" {
		return nil, apperrors.NewValidationError("user and group ids are required", nil)
	}

	var members []GroupMember
	err := s.db.SelectContext(ctx, &members,
		`SELECT id, user_id, group_id, role, joined_at, left_at
         FROM group_members
         WHERE user_id = ? AND group_id = ?
         ORDER BY joined_at ASC`, userID, groupID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing memberships",
			"user_id", userID, "group_id", groupID, "error", err)
		return nil, wrapStorageErr("failed to list memberships", err)
	}
	return members, nil
}

// AppendConversation inserts one immutable conversation entry. The
// referenced user (and group, when scoped) are verified inside the same
// transaction so a failed reference never leaves a row behind.
func (s *sqlxStore) AppendConversation(ctx context.Context, entry *Conversation) error {
	if entry == nil {
		return apperrors.NewValidationError("cannot append nil conversation entry", nil)
	}
	if entry.UserID == "" {
		return apperrors.NewValidationError("conversation entry requires a user id", nil)
	}
	if entry.Message == "" {
		return apperrors.NewValidationError("conversation entry requires message text", nil)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.MessageType == "" {
		entry.MessageType = MessageTypeText
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for conversation append", "error", err)
		return wrapStorageErr("failed to begin transaction", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	var exists int
	err = tx.GetContext(ctx, &exists, `SELECT COUNT(1) FROM users WHERE id = ?`, entry.UserID)
	if err != nil {
		return wrapStorageErr("failed to verify conversation user", err)
	}
	if exists == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("user %s does not exist", entry.UserID), nil)
	}

	if entry.GroupID.Valid {
		err = tx.GetContext(ctx, &exists, `SELECT COUNT(1) FROM groups WHERE id = ?`, entry.GroupID.String)
		if err != nil {
			return wrapStorageErr("failed to verify conversation group", err)
		}
		if exists == 0 {
			return apperrors.NewNotFoundError(fmt.Sprintf("group %s does not exist", entry.GroupID.String), nil)
		}
	}

	query := `
        INSERT INTO conversations (id, user_id, group_id, message, sender, platform, message_type, context, timestamp)
        VALUES (:id, :user_id, :group_id, :message, :sender, :platform, :message_type, :context, :timestamp);
    `
	result, err := tx.NamedExecContext(ctx, query, entry)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error appending conversation entry",
			"user_id", entry.UserID, "error", err)
		return wrapStorageErr("failed to append conversation entry", err)
	}

	if seq, err := result.LastInsertId(); err == nil {
		entry.Seq = seq
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve sequence after appending entry",
			"user_id", entry.UserID, "error", err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit conversation append",
			"user_id", entry.UserID, "error", err)
		return wrapStorageErr("failed to commit transaction", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Conversation entry appended",
		"user_id", entry.UserID, "group_scoped", entry.GroupID.Valid, "entry_id", entry.ID)
	return nil
}

// clampHistoryWindow validates and bounds a (limit, offset) pair.
func clampHistoryWindow(limit, offset int) (int, int, error) {
	if limit <= 0 {
		return 0, 0, apperrors.NewValidationError("limit must be positive", nil)
	}
	if offset < 0 {
		return 0, 0, apperrors.NewValidationError("offset cannot be negative", nil)
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return limit, offset, nil
}

// ConversationHistory reads one page of a user's history, newest first.
func (s *sqlxStore) ConversationHistory(ctx context.Context, userID string, groupID *string, limit, offset int) (*HistoryPage, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user id cannot be empty", nil)
	}
	limit, offset, err := clampHistoryWindow(limit, offset)
	if err != nil {
		return nil, err
	}

	// The scope predicate is the isolation invariant: NULL selects only
	// private rows, a value only that group's rows. There is deliberately
	// no variant that skips the predicate.
	scope := `group_id IS NULL`
	args := []any{userID}
	if groupID != nil {
		scope = `group_id = ?`
		args = append(args, *groupID)
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(1) FROM conversations WHERE user_id = ? AND %s`, scope)
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		s.logger.ErrorContext(ctx, "Error counting conversation history", "user_id", userID, "error", err)
		return nil, wrapStorageErr("failed to count conversation history", err)
	}

	var entries []Conversation
	pageQuery := fmt.Sprintf(`
        SELECT id, seq, user_id, group_id, message, sender, platform, message_type, context, timestamp
        FROM conversations
        WHERE user_id = ? AND %s
        ORDER BY timestamp DESC, seq DESC
        LIMIT ? OFFSET ?;
    `, scope)
	pageArgs := append(args, limit, offset)
	if err := s.db.SelectContext(ctx, &entries, pageQuery, pageArgs...); err != nil {
		s.logger.ErrorContext(ctx, "Error reading conversation history", "user_id", userID, "error", err)
		return nil, wrapStorageErr("failed to read conversation history", err)
	}

	s.logger.DebugContext(ctx, "Conversation history read",
		"user_id", userID, "group_scoped", groupID != nil, "count", len(entries), "total", total)
	return &HistoryPage{
		Entries: entries,
		Total:   total,
		HasMore: offset+len(entries) < total,
	}, nil
}

// GroupHistory reads one page of a group's history across all members.
func (s *sqlxStore) GroupHistory(ctx context.Context, groupID string, limit, offset int) (*HistoryPage, error) {
	if groupID == "" {
		return nil, apperrors.NewValidationError("group id cannot be empty", nil)
	}
	limit, offset, err := clampHistoryWindow(limit, offset)
	if err != nil {
		return nil, err
	}

	var total int
	if err := s.db.GetContext(ctx, &total,
		`SELECT COUNT(1) FROM conversations WHERE group_id = ?`, groupID); err != nil {
		s.logger.ErrorContext(ctx, "Error counting group history", "group_id", groupID, "error", err)
		return nil, wrapStorageErr("failed to count group history", err)
	}

	var entries []Conversation
	err = s.db.SelectContext(ctx, &entries, `
        SELECT id, seq, user_id, group_id, message, sender, platform, message_type, context, timestamp
        FROM conversations
        WHERE group_id = ?
        ORDER BY timestamp DESC, seq DESC
        LIMIT ? OFFSET ?;
    `, groupID, limit, offset)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error reading group history", "group_id", groupID, "error", err)
		return nil, wrapStorageErr("failed to read group history", err)
	}

	return &HistoryPage{
		Entries: entries,
		Total:   total,
		HasMore: offset+len(entries) < total,
	}, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
