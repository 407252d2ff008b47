// Package groups resolves group platform identifiers to durable group
// records and manages membership lifecycle.
package groups

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/convocore/convocore/internal/database"
	apperrors "github.com/convocore/convocore/internal/errors"
	"github.com/convocore/convocore/internal/platform"
)

// groupColumn maps a platform to its groups-table identifier column.
// Only whatsapp and telegram have group forms.
var groupColumn = map[platform.Platform]string{
	platform.WhatsApp: database.ColumnWhatsAppID,
	platform.Telegram: database.ColumnTelegramID,
}

// Resolver turns group platform identifiers into one group and keeps
// membership rows consistent.
type Resolver struct {
	store  database.Store
	logger *slog.Logger
}

// NewResolver creates a group resolver.
func NewResolver(store database.Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:  store,
		logger: logger.With("component", "group_resolver"),
	}
}

func validate(platformIDs map[platform.Platform]string) error {
	nonEmpty := 0
	for p, id := range platformIDs {
		if id == "" {
			continue
		}
		if _, ok := groupColumn[p]; !ok {
			return apperrors.NewValidationError(fmt.Sprintf("platform %s has no groups", p), nil)
		}
		if err := platform.ValidateGroupID(p, id); err != nil {
			return err
		}
		nonEmpty++
	}
	if nonEmpty == 0 {
		return apperrors.NewValidationError("at least one group platform identifier is required", nil)
	}
	return nil
}

// Resolve maps group platform identifiers to exactly one group, creating
// it on first sighting. name may be empty; the group stays addressable by
// its platform identifiers. Mirrors the identity resolver: fixed priority
// probe, first match wins, create races recovered by re-reading the
// winner.
func (r *Resolver) Resolve(ctx context.Context, platformIDs map[platform.Platform]string, name, description string) (*database.Group, error) {
	if err := validate(platformIDs); err != nil {
		return nil, err
	}

	for _, p := range platform.GroupPlatforms() {
		id := platformIDs[p]
		if id == "" {
			continue
		}
		group, err := r.store.GetGroupByPlatformID(ctx, groupColumn[p], id)
		if err != nil {
			return nil, err
		}
		if group != nil {
			r.logger.DebugContext(ctx, "Resolved existing group", "group_id", group.ID, "via", p)
			return group, nil
		}
	}

	group := &database.Group{Name: name}
	if description != "" {
		group.Description = sql.NullString{String: description, Valid: true}
	}
	if id := platformIDs[platform.WhatsApp]; id != "" {
		group.WhatsAppID = sql.NullString{String: id, Valid: true}
	}
	if id := platformIDs[platform.Telegram]; id != "" {
		group.TelegramID = sql.NullString{String: id, Valid: true}
	}

	err := r.store.CreateGroup(ctx, group)
	if err == nil {
		r.logger.InfoContext(ctx, "Created new group", "group_id", group.ID, "name", name)
		return group, nil
	}
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		return nil, err
	}

	r.logger.DebugContext(ctx, "Group create raced, re-reading winner")
	for _, p := range platform.GroupPlatforms() {
		id := platformIDs[p]
		if id == "" {
			continue
		}
		winner, lookupErr := r.store.GetGroupByPlatformID(ctx, groupColumn[p], id)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if winner != nil {
			return winner, nil
		}
	}
	return nil, apperrors.NewStorageError("group create conflicted but no winner found on re-read", err)
}

// EnsureMembership guarantees an active membership row for (user, group).
// When none exists one is created with the given role (RoleMember when
// empty — the only automatic assignment). A race with a concurrent ensure
// is recovered by re-reading the active row.
func (r *Resolver) EnsureMembership(ctx context.Context, userID, groupID string, role database.MemberRole) (*database.GroupMember, error) {
	if userID == "" || groupID == "" {
		return nil, apperrors.NewValidationError("user and group ids are required", nil)
	}

	member, err := r.store.GetActiveMembership(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	if member != nil {
		return member, nil
	}

	// Referential check up front so a missing user/group is a clean
	// client error rather than a raw FK failure.
	user, err := r.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("user %s does not exist", userID), nil)
	}
	group, err := r.store.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("group %s does not exist", groupID), nil)
	}

	if role == "" {
		role = database.RoleMember
	}
	member = &database.GroupMember{UserID: userID, GroupID: groupID, Role: role}
	err = r.store.CreateMembership(ctx, member)
	if err == nil {
		r.logger.InfoContext(ctx, "Membership created",
			"user_id", userID, "group_id", groupID, "role", role)
		return member, nil
	}
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		return nil, err
	}

	// Concurrent ensure won; return its row.
	winner, lookupErr := r.store.GetActiveMembership(ctx, userID, groupID)
	if lookupErr != nil {
		return nil, lookupErr
	}
	if winner == nil {
		return nil, apperrors.NewStorageError("membership create conflicted but no active row found on re-read", err)
	}
	return winner, nil
}

// Leave closes the user's active membership in the group. Rejoining later
// creates a fresh row, preserving the membership history.
func (r *Resolver) Leave(ctx context.Context, userID, groupID string) error {
	closed, err := r.store.CloseMembership(ctx, userID, groupID)
	if err != nil {
		return err
	}
	if !closed {
		return apperrors.NewNotFoundError(
			fmt.Sprintf("no active membership for user %s in group %s", userID, groupID), nil)
	}
	r.logger.InfoContext(ctx, "Membership closed", "user_id", userID, "group_id", groupID)
	return nil
}

// Deactivate soft-deactivates a group; history and memberships remain.
func (r *Resolver) Deactivate(ctx context.Context, groupID string) error {
	return r.store.DeactivateGroup(ctx, groupID)
}
