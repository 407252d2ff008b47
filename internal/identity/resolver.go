// Package identity resolves sets of platform identifiers to exactly one
// durable user, creating the user on a genuine first sighting.
package identity

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/convocore/convocore/internal/database"
	apperrors "github.com/convocore/convocore/internal/errors"
	"github.com/convocore/convocore/internal/platform"
)

// userColumn maps a platform to its users-table identifier column.
var userColumn = map[platform.Platform]string{
	platform.WhatsApp: database.ColumnWhatsAppID,
	platform.Telegram: database.ColumnTelegramID,
	platform.API:      database.ColumnAPIID,
}

// Cache is an optional advisory read-through cache for platform-id →
// user-id lookups. It must never be treated as authoritative: misses and
// errors always fall through to the store, and create paths bypass it.
type Cache interface {
	GetUserID(ctx context.Context, column, platformID string) (string, bool)
	SetUserID(ctx context.Context, column, platformID, userID string)
}

// Resolver turns candidate platform identifiers into one user.
type Resolver struct {
	store  database.Store
	cache  Cache
	logger *slog.Logger
}

// NewResolver creates an identity resolver. cache may be nil.
func NewResolver(store database.Store, cache Cache, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:  store,
		cache:  cache,
		logger: logger.With("component", "identity_resolver"),
	}
}

// validate checks the candidate set before any store access: at least one
// entry, and every present identifier well-formed for its platform.
func validate(candidates map[platform.Platform]string) error {
	if len(candidates) == 0 {
		return apperrors.NewValidationError("at least one platform identifier is required", nil)
	}
	nonEmpty := 0
	for p, id := range candidates {
		if id == "" {
			continue
		}
		if err := platform.ValidateUserID(p, id); err != nil {
			return err
		}
		nonEmpty++
	}
	if nonEmpty == 0 {
		return apperrors.NewValidationError("at least one platform identifier must be non-empty", nil)
	}
	return nil
}

// Resolve maps a candidate identifier set to exactly one user.
//
// Platforms are probed in the fixed priority order (whatsapp, telegram,
// api); the first match wins. A secondary candidate owned by a different
// existing user is an identity conflict and nothing is written. When no
// candidate matches, a new user is created with every provided slot; a
// create that loses a race to a concurrent identical create is recovered
// by re-reading the winner, so resolution is idempotent.
func (r *Resolver) Resolve(ctx context.Context, candidates map[platform.Platform]string) (*database.User, error) {
	if err := validate(candidates); err != nil {
		return nil, err
	}

	var (
		matched    *database.User
		matchedVia platform.Platform
	)
	for _, p := range platform.ResolutionOrder() {
		id := candidates[p]
		if id == "" {
			continue
		}
		user, err := r.lookup(ctx, p, id)
		if err != nil {
			return nil, err
		}
		if user == nil {
			continue
		}
		if matched == nil {
			matched = user
			matchedVia = p
			continue
		}
		if user.ID != matched.ID {
			r.logger.WarnContext(ctx, "Identity conflict between candidate identifiers",
				"primary_platform", matchedVia, "conflicting_platform", p,
				"primary_user", matched.ID, "conflicting_user", user.ID)
			return nil, apperrors.NewIdentityConflictError(fmt.Sprintf(
				"identifiers resolve to different users (%s via %s, %s via %s)",
				matched.ID, matchedVia, user.ID, p))
		}
	}

	if matched != nil {
		// A candidate nobody owns can fill a previously-empty slot on the
		// matched user; a slot that is already set is never reassigned.
		for _, p := range platform.ResolutionOrder() {
			id := candidates[p]
			column := userColumn[p]
			if id == "" || matched.PlatformID(column) != "" {
				continue
			}
			if err := r.store.SetUserPlatformID(ctx, matched.ID, column, id); err != nil {
				if apperrors.HasCode(err, apperrors.CodeConflict) {
					// Someone claimed the identifier concurrently; the
					// next resolution of that identifier finds its owner.
					continue
				}
				return nil, err
			}
		}
		if err := r.store.TouchUser(ctx, matched.ID); err != nil {
			return nil, err
		}
		r.logger.DebugContext(ctx, "Resolved existing user", "user_id", matched.ID, "via", matchedVia)
		return matched, nil
	}

	return r.create(ctx, candidates)
}

// lookup probes cache then store for one platform identifier.
func (r *Resolver) lookup(ctx context.Context, p platform.Platform, id string) (*database.User, error) {
	column := userColumn[p]

	if r.cache != nil {
		if userID, ok := r.cache.GetUserID(ctx, column, id); ok {
			user, err := r.store.GetUserByID(ctx, userID)
			if err != nil {
				return nil, err
			}
			// A stale cache entry falls through to the real lookup.
			if user != nil && user.PlatformID(column) == id {
				return user, nil
			}
		}
	}

	user, err := r.store.GetUserByPlatformID(ctx, column, id)
	if err != nil {
		return nil, err
	}
	if user != nil && r.cache != nil {
		r.cache.SetUserID(ctx, column, id, user.ID)
	}
	return user, nil
}

// create inserts a new user carrying every provided identifier slot,
// recovering a lost create race by re-reading the winning row.
func (r *Resolver) create(ctx context.Context, candidates map[platform.Platform]string) (*database.User, error) {
	user := &database.User{}
	if id := candidates[platform.WhatsApp]; id != "" {
		user.WhatsAppID = sql.NullString{String: id, Valid: true}
	}
	if id := candidates[platform.Telegram]; id != "" {
		user.TelegramID = sql.NullString{String: id, Valid: true}
	}
	if id := candidates[platform.API]; id != "" {
		user.APIID = sql.NullString{String: id, Valid: true}
	}

	err := r.store.CreateUser(ctx, user)
	if err == nil {
		r.logger.InfoContext(ctx, "Created new user", "user_id", user.ID)
		return user, nil
	}
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		return nil, err
	}

	// Lost the create race: some concurrent resolution inserted one of
	// these identifiers first. Re-read in priority order and return the
	// winner.
	r.logger.DebugContext(ctx, "User create raced, re-reading winner")
	for _, p := range platform.ResolutionOrder() {
		id := candidates[p]
		if id == "" {
			continue
		}
		winner, lookupErr := r.store.GetUserByPlatformID(ctx, userColumn[p], id)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if winner != nil {
			return winner, nil
		}
	}
	return nil, apperrors.NewStorageError("user create conflicted but no winner found on re-read", err)
}
