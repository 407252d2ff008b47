package identity_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/convocore/convocore/internal/database"
	apperrors "github.com/convocore/convocore/internal/errors"
	"github.com/convocore/convocore/internal/identity"
	"github.com/convocore/convocore/internal/platform"
)

func newTestResolver(t *testing.T) (*identity.Resolver, database.Store) {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "identity.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	store := database.NewStore(db, nil)
	return identity.NewResolver(store, nil, nil), store
}

func TestResolveValidation(t *testing.T) {
	t.Parallel()

	resolver, _ := newTestResolver(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		candidates map[platform.Platform]string
	}{
		{name: "empty set", candidates: map[platform.Platform]string{}},
		{name: "all empty values", candidates: map[platform.Platform]string{platform.API: ""}},
		{name: "malformed whatsapp", candidates: map[platform.Platform]string{platform.WhatsApp: "12345"}},
		{name: "malformed telegram", candidates: map[platform.Platform]string{platform.Telegram: "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := resolver.Resolve(ctx, tt.candidates)
			if !apperrors.HasCode(err, apperrors.CodeValidation) {
				t.Errorf("Resolve error code = %q, want %q", apperrors.Code(err), apperrors.CodeValidation)
			}
		})
	}
}

func TestResolveCreatesThenFinds(t *testing.T) {
	t.Parallel()

	resolver, _ := newTestResolver(t)
	ctx := context.Background()

	candidates := map[platform.Platform]string{platform.API: "client-42"}

	created, err := resolver.Resolve(ctx, candidates)
	if err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}
	if created.APIID.String != "client-42" {
		t.Fatalf("created user api id = %q, want %q", created.APIID.String, "client-42")
	}

	found, err := resolver.Resolve(ctx, candidates)
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("second Resolve returned %q, want same user %q", found.ID, created.ID)
	}
}

func TestResolvePriorityOrder(t *testing.T) {
	t.Parallel()

	resolver, _ := newTestResolver(t)
	ctx := context.Background()

	// One user anchored on whatsapp, a different one on telegram.
	waUser, err := resolver.Resolve(ctx, map[platform.Platform]string{
		platform.WhatsApp: platform.WhatsAppUserID("5511888887777"),
	})
	if err != nil {
		t.Fatalf("whatsapp Resolve failed: %v", err)
	}
	tgUser, err := resolver.Resolve(ctx, map[platform.Platform]string{
		platform.Telegram: "987654",
	})
	if err != nil {
		t.Fatalf("telegram Resolve failed: %v", err)
	}

	if waUser.ID == tgUser.ID {
		t.Fatal("distinct anchors resolved to the same user")
	}

	// Both identifiers together is a conflict, whoever is listed first.
	_, err = resolver.Resolve(ctx, map[platform.Platform]string{
		platform.WhatsApp: platform.WhatsAppUserID("5511888887777"),
		platform.Telegram: "987654",
	})
	if !apperrors.HasCode(err, apperrors.CodeIdentityConflict) {
		t.Errorf("conflicting Resolve error code = %q, want %q",
			apperrors.Code(err), apperrors.CodeIdentityConflict)
	}
}

func TestResolveConflictWritesNothing(t *testing.T) {
	t.Parallel()

	resolver, store := newTestResolver(t)
	ctx := context.Background()

	a, err := resolver.Resolve(ctx, map[platform.Platform]string{platform.API: "left"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	b, err := resolver.Resolve(ctx, map[platform.Platform]string{platform.Telegram: "5005005"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	_, err = resolver.Resolve(ctx, map[platform.Platform]string{
		platform.Telegram: "5005005",
		platform.API:      "left",
	})
	if !apperrors.HasCode(err, apperrors.CodeIdentityConflict) {
		t.Fatalf("Resolve error code = %q, want %q", apperrors.Code(err), apperrors.CodeIdentityConflict)
	}

	// Neither record changed.
	gotA, err := store.GetUserByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if gotA.TelegramID.Valid {
		t.Error("conflict leaked a telegram id onto the api-anchored user")
	}
	gotB, err := store.GetUserByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if gotB.APIID.Valid {
		t.Error("conflict leaked an api id onto the telegram-anchored user")
	}
}

func TestResolveFillsEmptySlot(t *testing.T) {
	t.Parallel()

	resolver, store := newTestResolver(t)
	ctx := context.Background()

	created, err := resolver.Resolve(ctx, map[platform.Platform]string{platform.Telegram: "314159"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Seen again with an additional, unowned api identifier: the empty
	// slot fills in on the same user.
	again, err := resolver.Resolve(ctx, map[platform.Platform]string{
		platform.Telegram: "314159",
		platform.API:      "fresh-api-id",
	})
	if err != nil {
		t.Fatalf("Resolve with extra slot failed: %v", err)
	}
	if again.ID != created.ID {
		t.Fatalf("Resolve returned %q, want same user %q", again.ID, created.ID)
	}

	got, err := store.GetUserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if got.APIID.String != "fresh-api-id" {
		t.Errorf("api slot = %q, want %q", got.APIID.String, "fresh-api-id")
	}

	// But the filled slot stays put on later sightings.
	byAPI, err := resolver.Resolve(ctx, map[platform.Platform]string{platform.API: "fresh-api-id"})
	if err != nil {
		t.Fatalf("Resolve by filled slot failed: %v", err)
	}
	if byAPI.ID != created.ID {
		t.Errorf("Resolve by filled slot returned %q, want %q", byAPI.ID, created.ID)
	}
}

func TestResolveConcurrentSameIdentifier(t *testing.T) {
	t.Parallel()

	resolver, store := newTestResolver(t)
	ctx := context.Background()

	const workers = 10
	results := make([]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user, err := resolver.Resolve(ctx, map[platform.Platform]string{platform.API: "racer"})
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = user.ID
		}(i)
	}
	wg.Wait()

	var winner string
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d failed: %v", i, errs[i])
		}
		if winner == "" {
			winner = results[i]
		}
		if results[i] != winner {
			t.Fatalf("worker %d resolved %q, want %q", i, results[i], winner)
		}
	}

	// Exactly one row exists for the identifier.
	user, err := store.GetUserByPlatformID(ctx, database.ColumnAPIID, "racer")
	if err != nil {
		t.Fatalf("GetUserByPlatformID failed: %v", err)
	}
	if user == nil || user.ID != winner {
		t.Fatalf("stored user = %+v, want id %q", user, winner)
	}
}
