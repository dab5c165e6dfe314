package play

import (
	"context"
	"sync"
	"time"

	"github.com/ashureev/find-my-heart/internal/domain"
)

type fakeRepo struct {
	mu       sync.Mutex
	players  map[string]*domain.Player
	revoked  map[string]domain.RevokedToken
	seen     map[string]time.Time
	purges   int
	purgeErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		players: make(map[string]*domain.Player),
		revoked: make(map[string]domain.RevokedToken),
		seen:    make(map[string]time.Time),
	}
}

func (f *fakeRepo) GetPlayer(_ context.Context, id string) (*domain.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.players[id]
	if p == nil {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) UpsertPlayer(_ context.Context, p *domain.Player) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.players[p.PlayerID] = &cp
	return nil
}

func (f *fakeRepo) UpdateLastSeen(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen[id] = at
	return nil
}

func (f *fakeRepo) RevokeToken(_ context.Context, tok domain.RevokedToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[tok.TokenID] = tok
	return nil
}

func (f *fakeRepo) IsTokenRevoked(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.revoked[id]
	return ok, nil
}

func (f *fakeRepo) PurgeExpiredRevocations(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purges++
	if f.purgeErr != nil {
		return 0, f.purgeErr
	}
	var n int64
	for id, tok := range f.revoked {
		if !tok.ExpiresAt.After(now) {
			delete(f.revoked, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) Ping(_ context.Context) error { return nil }
func (f *fakeRepo) Close() error                 { return nil }

func (f *fakeRepo) revokedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.revoked)
}

func (f *fakeRepo) purgeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.purges
}

func (f *fakeRepo) seenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}
