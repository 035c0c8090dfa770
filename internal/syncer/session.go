package syncer

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is one in-flight sync run. It owns the cancel func of the upstream
// fetches and lives from the start of Run until it returns.
type Session struct {
	ID        string
	StartedAt time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	products map[int64]productInfo
}

type productInfo struct {
	permalink string
	imageURL  string
}

func newSession(parent context.Context, now time.Time) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: now,
		ctx:       ctx,
		cancel:    cancel,
		products:  map[int64]productInfo{},
	}
}

// Upstream is the context every call to the shop runs under.
func (s *Session) Upstream() context.Context { return s.ctx }

func (s *Session) Cancel() { s.cancel() }

func (s *Session) Cancelled() bool { return s.ctx.Err() != nil }
