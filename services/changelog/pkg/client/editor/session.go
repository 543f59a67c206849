// Golang port of CodeLive
// Copyright (C) 2025-2026 Jakob Ackermann <das7pad@outlook.com>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package editor

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/das7pad/codelive/pkg/pendingOperation"
	"github.com/das7pad/codelive/pkg/sharedTypes"
)

const (
	DefaultPollInterval   = 200 * time.Millisecond
	DefaultReloadInterval = 2 * time.Minute
)

type SessionOptions struct {
	DocId sharedTypes.UUID
	// UserId is the local user, matching the identity the transport
	// authenticates as. The reconciler uses it to skip own operations
	// coming back through the poll.
	UserId    sharedTypes.UUID
	Transport Transport
	Buffer    Buffer
	ReadOnly  bool

	// PollInterval is the fast tick asking for new operations.
	PollInterval time.Duration
	// ReloadInterval is the slow self-healing full snapshot fetch.
	ReloadInterval time.Duration
}

// Session drives one clients view of one document: a fast poll loop feeding
// the reconciler in order, and a slow full reload as safety net. Create one
// per open document and cancel its context on navigate away.
type Session struct {
	options    SessionOptions
	reconciler *Reconciler
}

func NewSession(o SessionOptions) *Session {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.ReloadInterval <= 0 {
		o.ReloadInterval = DefaultReloadInterval
	}
	return &Session{
		options: o,
		reconciler: NewReconciler(
			o.DocId, o.UserId, o.Transport, o.Buffer, o.ReadOnly,
		),
	}
}

// Reconciler exposes the sessions reconciler for wiring up widget callbacks.
func (s *Session) Reconciler() *Reconciler {
	return s.reconciler
}

// Run loads the initial snapshot and polls until ctx is cancelled. Transport
// failures are retried on the next tick, the initial load included; a batch
// of polled operations is always applied in full before cancellation takes
// effect.
func (s *Session) Run(ctx context.Context) error {
	for {
		err := s.reload(ctx)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return err
		}
		log.Printf("%s: initial load: %s", s.options.DocId, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.options.PollInterval):
		}
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		s.pollLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		s.reloadLoop(ctx)
		return nil
	})
	return eg.Wait()
}

func (s *Session) pollLoop(ctx context.Context) {
	t := time.NewTicker(s.options.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		batch := pendingOperation.TrackOperation(func() error {
			return s.pollOnce(ctx)
		})
		select {
		case <-batch.Done():
		case <-ctx.Done():
			// Let the in-flight batch finish, then stop.
			<-batch.Done()
			return
		}
		if err := batch.Err(); err != nil {
			if err == ErrDiverged {
				if err = s.reload(ctx); err == nil {
					continue
				}
			}
			if ctx.Err() != nil {
				return
			}
			// Missing a tick is only a delay, not an error.
			log.Printf("%s: poll: %s", s.options.DocId, err)
		}
	}
}

func (s *Session) pollOnce(ctx context.Context) error {
	ops, err := s.options.Transport.ReadOperationsSince(
		ctx, s.options.DocId, s.reconciler.LastSeen(),
	)
	if err != nil {
		return err
	}
	for _, op := range ops {
		if err = s.reconciler.ApplyRemote(op); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) reloadLoop(ctx context.Context) {
	t := time.NewTicker(s.options.ReloadInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if err := s.reload(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("%s: reload: %s", s.options.DocId, err)
		}
	}
}

func (s *Session) reload(ctx context.Context) error {
	snapshot, seq, err := s.options.Transport.MaterializeDocument(
		ctx, s.options.DocId,
	)
	if err != nil {
		return err
	}
	if seq == s.reconciler.LastSeen() {
		current := s.options.Buffer.Lines().ToSnapshot()
		if current.Hash() == snapshot.Hash() {
			return nil
		}
	}
	s.reconciler.ResetTo(snapshot, seq)
	return nil
}
