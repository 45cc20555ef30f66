package server

import (
	"context"
	"errors"

	"github.com/lotas/readlater/internal/applog"
	"github.com/lotas/readlater/internal/pages"
	"github.com/lotas/readlater/internal/types"
)

// ExternalSaver saves pages sent by the extension.
type ExternalSaver interface {
	ExternalSave(ctx context.Context, rawURL, title, favicon string) (types.Page, error)
}

// SessionInjector applies a session string handed over by the extension.
type SessionInjector func(ctx context.Context, blob string) error

// Dispatcher processes bridge messages one at a time.
type Dispatcher struct {
	Bridge *Bridge
	Saver  ExternalSaver
	Inject SessionInjector // nil ignores injected sessions
}

// Run handles messages until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-d.Bridge.Messages():
			d.Handle(ctx, msg)
		}
	}
}

// Handle processes one message and replies on its connection.
func (d *Dispatcher) Handle(ctx context.Context, msg IncomingMsg) {
	var out OutgoingMsg
	switch msg.Type {
	case TypeSaveRequest:
		out = d.save(ctx, msg)
	case TypeInjectSession:
		if msg.SessionStr == "" {
			return
		}
		out = OutgoingMsg{Type: TypeSessionApplied}
		if d.Inject != nil {
			if err := d.Inject(ctx, msg.SessionStr); err != nil {
				applog.Error("bridge.inject", err)
				out.Error = err.Error()
			}
		}
	default:
		applog.Debug("bridge.unknown", "type", msg.Type)
		return
	}
	if err := d.Bridge.Reply(msg, out); err != nil {
		applog.Error("bridge.reply", err, "type", out.Type)
	}
}

func (d *Dispatcher) save(ctx context.Context, msg IncomingMsg) OutgoingMsg {
	out := OutgoingMsg{Type: TypeSaved}
	req, err := ParseSaveRequest(msg)
	if err != nil {
		applog.Error("bridge.save_payload", err)
		out.Notice = pages.NoticeFailed
		return out
	}
	p, err := d.Saver.ExternalSave(ctx, req.URL, req.Title, req.Favicon)
	switch {
	case errors.Is(err, pages.ErrValidation):
		// nothing to save; the extension still gets its acknowledgement
	case err != nil:
		out.Notice = pages.Notice(err)
		if !errors.Is(err, pages.ErrDuplicate) {
			applog.Error("bridge.save", err, "url", req.URL)
		}
	default:
		out.Notice = pages.Notice(nil)
		applog.Info("bridge.saved", "id", p.ID)
	}
	return out
}
