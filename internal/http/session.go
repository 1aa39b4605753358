package http

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"expenses/internal/dashboard"
	"expenses/internal/log"
)

const sessionCookie = "expenses_session"

// session is one browser's dashboard. A pending delete is shown once as a
// confirmation dialog whose buttons repeat the request with confirm=yes|no.
type session struct {
	id    string
	ctrl  *dashboard.Controller
	inbox *dashboard.Inbox

	mu      sync.Mutex
	pending *pendingDelete
}

type pendingDelete struct {
	Prompt string
	Action string
}

func (s *session) setPending(p *pendingDelete) {
	s.mu.Lock()
	s.pending = p
	s.mu.Unlock()
}

func (s *session) takePending() *pendingDelete {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pending
	s.pending = nil
	return p
}

// session returns the caller's session, creating and loading a new one when
// the cookie is missing or its session has expired.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := s.sessions.Get(c.Value); ok {
			return sess
		}
	}

	id := uuid.NewString()
	logger := s.logger.WithComponent(log.ComponentSession).With(log.FieldSessionID, id)
	inbox := &dashboard.Inbox{}
	sess := &session{
		id:    id,
		inbox: inbox,
		ctrl: dashboard.New(s.backend,
			dashboard.WithNotifier(inbox),
			dashboard.WithLogger(logger),
			dashboard.WithClock(s.now),
		),
	}
	s.sessions.Set(id, sess)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.StartTimeout)
	defer cancel()
	_ = sess.ctrl.Start(ctx)
	logger.InfoContext(r.Context(), "Session started")
	return sess
}
