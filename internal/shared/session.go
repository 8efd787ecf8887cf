package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// FlashKind is the severity of a flash message.
type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashWarning FlashKind = "warning"
	FlashDanger  FlashKind = "danger"
)

// FlashMessage represents a one-time notification stored in session.
// Key is a stable identifier of the message text.
type FlashMessage struct {
	Kind    FlashKind `json:"kind"`
	Key     string    `json:"key"`
	Message string    `json:"message"`
}

// SessionManager orchestrates cookie based sessions backed by Redis.
type SessionManager struct {
	client      *redis.Client
	cookieName  string
	ttl         time.Duration
	rememberTTL time.Duration
	secure      bool
}

// Session holds per-request session data.
type Session struct {
	ID         string
	values     map[string]string
	userID     string
	persistent bool
	flashes    []FlashMessage
	previousID string
	isNew      bool
	dirty      bool
	destroyed  bool
}

type sessionPayload struct {
	Values     map[string]string `json:"values"`
	UserID     string            `json:"user_id"`
	Persistent bool              `json:"persistent"`
	Flashes    []FlashMessage    `json:"flashes"`
}

// NewSessionManager constructs a SessionManager. Sessions marked persistent
// keep their cookie for rememberTTL; all others get a browser-session cookie.
func NewSessionManager(client *redis.Client, cookieName string, ttl, rememberTTL time.Duration, secure bool) *SessionManager {
	if rememberTTL < ttl {
		rememberTTL = ttl
	}
	return &SessionManager{
		client:      client,
		cookieName:  cookieName,
		ttl:         ttl,
		rememberTTL: rememberTTL,
		secure:      secure,
	}
}

// Load loads the session referenced by the request cookie or starts a new one.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return newSession(), nil
		}
		return nil, err
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Unknown or expired id: never adopt a client supplied identifier.
			return newSession(), nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}
	sess := &Session{
		ID:         cookie.Value,
		values:     stored.Values,
		userID:     stored.UserID,
		persistent: stored.Persistent,
		flashes:    stored.Flashes,
	}
	if sess.values == nil {
		sess.values = make(map[string]string)
	}
	return sess, nil
}

// Commit persists the session and writes cookie headers as needed.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.previousID != "" {
		if err := sm.client.Del(ctx, sm.redisKey(sess.previousID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		sess.previousID = ""
	}

	if sess.destroyed {
		if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteLaxMode,
		})
		return nil
	}

	if !sess.dirty && !sess.isNew {
		return nil
	}

	ttl := sm.ttl
	if sess.persistent {
		ttl = sm.rememberTTL
	}
	data, err := json.Marshal(sessionPayload{
		Values:     sess.values,
		UserID:     sess.userID,
		Persistent: sess.persistent,
		Flashes:    sess.flashes,
	})
	if err != nil {
		return err
	}
	if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, ttl).Err(); err != nil {
		return err
	}
	sess.dirty = false
	sess.isNew = false

	cookie := &http.Cookie{
		Name:     sm.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if sess.persistent {
		cookie.Expires = time.Now().Add(ttl)
	}
	http.SetCookie(w, cookie)
	return nil
}

// Destroy marks the session for deletion.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.destroyed = true
}

// TTL exposes the lifetime of a non persistent session.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// RememberTTL exposes the lifetime of a persistent session.
func (sm *SessionManager) RememberTTL() time.Duration {
	return sm.rememberTTL
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	if s.values == nil {
		return ""
	}
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if s.values == nil {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// SetUser associates the session with a user ID.
func (s *Session) SetUser(id string) {
	s.userID = id
	s.dirty = true
}

// User returns the current user ID, empty for anonymous sessions.
func (s *Session) User() string {
	return s.userID
}

// SetPersistent controls whether the cookie outlives the browser session.
func (s *Session) SetPersistent(persistent bool) {
	s.persistent = persistent
	s.dirty = true
}

// Persistent reports whether the session is remembered.
func (s *Session) Persistent() bool {
	return s.persistent
}

// Regenerate issues a fresh identifier and drops the old one on commit.
// Call it whenever the privilege level of the session changes.
func (s *Session) Regenerate() {
	if !s.isNew && s.previousID == "" {
		s.previousID = s.ID
	}
	s.ID = generateSessionID()
	s.isNew = true
	s.dirty = true
}

// AddFlash queues a flash message.
func (s *Session) AddFlash(msg FlashMessage) {
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlash retrieves and clears the oldest flash message.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.dirty = true
	return &msg
}

// Flashes returns queued messages without consuming them.
func (s *Session) Flashes() []FlashMessage {
	out := make([]FlashMessage, len(s.flashes))
	copy(out, s.flashes)
	return out
}

func newSession() *Session {
	return &Session{
		ID:     generateSessionID(),
		values: make(map[string]string),
		isNew:  true,
		dirty:  true,
	}
}

func (sm *SessionManager) redisKey(id string) string {
	return "session:" + id
}

func generateSessionID() string {
	return uuid.NewString()
}
