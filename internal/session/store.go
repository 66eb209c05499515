// Package session ties authenticated identities to browser requests.
//
// A Manager issues an opaque, random session ID, keeps the Identity for it in
// a Store and hands the browser a signed cookie carrying only the ID. On every
// request the Load middleware resolves the cookie back to an Identity and puts
// it on the request context. Anything that goes wrong along the way (no cookie,
// bad signature, expired or unknown session, store outage) leaves the request
// anonymous.
//
// LIFECYCLE OF A SESSION
//
//	login/register/Google callback
//	  └─ Manager.Establish   new ID → Store.Save(ID, Identity, ttl) → Set-Cookie
//	every request
//	  └─ Manager.Load        cookie → verify JWT → Store.Load(ID) → context
//	GET /logout
//	  └─ Manager.End         Store.Delete(ID) → expired cookie
//
// Because the Identity lives in the Store and not in the cookie, End takes
// effect immediately: a copied cookie stops working the moment its ID is
// deleted, even though its signature is still valid.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Store.Load for unknown or expired sessions.
var ErrNotFound = errors.New("session: not found")

// Identity is the minimal user data serialized into a session.
type Identity struct {
	UserID   string `json:"id"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
}

// Label returns the best human-readable name for the identity.
func (i Identity) Label() string {
	switch {
	case i.Username != "":
		return i.Username
	case i.Name != "":
		return i.Name
	default:
		return i.UserID
	}
}

// Store persists identities by session ID.
//
// Implementations must be safe for concurrent use. Load returns ErrNotFound
// for sessions that were never saved, were deleted or have outlived their ttl.
type Store interface {
	Save(ctx context.Context, id string, identity Identity, ttl time.Duration) error
	Load(ctx context.Context, id string) (Identity, error)
	Delete(ctx context.Context, id string) error
}
