// Package registry owns the identity, the friend list and the conference
// list of a bridge. Registries are not safe for concurrent use; they are
// driven by the single loop that owns the network stack.
package registry

import (
	"time"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet"
)

// SavedFriend is the persisted form of a friend
type SavedFriend struct {
	Number        uint32
	PublicKey     crypto.PublicKey
	Nospam        uint32
	Name          string
	Status        protocol.UserStatus
	StatusMessage string
	LastOnline    time.Time
}

// State is everything needed to restore a registry across restarts
type State struct {
	Profile toxnet.Profile
	Nospam  uint32
	Friends []SavedFriend
}

// Persister stores registry changes. Failures are logged, never fatal.
type Persister interface {
	SaveProfile(p toxnet.Profile, nospam uint32) error
	SaveFriend(f SavedFriend) error
	DeleteFriend(pk crypto.PublicKey) error
}

// Emitter receives the events produced while handling callbacks
type Emitter func(protocol.Event)

// Config holds optional registry collaborators
type Config struct {
	Store Persister
	Now   func() time.Time
}

func (c *Config) now() time.Time {
	if c == nil || c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

var (
	friendNotFound     = &protocol.FriendNotFoundErrorResponse{}
	conferenceNotFound = &protocol.ConferenceNotFoundErrorResponse{}
	invalidValue       = &protocol.MalformedRequestResponse{Error: protocol.MalformedInvalidValue}
	okResponse         = &protocol.OkResponse{}
)
