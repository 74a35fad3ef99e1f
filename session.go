package icewire

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/icewire-project/icewire/internal/config"
	"github.com/icewire-project/icewire/internal/netconn"
)

// ConnState is the session's connection state machine (spec.md §3).
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateHello
	StateAwaitingUID
	StateAwaitingKey
	StateAuthenticating
	StateOnline
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateHello:
		return "hello"
	case StateAwaitingUID:
		return "awaiting_uid"
	case StateAwaitingKey:
		return "awaiting_key"
	case StateAuthenticating:
		return "authenticating"
	case StateOnline:
		return "online"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Presence is the account's presence status.
type Presence int

const (
	PresenceOffline Presence = iota
	PresenceOnline
	PresenceAway
	PresenceDND
	PresenceInvisible
	PresenceBlocked
)

// Buddy is one roster entry.
type Buddy struct {
	UID      uint32
	Nickname string
	Presence Presence
}

// Category is one room-list category.
type Category struct {
	ID   uint32
	Name string
}

// Callbacks is the capability interface the UI host (or, here, the CLI)
// implements to observe session events. This replaces the teacher's Wails
// callback-setter surface (app.go's wireSessionCallbacks) with a single
// struct of optional function fields, per spec.md §9's call for named
// capability interfaces instead of callback tables.
type Callbacks struct {
	OnStateChange    func(ConnState)
	OnIM             func(from uint32, body string)
	OnRoomMessage    func(roomID uint32, nickname, body string)
	OnSystemMessage  func(roomID uint32, text string)
	OnSpeakerChanged func(roomID uint32, nickname string, started bool)
	OnBuddyPresence  func(b Buddy)
	OnSearchResult   func(results []BuddyRecord)
	OnSearchError    func(err error)
	OnError          func(err error)
}

func (c *Callbacks) stateChange(st ConnState) {
	if c != nil && c.OnStateChange != nil {
		c.OnStateChange(st)
	}
}

func (c *Callbacks) systemMessage(roomID uint32, text string) {
	if c != nil && c.OnSystemMessage != nil {
		c.OnSystemMessage(roomID, text)
	}
}

func (c *Callbacks) reportError(err error) {
	if c != nil && c.OnError != nil {
		c.OnError(err)
	}
}

// Session is the central object owning every other piece of connected
// state: the control connection, the buddy roster, open rooms, and pending
// file transfers. One Session exists per account, replacing the teacher's
// per-server-address App/Transport pair (app.go) with a protocol engine
// tailored to the bespoke opcode-framed wire format instead of JSON-over-
// QUIC.
type Session struct {
	mu sync.Mutex

	state   atomic.Int32
	conn    net.Conn
	dialer  *netconn.Dialer
	cfg     config.Config
	cb      *Callbacks
	t       pseudoTime
	wierd   int
	uid     uint32
	nick    string
	serverKey string

	buddies      map[uint32]*Buddy
	categories   map[uint32]*Category
	rooms        map[uint32]*Room
	transfers    map[uint32]*FileTransfer
	pendingSends map[uint32]*FileTransfer // outbound sends awaiting FILE_XFER_ACCEPTED, keyed by peer uid

	handlers dispatchTable
}

// NewSession creates a Session bound to the given persisted config and
// callback set. Either may be zero-valued.
func NewSession(cfg config.Config, cb *Callbacks) *Session {
	s := &Session{
		dialer:       netconn.NewDialer(10 * time.Second),
		cfg:          cfg,
		cb:           cb,
		uid:          cfg.UID,
		nick:         cfg.Nickname,
		buddies:      make(map[uint32]*Buddy),
		categories:   make(map[uint32]*Category),
		rooms:        make(map[uint32]*Room),
		transfers:    make(map[uint32]*FileTransfer),
		pendingSends: make(map[uint32]*FileTransfer),
	}
	s.setState(StateConnecting)
	s.handlers = s.buildDispatchTable()
	return s
}

func (s *Session) setState(st ConnState) {
	s.state.Store(int32(st))
	log.Printf("[session] state -> %s", st)
	s.cb.stateChange(st)
}

// State returns the session's current connection state.
func (s *Session) State() ConnState { return ConnState(s.state.Load()) }

// nextT advances the pseudo-time LCG and returns the new value.
func (s *Session) nextT() pseudoTime {
	s.t = s.t.advance()
	return s.t
}

// send writes one frame to the control socket.
func (s *Session) send(op Opcode, body []byte) error {
	if s.conn == nil {
		return transportErr("session.send", fmt.Errorf("not connected"))
	}
	_, err := s.conn.Write(Frame{Opcode: op, Body: body}.Serialize())
	if err != nil {
		return transportErr("session.send", err)
	}
	return nil
}

// Run connects to bootstrapAddr (the "host:port" line fetched from the
// DNS-bootstrap text file, which spec.md §1 treats as an external
// collaborator to be supplied by the caller) and drives the session until
// the control connection closes or ctx is canceled.
func (s *Session) Run(ctx context.Context, bootstrapAddr, username, password string) error {
	if err := s.connectAndHandshake(ctx, bootstrapAddr, username, password); err != nil {
		s.setState(StateDisconnected)
		return err
	}
	err := s.dispatchLoop(s.conn)
	s.setState(StateDisconnected)
	if err != nil {
		s.cb.reportError(err)
	}
	return err
}

// Close tears down the control connection and every owned room. File
// transfers in progress are not cancelled.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		r.close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
