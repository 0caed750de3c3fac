package handlers

import (
	"sync"
	"sync/atomic"
)

// Server to page message types.
const (
	MsgChecking = "checking"
	MsgVerified = "verified"
	MsgFailed   = "failed"
	MsgRestart  = "restart"
	MsgReveal   = "reveal"
)

type ServerMessage struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
}

// streamNotifier queues gate notifications for the session stream. It
// never blocks the session loop; a full queue drops the message.
type streamNotifier struct {
	issue func() string

	mu       sync.Mutex
	out      chan ServerMessage
	closed   bool
	attached atomic.Bool
}

func newStreamNotifier(issue func() string) *streamNotifier {
	return &streamNotifier{issue: issue, out: make(chan ServerMessage, 16)}
}

func (n *streamNotifier) Checking() { n.send(ServerMessage{Type: MsgChecking}) }
func (n *streamNotifier) Verified() { n.send(ServerMessage{Type: MsgVerified}) }
func (n *streamNotifier) Failed()   { n.send(ServerMessage{Type: MsgFailed}) }
func (n *streamNotifier) Restart()  { n.send(ServerMessage{Type: MsgRestart}) }

// RevealFollowUp hands the page its pass token.
func (n *streamNotifier) RevealFollowUp() {
	n.send(ServerMessage{Type: MsgReveal, Token: n.issue()})
}

func (n *streamNotifier) send(m ServerMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	select {
	case n.out <- m:
	default:
	}
}

// attach claims the stream. Only one connection may consume it.
func (n *streamNotifier) attach() bool {
	return n.attached.CompareAndSwap(false, true)
}

func (n *streamNotifier) detach() {
	n.attached.Store(false)
}

func (n *streamNotifier) close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.closed {
		n.closed = true
		close(n.out)
	}
}
