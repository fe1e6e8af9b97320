package crdtsync

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/nullctx/crdtdoc/change"
	"github.com/nullctx/crdtdoc/columnar"
	"github.com/nullctx/crdtdoc/common"
)

// Upgrader is the gorilla/websocket upgrader used by ServeConn. Exposed
// so callers can tighten CheckOrigin for their deployment; the zero
// value accepts same-origin requests only.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// writeDeadline bounds how long a single message send may block, so a
// stalled peer cannot wedge a sync loop forever.
const writeDeadline = 10 * time.Second

// Conn is a single peer connection over which Messages are exchanged,
// each wire frame being a binary websocket message carrying a message
// header (heads count + each head) followed by one length-prefixed
// change chunk per change (§6.3's two-round request/response, wrapped
// as an ordinary application message rather than raw chunk
// concatenation since a websocket frame already delimits the message).
//
// Grounded on the teacher's luvjson/crdtsync package, which drives its
// sync manager over a similarly framed duplex connection; generalized
// here from that package's JSON envelope to this engine's binary
// columnar encoding so no change is ever re-serialised through JSON.
type Conn struct {
	ws *websocket.Conn
}

// DialTransport opens a client-side sync connection to a peer serving
// ServeConn at url (e.g. "ws://host:port/sync").
func DialTransport(url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "crdtsync: dial transport")
	}
	return &Conn{ws: ws}, nil
}

// ServeConn upgrades an incoming HTTP request to a websocket and
// returns the resulting server-side connection. Callers typically run
// this from an http.HandlerFunc and then drive a sync loop over the
// returned Conn in a goroutine.
func ServeConn(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	ws, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, errors.Wrap(err, "crdtsync: upgrade transport")
	}
	return &Conn{ws: ws}, nil
}

// Close closes the underlying websocket connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}

// Send writes msg as a single binary websocket frame.
func (c *Conn) Send(msg *Message) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return errors.Wrap(err, "crdtsync: set write deadline")
	}
	frame, err := encodeMessage(msg)
	if err != nil {
		return errors.Wrap(err, "crdtsync: encode message")
	}
	if err := c.ws.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return errors.Wrap(err, "crdtsync: send message")
	}
	return nil
}

// Receive blocks for the next message frame from the peer.
func (c *Conn) Receive() (*Message, error) {
	kind, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, errors.Wrap(err, "crdtsync: receive message")
	}
	if kind != websocket.BinaryMessage {
		return nil, errors.New("crdtsync: unexpected non-binary sync frame")
	}
	return decodeMessage(data)
}

// RunLoop drives one peer connection to quiescence: it repeatedly
// generates a message from state against d and sends it, and drains
// any message the peer sends back, until a round produces nothing new
// on the local side and the peer has nothing pending either. This
// mirrors the teacher's sync-manager poll loop, adapted from its
// periodic-tick model to a direct two-round request/response since a
// websocket connection is already a standing duplex channel.
func (c *Conn) RunLoop(d docStore, state *State) error {
	for {
		localIdle := true
		if msg, ok := GenerateMessage(d, state); ok {
			if err := c.Send(msg); err != nil {
				return err
			}
			localIdle = false
		}

		peerMsg, err := c.Receive()
		if err != nil {
			return err
		}
		applied, err := ReceiveMessage(d, state, peerMsg)
		if err != nil {
			return errors.Wrap(err, "crdtsync: apply peer message")
		}

		if localIdle && len(applied) == 0 && len(peerMsg.Changes) == 0 {
			return nil
		}
	}
}

func encodeMessage(msg *Message) ([]byte, error) {
	w := columnar.NewWriter()
	w.WriteUvarint(uint64(len(msg.Heads)))
	for _, h := range msg.Heads {
		w.WriteRaw(h[:])
	}
	w.WriteUvarint(uint64(len(msg.Changes)))
	for _, c := range msg.Changes {
		enc, err := c.Encode(true)
		if err != nil {
			return nil, err
		}
		w.WriteLenPrefixed(enc)
	}
	return w.Bytes(), nil
}

func decodeMessage(data []byte) (*Message, error) {
	r := columnar.NewReader(data)
	nHeads, err := r.ReadUvarint()
	if err != nil {
		return nil, errors.Wrap(err, "crdtsync: decode message heads count")
	}
	heads := make([]common.ChangeHash, nHeads)
	for i := range heads {
		b, err := r.ReadBytes(32)
		if err != nil {
			return nil, errors.Wrap(err, "crdtsync: decode message head")
		}
		copy(heads[i][:], b)
	}

	nChanges, err := r.ReadUvarint()
	if err != nil {
		return nil, errors.Wrap(err, "crdtsync: decode message change count")
	}
	changes := make([]*change.Change, nChanges)
	for i := range changes {
		enc, err := r.ReadLenPrefixed()
		if err != nil {
			return nil, errors.Wrap(err, "crdtsync: decode message change body")
		}
		c, _, err := change.Decode(enc)
		if err != nil {
			return nil, errors.Wrap(err, "crdtsync: decode framed change")
		}
		changes[i] = c
	}

	return &Message{Heads: heads, Changes: changes}, nil
}
