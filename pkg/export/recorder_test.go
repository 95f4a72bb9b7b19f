package export

import (
	"errors"

	"github.com/RaphaelK12/blospray/pkg/protocol"
)

// recorder is an in-memory Transport that keeps everything written to it.
type recorder struct {
	items   []any // protocol.Body or protocol.Block, in write order
	replies []protocol.Body
	failAt  int // fail the n-th write (1-based); 0 never fails
	writes  int
}

func (r *recorder) write(v any) error {
	r.writes++
	if r.failAt > 0 && r.writes >= r.failAt {
		return protocol.ErrConnectionLost
	}
	r.items = append(r.items, v)
	return nil
}

func (r *recorder) WriteMessage(b protocol.Body) error { return r.write(b) }
func (r *recorder) WriteRaw(b protocol.Block) error    { return r.write(b) }

func (r *recorder) ReadMessage(b protocol.Body) error {
	if len(r.replies) == 0 {
		return errors.New("recorder: no reply queued")
	}
	next := r.replies[0]
	r.replies = r.replies[1:]
	return protocol.Unmarshal(protocol.Marshal(next), b)
}

// kinds returns the header kinds in write order.
func (r *recorder) kinds() []protocol.Kind {
	var out []protocol.Kind
	for _, it := range r.items {
		if cm, ok := it.(*protocol.ClientMessage); ok {
			out = append(out, cm.Type)
		}
	}
	return out
}

// count returns how many headers of kind k were written.
func (r *recorder) count(k protocol.Kind) int {
	n := 0
	for _, got := range r.kinds() {
		if got == k {
			n++
		}
	}
	return n
}

// raws returns the raw blocks in write order.
func (r *recorder) raws() []protocol.Block {
	var out []protocol.Block
	for _, it := range r.items {
		if b, ok := it.(protocol.Block); ok {
			out = append(out, b)
		}
	}
	return out
}

// after returns the items written after the i-th header of kind k.
func (r *recorder) after(k protocol.Kind, i int) []any {
	seen := 0
	for j, it := range r.items {
		if cm, ok := it.(*protocol.ClientMessage); ok && cm.Type == k {
			if seen == i {
				return r.items[j+1:]
			}
			seen++
		}
	}
	return nil
}

func (r *recorder) updates() []*protocol.UpdateObject {
	var out []*protocol.UpdateObject
	for _, it := range r.items {
		if u, ok := it.(*protocol.UpdateObject); ok {
			out = append(out, u)
		}
	}
	return out
}

func (r *recorder) reset() { r.items = nil }
