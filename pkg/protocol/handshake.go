package protocol

// Version is the protocol version sent in HELLO.
const Version uint32 = 2

// Hello returns the HELLO header carrying the protocol version.
func Hello(version uint32) *ClientMessage {
	return &ClientMessage{Type: KindHello, UintValue: version}
}

// HelloResult is the server's reply to HELLO. Success false is a hard
// rejection of the session.
type HelloResult struct {
	Success bool
	Message string
}

func (r *HelloResult) EncodeTo(e *Encoder) {
	e.Bool(1, r.Success)
	e.String(2, r.Message)
}

func (r *HelloResult) DecodeFrom(d *Decoder) error {
	*r = HelloResult{}
	return d.Fields(func(f Field) error {
		switch f.Num {
		case 1:
			r.Success = f.Bool()
		case 2:
			r.Message = f.String()
		}
		return nil
	})
}

// GenerateFunctionResult is the server's reply to UPDATE_PLUGIN_INSTANCE.
type GenerateFunctionResult struct {
	Success bool
	Message string
}

func (r *GenerateFunctionResult) EncodeTo(e *Encoder) {
	e.Bool(1, r.Success)
	e.String(2, r.Message)
}

func (r *GenerateFunctionResult) DecodeFrom(d *Decoder) error {
	*r = GenerateFunctionResult{}
	return d.Fields(func(f Field) error {
		switch f.Num {
		case 1:
			r.Success = f.Bool()
		case 2:
			r.Message = f.String()
		}
		return nil
	})
}
