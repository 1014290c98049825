package tcc

import "bytes"

const (
	keySentinel = ':'
	delimiter   = ' '

	// ackToken is the reserved no-value token the controller sends in
	// reply to a ping.
	ackToken = "!"
)

// event is one recognized unit of the wire stream: a (key, value)
// pair, or a bare ping acknowledgement.
type event struct {
	key   string // without the sentinel; empty for an ack
	value string
	ack   bool
}

// tokenizer reassembles the space-delimited token stream. Reads may
// split the stream anywhere, including mid-token and between a key and
// its value, so the tokenizer accumulates bytes and only consumes them
// once a complete event is present.
type tokenizer struct {
	buf []byte
}

func (tk *tokenizer) feed(p []byte) {
	tk.buf = append(tk.buf, p...)
}

// next extracts the next complete event. ok is false when the buffer
// holds no complete event yet; the caller must feed more bytes. The
// token following a key is its value unconditionally, whatever its
// shape. A key whose value has not fully arrived is pushed back with
// its delimiter so it is neither lost nor emitted twice. Tokens that
// are neither keys, values, nor the ack token are discarded.
func (tk *tokenizer) next() (event, bool) {
	for {
		tok, ok := tk.pop()
		if !ok {
			return event{}, false
		}
		if tok == "" {
			// consecutive delimiters
			continue
		}
		if tok[0] != keySentinel {
			if tok == ackToken {
				return event{ack: true}, true
			}
			continue
		}

		val, ok := tk.pop()
		if !ok {
			tk.unpop(tok)
			return event{}, false
		}
		return event{key: tok[1:], value: val}, true
	}
}

// pop consumes the next delimited token from the front of the buffer.
func (tk *tokenizer) pop() (string, bool) {
	i := bytes.IndexByte(tk.buf, delimiter)
	if i < 0 {
		return "", false
	}
	tok := string(tk.buf[:i])
	tk.buf = tk.buf[i+1:]
	return tok, true
}

// unpop restores a consumed token, plus its trailing delimiter, to the
// front of the buffer.
func (tk *tokenizer) unpop(tok string) {
	restored := make([]byte, 0, len(tok)+1+len(tk.buf))
	restored = append(restored, tok...)
	restored = append(restored, delimiter)
	restored = append(restored, tk.buf...)
	tk.buf = restored
}
