package tcc

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(tk *tokenizer) []event {
	var out []event
	for {
		ev, ok := tk.next()
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}

func TestTokenizerTwoChunkSplits(t *testing.T) {
	const frame = ":t1 1234 "

	for i := 0; i <= len(frame); i++ {
		t.Run(fmt.Sprintf("split_at_%d", i), func(t *testing.T) {
			var tk tokenizer

			tk.feed([]byte(frame[:i]))
			events := drain(&tk)
			tk.feed([]byte(frame[i:]))
			events = append(events, drain(&tk)...)

			require.Len(t, events, 1, "split at %d", i)
			assert.Equal(t, "t1", events[0].key)
			assert.Equal(t, "1234", events[0].value)
		})
	}
}

func TestTokenizerByteAtATime(t *testing.T) {
	const stream = ":s 1000 :a 995 ! :rt -400 "

	var tk tokenizer
	var events []event
	for i := 0; i < len(stream); i++ {
		tk.feed([]byte{stream[i]})
		events = append(events, drain(&tk)...)
	}

	require.Len(t, events, 4)
	assert.Equal(t, event{key: "s", value: "1000"}, events[0])
	assert.Equal(t, event{key: "a", value: "995"}, events[1])
	assert.Equal(t, event{ack: true}, events[2])
	assert.Equal(t, event{key: "rt", value: "-400"}, events[3])
}

func TestTokenizerKeyPushback(t *testing.T) {
	var tk tokenizer

	// The key and its delimiter arrive; the value has not.
	tk.feed([]byte(":t1 "))
	_, ok := tk.next()
	assert.False(t, ok)

	// Repeated attempts with no new bytes make no progress and do not
	// consume the key.
	_, ok = tk.next()
	assert.False(t, ok)

	tk.feed([]byte("1234 "))
	events := drain(&tk)
	require.Len(t, events, 1, "key must be emitted exactly once")
	assert.Equal(t, "t1", events[0].key)
	assert.Equal(t, "1234", events[0].value)
}

func TestTokenizerAckToken(t *testing.T) {
	var tk tokenizer
	tk.feed([]byte("! "))

	events := drain(&tk)
	require.Len(t, events, 1)
	assert.True(t, events[0].ack)
}

func TestTokenizerDiscardsStrayTokens(t *testing.T) {
	var tk tokenizer
	tk.feed([]byte("garbage 42 :fs 80 noise "))

	events := drain(&tk)
	require.Len(t, events, 1)
	assert.Equal(t, "fs", events[0].key)
	assert.Equal(t, "80", events[0].value)
}

func TestTokenizerValueMayLookLikeAnything(t *testing.T) {
	// The token after a key is its value unconditionally, even when it
	// is shaped like a key or the ack token.
	var tk tokenizer
	tk.feed([]byte(":vr :1.2 :h ! "))

	events := drain(&tk)
	require.Len(t, events, 2)
	assert.Equal(t, event{key: "vr", value: ":1.2"}, events[0])
	assert.Equal(t, event{key: "h", value: "!"}, events[1])
}

func TestTokenizerConsecutiveDelimiters(t *testing.T) {
	var tk tokenizer
	tk.feed([]byte("  :d1  50 "))

	// The empty token after the key is its value; the real number is
	// then a stray token. That is what the pairing rule dictates.
	events := drain(&tk)
	require.Len(t, events, 1)
	assert.Equal(t, "d1", events[0].key)
	assert.Equal(t, "", events[0].value)
}
