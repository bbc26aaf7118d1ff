package crypto

import (
	"fmt"

	"github.com/awnumar/memguard"
)

// tempBuffers tracks every ephemeral buffer allocated during an operation
// (salt, IV, plaintext copy, derived key, decrypted output) so that all of
// them can be zeroed on completion, on error, and on Destroy. Identity is
// the backing array's first element, so re-slicing does not defeat wiping.
// Zero-length buffers carry nothing and are never tracked.
type tempBuffers struct {
	bufs [][]byte
}

// track registers an existing buffer and returns it.
func (t *tempBuffers) track(b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	t.bufs = append(t.bufs, b)
	return b
}

// alloc registers and returns a zero-initialized buffer of the given size.
func (t *tempBuffers) alloc(size int) []byte {
	return t.track(make([]byte, size))
}

// wipe zeroes b and stops tracking it. Buffers that were never tracked are
// still zeroed; wiping an untracked or already-wiped buffer is a no-op for
// the registry.
func (t *tempBuffers) wipe(b []byte) {
	if len(b) == 0 {
		return
	}
	memguard.WipeBytes(b)
	for i, o := range t.bufs {
		if &o[0] == &b[0] {
			t.bufs = append(t.bufs[:i], t.bufs[i+1:]...)
			return
		}
	}
}

// wipeAll zeroes every tracked buffer and empties the registry.
func (t *tempBuffers) wipeAll() {
	for _, b := range t.bufs {
		memguard.WipeBytes(b)
	}
	t.bufs = t.bufs[:0]
}

// newTempBuffer allocates a zero-initialized tracked buffer. It is the only
// allocation path operations use, so a destroyed engine cannot hand out
// buffers that nothing will ever wipe.
func (e *Engine) newTempBuffer(size int) ([]byte, error) {
	if e.destroyed {
		return nil, fmt.Errorf("%w: buffer requested after Destroy", ErrDestroyed)
	}
	return e.buffers.alloc(size), nil
}
