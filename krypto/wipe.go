package krypto

import "runtime"

// Wipe overwrites buf with zeros.
func Wipe(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	runtime.KeepAlive(buf)
}

// Scoped owns a set of sensitive buffers and zeroes all of them on Release.
// Callers acquire buffers through it and defer Release once, so every exit
// path, error paths included, clears the memory.
type Scoped struct {
	bufs [][]byte
}

// Alloc returns a zeroed buffer of n bytes owned by s.
func (s *Scoped) Alloc(n int) []byte {
	buf := make([]byte, n)
	s.bufs = append(s.bufs, buf)
	return buf
}

// Copy returns a private copy of src owned by s.
func (s *Scoped) Copy(src []byte) []byte {
	buf := s.Alloc(len(src))
	copy(buf, src)
	return buf
}

// Release wipes every buffer handed out by s. It is safe to call more than once.
func (s *Scoped) Release() {
	for _, b := range s.bufs {
		Wipe(b)
	}
	s.bufs = nil
}
