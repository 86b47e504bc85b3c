// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package secmem provides byte containers for long-lived secrets.  Backing
// storage is allocated outside the Go heap, locked against swapping where the
// platform allows, and zeroized on destroy.
package secmem

import (
	"github.com/awnumar/memguard"

	"github.com/obscuranet/obwallet/internal/zero"
)

// Buffer holds secret bytes in page-locked memory.  The zero value is not
// usable; create buffers with NewBuffer or NewBufferFromBytes.  A destroyed
// buffer has length zero and all accessors are safe to call.
type Buffer struct {
	lb *memguard.LockedBuffer
}

// NewBuffer returns a mutable secure buffer of the given size.  Sizes of zero
// and below return an empty buffer with no locked allocation.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		return &Buffer{}
	}
	return &Buffer{lb: memguard.NewBuffer(size)}
}

// NewBufferFromBytes moves b into a secure buffer.  The source slice is wiped
// before returning.
func NewBufferFromBytes(b []byte) *Buffer {
	if len(b) == 0 {
		zero.Bytes(b)
		return &Buffer{}
	}
	return &Buffer{lb: memguard.NewBufferFromBytes(b)}
}

// Bytes returns the buffer contents.  The slice aliases the locked allocation
// and must not be retained past Destroy.
func (b *Buffer) Bytes() []byte {
	if b.lb == nil || !b.lb.IsAlive() {
		return nil
	}
	return b.lb.Bytes()
}

// Len returns the number of secret bytes held.
func (b *Buffer) Len() int {
	if b.lb == nil || !b.lb.IsAlive() {
		return 0
	}
	return b.lb.Size()
}

// Equal reports whether the buffer contents equal p.  The comparison is
// constant time in the buffer length.
func (b *Buffer) Equal(p []byte) bool {
	if b.Len() != len(p) {
		return false
	}
	if b.Len() == 0 {
		return true
	}
	return b.lb.EqualTo(p)
}

// Clone returns an independent copy of the buffer.  Both copies zeroize
// independently.
func (b *Buffer) Clone() *Buffer {
	if b.Len() == 0 {
		return &Buffer{}
	}
	c := memguard.NewBuffer(b.lb.Size())
	c.Copy(b.lb.Bytes())
	return &Buffer{lb: c}
}

// Append returns a new buffer holding the receiver's contents followed by p.
// The receiver is destroyed; p is copied and left untouched.
func (b *Buffer) Append(p []byte) *Buffer {
	n := b.Len() + len(p)
	if n == 0 {
		return &Buffer{}
	}
	c := memguard.NewBuffer(n)
	copy(c.Bytes(), b.Bytes())
	copy(c.Bytes()[b.Len():], p)
	b.Destroy()
	return &Buffer{lb: c}
}

// Destroy wipes and releases the locked allocation.  Destroy is idempotent.
func (b *Buffer) Destroy() {
	if b.lb != nil && b.lb.IsAlive() {
		b.lb.Destroy()
	}
}
