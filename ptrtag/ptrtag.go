// Package ptrtag pairs a pointer with a 2-bit tag.
//
// The tag is kept next to the pointer instead of in its low bits so the
// garbage collector always sees a valid pointer. Construction still asserts
// the alignment that would make the packed form possible, so code written
// against Ptr keeps working on targets that do pack the two.
package ptrtag

import "unsafe"

// TagMask is the set of bits a tag may use
const TagMask = 0x3

// Ptr is a pointer together with a tag in [0, 3]
type Ptr[T any] struct {
	p   *T
	tag uint8
}

// Pack builds a tagged pointer. It panics if tag does not fit in two bits or
// if p is not aligned to four bytes.
func Pack[T any](p *T, tag uint8) Ptr[T] {
	if tag&^TagMask != 0 {
		panic("ptrtag: tag out of range")
	}
	if uintptr(unsafe.Pointer(p))&TagMask != 0 {
		panic("ptrtag: pointer not aligned")
	}
	return Ptr[T]{p: p, tag: tag}
}

// Unpack returns the pointer and tag stored in v
func Unpack[T any](v Ptr[T]) (*T, uint8) {
	return v.p, v.tag
}

// Ptr returns the untagged pointer
func (v Ptr[T]) Ptr() *T {
	return v.p
}

// Tag returns the tag
func (v Ptr[T]) Tag() uint8 {
	return v.tag
}

// WithTag returns v carrying a different tag
func (v Ptr[T]) WithTag(tag uint8) Ptr[T] {
	return Pack(v.p, tag)
}

// IsNil reports whether the pointer part is nil
func (v Ptr[T]) IsNil() bool {
	return v.p == nil
}
