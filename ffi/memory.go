package ffi

import (
	"encoding/binary"

	"github.com/tetratelabs/wazero/api"

	faxnative "github.com/Luvion1/fax-native"
	"github.com/Luvion1/fax-native/errors"
)

// wasmMemory adapts a wazero linear memory to the faxnative memory
// interfaces. Read returns a direct view into the memory, valid until
// the next Grow.
type wasmMemory struct {
	m api.Memory
}

var _ faxnative.GrowableMemory = wasmMemory{}
var _ faxnative.MemorySizer = wasmMemory{}

func (w wasmMemory) Read(offset, length uint32) ([]byte, error) {
	data, ok := w.m.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseFFI, int(offset)+int(length), int(w.m.Size()))
	}
	return data, nil
}

func (w wasmMemory) Write(offset uint32, data []byte) error {
	if !w.m.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseFFI, int(offset)+len(data), int(w.m.Size()))
	}
	return nil
}

func (w wasmMemory) ReadU32(offset uint32) (uint32, error) {
	v, ok := w.m.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseFFI, int(offset)+4, int(w.m.Size()))
	}
	return v, nil
}

func (w wasmMemory) WriteU32(offset, value uint32) error {
	if !w.m.WriteUint32Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseFFI, int(offset)+4, int(w.m.Size()))
	}
	return nil
}

func (w wasmMemory) Size() uint32 {
	return w.m.Size()
}

func (w wasmMemory) Grow(deltaPages uint32) (uint32, bool) {
	prev, ok := w.m.Grow(deltaPages)
	return prev, ok
}

// sliceMemory is a byte-slice linear memory used by tests and by hosts
// that run the bridge without a wasm guest.
type sliceMemory struct {
	data     []byte
	maxPages uint32
}

// NewSliceMemory returns an in-process GrowableMemory of pages wasm
// pages, growable up to maxPages (0 means unbounded).
func NewSliceMemory(pages, maxPages uint32) faxnative.GrowableMemory {
	return &sliceMemory{data: make([]byte, int(pages)*pageSize), maxPages: maxPages}
}

func (s *sliceMemory) Read(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(s.data)) {
		return nil, errors.OutOfBounds(errors.PhaseFFI, int(end), len(s.data))
	}
	return s.data[offset:end], nil
}

func (s *sliceMemory) Write(offset uint32, data []byte) error {
	end := uint64(offset) + uint64(len(data))
	if end > uint64(len(s.data)) {
		return errors.OutOfBounds(errors.PhaseFFI, int(end), len(s.data))
	}
	copy(s.data[offset:], data)
	return nil
}

func (s *sliceMemory) ReadU32(offset uint32) (uint32, error) {
	b, err := s.Read(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (s *sliceMemory) WriteU32(offset, value uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], value)
	return s.Write(offset, b[:])
}

func (s *sliceMemory) Size() uint32 {
	return uint32(len(s.data))
}

func (s *sliceMemory) Grow(deltaPages uint32) (uint32, bool) {
	prev := uint32(len(s.data) / pageSize)
	if s.maxPages != 0 && prev+deltaPages > s.maxPages {
		return 0, false
	}
	s.data = append(s.data, make([]byte, int(deltaPages)*pageSize)...)
	return prev, true
}
