// Package memory simulates physical memory.
package memory

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when an access reaches beyond the capacity of a
// Storage.
var ErrOutOfRange = errors.New("accessing physical address beyond the storage capacity")

const defaultUnitSize = 4096

// A Storage keeps the content of simulated physical memory.
//
// The storage manages its content in units, similar to physical frames.
// Units that are never touched by Read or Write are never allocated. A unit
// is zero-filled when it is first touched. Real frames hold whatever the
// previous owner left behind, so code under test must not rely on the zeros.
type Storage struct {
	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// NewStorage creates a storage object with the specified capacity in bytes.
func NewStorage(capacity uint64) *Storage {
	storage := new(Storage)

	storage.unitSize = defaultUnitSize
	storage.capacity = capacity
	storage.data = make(map[uint64][]byte)

	return storage
}

// Capacity returns the number of bytes the storage can hold.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

// createOrGetStorageUnit retrieves a storage unit if the unit has been created
// before. Otherwise it initializes a storage unit in the storage object
func (s *Storage) createOrGetStorageUnit(address uint64) []byte {
	baseAddr, _ := s.parseAddress(address)
	unit, ok := s.data[baseAddr]
	if !ok {
		unit = make([]byte, s.unitSize)
		s.data[baseAddr] = unit
	}

	return unit
}

func (s *Storage) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr

	return
}

func (s *Storage) mustBeInRange(address, length uint64) error {
	if address >= s.capacity || length > s.capacity-address {
		return fmt.Errorf("%w: 0x%x+%d (capacity 0x%x)",
			ErrOutOfRange, address, length, s.capacity)
	}

	return nil
}

// Read returns length bytes starting at address.
func (s *Storage) Read(address uint64, length uint64) ([]byte, error) {
	if err := s.mustBeInRange(address, length); err != nil {
		return nil, err
	}

	currAddr := address
	dataOffset := uint64(0)
	res := make([]byte, length)

	for dataOffset < length {
		unit := s.createOrGetStorageUnit(currAddr)
		baseAddr, inUnitAddr := s.parseAddress(currAddr)

		lenToRead := min(length-dataOffset, baseAddr+s.unitSize-currAddr)

		copy(res[dataOffset:dataOffset+lenToRead],
			unit[inUnitAddr:inUnitAddr+lenToRead])
		dataOffset += lenToRead
		currAddr += lenToRead
	}

	return res, nil
}

// Write stores data starting at address.
func (s *Storage) Write(address uint64, data []byte) error {
	if err := s.mustBeInRange(address, uint64(len(data))); err != nil {
		return err
	}

	currAddr := address
	dataOffset := uint64(0)

	for dataOffset < uint64(len(data)) {
		unit := s.createOrGetStorageUnit(currAddr)
		baseAddr, inUnitAddr := s.parseAddress(currAddr)

		lenToWrite := min(uint64(len(data))-dataOffset,
			baseAddr+s.unitSize-currAddr)

		copy(unit[inUnitAddr:inUnitAddr+lenToWrite],
			data[dataOffset:dataOffset+lenToWrite])
		dataOffset += lenToWrite
		currAddr += lenToWrite
	}

	return nil
}

// NumAllocatedUnits returns how many units have been touched.
func (s *Storage) NumAllocatedUnits() int {
	return len(s.data)
}
