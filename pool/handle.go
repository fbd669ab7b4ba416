package pool

import "strconv"

// Handle addresses one pooled entity for one activation. The generation changes
// on every release, so handles kept past Release stop resolving.
type Handle uint64

// NoEntity is the zero handle.
const NoEntity Handle = 0

type slotID uint32
type generation uint32

const slotBits = 32

func makeHandle(slot slotID, gen generation) Handle {
	return Handle(uint64(gen)<<slotBits | uint64(slot))
}

func (h Handle) slot() slotID {
	return slotID(uint32(h))
}

func (h Handle) generation() generation {
	return generation(uint32(uint64(h) >> slotBits))
}

func (h Handle) Valid() bool {
	return h != NoEntity
}

func (h Handle) String() string {
	return strconv.FormatUint(uint64(h.slot()), 10) + "v" + strconv.FormatUint(uint64(h.generation()), 10)
}
