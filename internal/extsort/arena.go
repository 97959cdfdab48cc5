package extsort

// byteArena bump-allocates record payloads for one chunk. Slabs never
// grow in place, so slices handed out stay valid for the arena's
// lifetime; the whole arena is dropped when its chunk is spilled.
type byteArena struct {
	slabSize int
	slabs    [][]byte
}

func newByteArena(slabSize int) *byteArena {
	if slabSize < 4096 {
		slabSize = 4096
	}
	return &byteArena{slabSize: slabSize}
}

// copyBytes stores a copy of b in the arena and returns the stored slice.
func (a *byteArena) copyBytes(b []byte) []byte {
	if len(b) > a.slabSize {
		// Oversized payloads get a dedicated slab.
		slab := append(make([]byte, 0, len(b)), b...)
		a.slabs = append(a.slabs, slab)
		return slab
	}

	if n := len(a.slabs); n == 0 || cap(a.slabs[n-1])-len(a.slabs[n-1]) < len(b) {
		a.slabs = append(a.slabs, make([]byte, 0, a.slabSize))
	}

	cur := a.slabs[len(a.slabs)-1]
	start := len(cur)
	cur = append(cur, b...)
	a.slabs[len(a.slabs)-1] = cur
	return cur[start:len(cur):len(cur)]
}
