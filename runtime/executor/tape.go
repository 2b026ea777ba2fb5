package executor

// tape is a zero-initialised cell array that grows on demand in both
// directions. ptr is relative to the cell the program started on.
type tape struct {
	cells  []byte
	origin int
	ptr    int
}

const initialTape = 30000

func newTape() *tape {
	return &tape{cells: make([]byte, initialTape)}
}

// at returns the cell at ptr+rel, growing the tape if needed.
func (t *tape) at(rel int) *byte {
	i := t.origin + t.ptr + rel
	if i < 0 {
		grow := len(t.cells)
		if -i > grow {
			grow = -i
		}
		cells := make([]byte, len(t.cells)+grow)
		copy(cells[grow:], t.cells)
		t.cells = cells
		t.origin += grow
		i += grow
	} else if i >= len(t.cells) {
		size := 2 * len(t.cells)
		if i >= size {
			size = i + 1
		}
		cells := make([]byte, size)
		copy(cells, t.cells)
		t.cells = cells
	}
	return &t.cells[i]
}
