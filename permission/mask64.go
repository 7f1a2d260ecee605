package permission

// Mask64 is a 64-bit permission set. Bit 63 is the root capability.
type Mask64 uint64

const rootBit = 63

func (m *Mask64) Has(bit int) bool {
	if bit < 0 || bit >= 64 {
		return false
	}
	if m.IsRoot() {
		return true
	}
	return (*m & (1 << bit)) != 0
}

// IsRoot reports whether the root capability bit is set.
func (m *Mask64) IsRoot() bool {
	return (*m & (1 << rootBit)) != 0
}

func (m *Mask64) Set(bit int) {
	if bit < 0 || bit >= 64 {
		return
	}
	*m |= (1 << bit)
}

func (m *Mask64) Clear(bit int) {
	if bit < 0 || bit >= 64 {
		return
	}
	*m &^= (1 << bit)
}

func (m *Mask64) Raw() uint64 {
	return uint64(*m)
}
