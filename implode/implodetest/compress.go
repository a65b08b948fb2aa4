package implodetest

import "github.com/consensys/dbc/implode"

const maxChain = 256 // candidates examined per position

// Compress encodes data greedily: at each position the longest match in
// the window wins, the nearest among equals.
// A nil preamble means uncoded literals and a 1K dictionary.
func Compress(data []byte, p *implode.Preamble) ([]byte, error) {
	if p == nil {
		p = &implode.Preamble{Literals: implode.LiteralsUncoded, Dict: implode.Dict1K}
	}
	w, err := NewWriter(*p)
	if err != nil {
		return nil, err
	}

	m := newMatcher(data, p.Dict.WindowSize())
	for i := 0; i < len(data); {
		length, distance := m.longest(i)
		if length >= implode.MinLength {
			err = w.Copy(length, distance)
		} else {
			length = 1
			err = w.Literal(data[i])
		}
		if err != nil {
			return nil, err
		}
		for end := i + length; i < end; i++ {
			m.insert(i)
		}
	}
	return w.Close()
}

// matcher chains positions by their first two bytes.
type matcher struct {
	data   []byte
	window int
	head   map[uint16]int
	prev   []int
}

func newMatcher(data []byte, window int) *matcher {
	return &matcher{data: data, window: window, head: make(map[uint16]int), prev: make([]int, len(data))}
}

func (m *matcher) key(i int) uint16 {
	return uint16(m.data[i])<<8 | uint16(m.data[i+1])
}

func (m *matcher) insert(i int) {
	if i+1 >= len(m.data) {
		return
	}
	k := m.key(i)
	if last, ok := m.head[k]; ok {
		m.prev[i] = last
	} else {
		m.prev[i] = -1
	}
	m.head[k] = i
}

func (m *matcher) longest(i int) (length, distance int) {
	if i+1 >= len(m.data) {
		return 0, 0
	}
	cand, ok := m.head[m.key(i)]
	for n := 0; ok && cand >= 0 && n < maxChain; n++ {
		d := i - cand
		if d > m.window {
			break
		}
		l := 0
		for i+l < len(m.data) && l < implode.MaxLength && m.data[cand+l] == m.data[i+l] {
			l++
		}
		if l == implode.MinLength && d > 1<<(2+6) {
			l = 0 // length 2 only reaches 256 bytes back
		}
		if l > length {
			length, distance = l, d
		}
		cand = m.prev[cand]
	}
	return length, distance
}
