package grammar

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Magic starts every binary grammar file.
const Magic = "EGRM"

// Version is the only binary layout this package reads and writes. All
// integers are big-endian.
const Version uint16 = 1

const (
	flagNames uint16 = 1 << iota

	knownFlags = flagNames
)

// ErrFormat is wrapped by every decoding failure.
var ErrFormat = errors.New("malformed grammar file")

type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.remaining() {
		r.err = errors.Wrapf(io.ErrUnexpectedEOF, "need %d bytes at offset %d, have %d", n, r.off, r.remaining())
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) readU2() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) readU4() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) readI4() int32 {
	return int32(r.readU4())
}

// readCount reads a u32 count of elements that each occupy at least minSize
// bytes and rejects counts the remaining input cannot hold.
func (r *reader) readCount(what string, minSize int) int {
	n := r.readU4()
	if r.err != nil {
		return 0
	}
	if uint64(n)*uint64(minSize) > uint64(r.remaining()) || n > math.MaxInt32 {
		r.err = errors.Errorf("%s count %d exceeds the %d bytes left", what, n, r.remaining())
		return 0
	}
	return int(n)
}

// ReadBinary replaces g with the grammar stored at path. The file is decoded
// and validated into a fresh grammar first; on any failure g is left as it
// was. ReadBinary must not be called while g is shared with running parses.
func (g *Grammar) ReadBinary(path string) error {
	loaded, err := Load(path)
	if err != nil {
		return err
	}
	*g = *loaded
	return nil
}

// Load reads and validates a binary grammar file.
func Load(path string) (*Grammar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read grammar")
	}
	g, err := decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	logger().Infof("loaded %s: %d nonterminals, %d terminals", path, g.nonterminalCount, g.terminalCount)
	return g, nil
}

// Decode reads a binary grammar from rd and validates it.
func Decode(rd io.Reader) (*Grammar, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, errors.Wrap(err, "read grammar")
	}
	return decode(data)
}

func decode(data []byte) (*Grammar, error) {
	r := &reader{buf: data}

	magic := r.take(len(Magic))
	if r.err != nil {
		return nil, errors.Wrapf(ErrFormat, "read magic: %v", r.err)
	}
	if string(magic) != Magic {
		return nil, errors.Wrapf(ErrFormat, "invalid magic %q (expected %q)", magic, Magic)
	}

	version := r.readU2()
	flags := r.readU2()
	if r.err != nil {
		return nil, errors.Wrapf(ErrFormat, "read version: %v", r.err)
	}
	if version != Version {
		return nil, errors.Wrapf(ErrFormat, "unsupported version %d (expected %d)", version, Version)
	}
	if flags&^knownFlags != 0 {
		return nil, errors.Wrapf(ErrFormat, "unknown flags 0x%04x", flags&^knownFlags)
	}

	nonterminals := r.readU4()
	terminals := r.readU4()
	root := Symbol(r.readI4())
	if r.err != nil {
		return nil, errors.Wrapf(ErrFormat, "read header: %v", r.err)
	}
	// Every nonterminal needs at least its production count.
	if uint64(nonterminals)*4 > uint64(r.remaining()) {
		return nil, errors.Wrapf(ErrFormat, "%d nonterminals declared but only %d bytes follow", nonterminals, r.remaining())
	}
	if terminals > math.MaxInt32 {
		return nil, errors.Wrapf(ErrFormat, "terminal count %d out of range", terminals)
	}
	if flags&flagNames != 0 && (uint64(nonterminals)+uint64(terminals))*2 > uint64(r.remaining()) {
		return nil, errors.Wrapf(ErrFormat, "name table for %d symbols cannot fit in %d bytes", uint64(nonterminals)+uint64(terminals), r.remaining())
	}

	g := New(int(nonterminals), int(terminals))
	for i := 1; i <= g.nonterminalCount; i++ {
		nt, err := readNonterminal(r, g)
		if err != nil {
			return nil, errors.Wrapf(ErrFormat, "nonterminal %d: %v", i, err)
		}
		g.SetNonterminal(NonterminalID(i), nt)
	}

	if flags&flagNames != 0 {
		if err := readNames(r, g); err != nil {
			return nil, errors.Wrapf(ErrFormat, "names: %v", err)
		}
	}

	if r.remaining() != 0 {
		return nil, errors.Wrapf(ErrFormat, "%d trailing bytes", r.remaining())
	}

	if root != 0 {
		if !root.IsNonterminal() || !g.Declares(root) {
			return nil, errors.Wrapf(ErrFormat, "root %d is not a declared nonterminal", root)
		}
		g.SetRoot(root)
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func readNonterminal(r *reader, g *Grammar) (*Nonterminal, error) {
	count := r.readCount("production", 4)
	if r.err != nil {
		return nil, r.err
	}
	nt := &Nonterminal{productions: make([]*Production, 0, count)}
	for p := 0; p < count; p++ {
		length := r.readCount("symbol", 4)
		if r.err != nil {
			return nil, errors.Wrapf(r.err, "production %d", p)
		}
		symbols := make([]Symbol, length)
		for s := range symbols {
			symbols[s] = Symbol(r.readI4())
			if r.err == nil && !g.Declares(symbols[s]) {
				return nil, errors.Errorf("production %d symbol %d: %d is not declared", p, s, symbols[s])
			}
		}
		if r.err != nil {
			return nil, errors.Wrapf(r.err, "production %d", p)
		}
		nt.productions = append(nt.productions, &Production{symbols: symbols})
	}
	return nt, nil
}

func readNames(r *reader, g *Grammar) error {
	read := func(s Symbol) error {
		n := r.readU2()
		b := r.take(int(n))
		if r.err != nil {
			return r.err
		}
		if !utf8.Valid(b) {
			return errors.Errorf("name of %s is not UTF-8", s)
		}
		if n > 0 {
			name := string(b)
			if other, ok := g.Lookup(name); ok {
				return errors.Errorf("name %q of %s already belongs to %s", name, s, other)
			}
			g.SetName(s, name)
		}
		return nil
	}
	for i := 1; i <= g.nonterminalCount; i++ {
		if err := read(NonterminalID(i)); err != nil {
			return err
		}
	}
	for i := 1; i <= g.terminalCount; i++ {
		if err := read(Terminal(i)); err != nil {
			return err
		}
	}
	return nil
}

// WriteBinary stores g at path. The grammar must validate.
func (g *Grammar) WriteBinary(path string) error {
	var buf bytes.Buffer
	if err := g.Encode(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "write grammar")
	}
	return nil
}

// Encode writes g in the binary layout. The name table is included when any
// symbol is named.
func (g *Grammar) Encode(w io.Writer) error {
	if err := g.Validate(); err != nil {
		return err
	}

	var flags uint16
	if g.HasNames() {
		flags |= flagNames
	}

	out := make([]byte, 0, 64)
	out = append(out, Magic...)
	out = binary.BigEndian.AppendUint16(out, Version)
	out = binary.BigEndian.AppendUint16(out, flags)
	out = binary.BigEndian.AppendUint32(out, uint32(g.nonterminalCount))
	out = binary.BigEndian.AppendUint32(out, uint32(g.terminalCount))
	out = binary.BigEndian.AppendUint32(out, uint32(int32(g.root)))

	for _, nt := range g.nonterminals {
		out = binary.BigEndian.AppendUint32(out, uint32(len(nt.productions)))
		for _, p := range nt.productions {
			out = binary.BigEndian.AppendUint32(out, uint32(len(p.symbols)))
			for _, s := range p.symbols {
				out = binary.BigEndian.AppendUint32(out, uint32(int32(s)))
			}
		}
	}

	if flags&flagNames != 0 {
		for i := 1; i <= g.nonterminalCount+g.terminalCount; i++ {
			s := NonterminalID(i)
			if i > g.nonterminalCount {
				s = Terminal(i - g.nonterminalCount)
			}
			name := g.rawName(s)
			if len(name) > math.MaxUint16 {
				return errors.Errorf("name of %s too long (%d bytes)", s, len(name))
			}
			out = binary.BigEndian.AppendUint16(out, uint16(len(name)))
			out = append(out, name...)
		}
	}

	_, err := w.Write(out)
	return errors.Wrap(err, "write grammar")
}
