// Package msgfmt renders byte messages as nested structs of u128 literals
// and parses them back.
//
// A message of at most chunks*ChunkSize bytes is zero padded and split into
// little-endian 16-byte limbs. Each chunk holds LimbsPerChunk limbs:
//
//	{
//	  c0: {
//	    f0: 1684234849u128,
//	    ...
//	    f31: 0u128
//	  }
//	}
package msgfmt

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/wippyai/wasm-signer/errors"
)

const (
	// LimbSize is the byte width of one u128 field.
	LimbSize = 16
	// LimbsPerChunk is the number of fields in one chunk struct.
	LimbsPerChunk = 32
	// ChunkSize is the number of message bytes one chunk carries.
	ChunkSize = LimbSize * LimbsPerChunk
	// MaxChunks bounds the number of chunks in one formatted message.
	MaxChunks = 32

	u128Suffix = "u128"
)

var maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Format renders msg as a struct of exactly chunks chunks.
func Format(msg []byte, chunks int) (string, error) {
	if chunks < 1 || chunks > MaxChunks {
		return "", errors.New(errors.PhaseCompute, errors.KindInvalidInput).
			Path("chunks").
			Value(chunks).
			Detail("chunk count must be between 1 and %d", MaxChunks).
			Build()
	}
	if len(msg) > chunks*ChunkSize {
		return "", errors.New(errors.PhaseCompute, errors.KindOverflow).
			Path("message").
			Value(len(msg)).
			Detail("message of %d bytes exceeds %d chunks (%d bytes)", len(msg), chunks, chunks*ChunkSize).
			Build()
	}

	padded := make([]byte, chunks*ChunkSize)
	copy(padded, msg)

	var b strings.Builder
	b.WriteString("{\n")
	for c := 0; c < chunks; c++ {
		fmt.Fprintf(&b, "  c%d: {\n", c)
		for f := 0; f < LimbsPerChunk; f++ {
			off := (c*LimbsPerChunk + f) * LimbSize
			var limb [LimbSize]byte
			copy(limb[:], padded[off:off+LimbSize])
			fmt.Fprintf(&b, "    f%d: %s", f, FormatU128(limb))
			if f < LimbsPerChunk-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		b.WriteString("  }")
		if c < chunks-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("}")
	return b.String(), nil
}

// Recover parses text produced by Format and returns the message with its
// trailing zero padding removed. Whitespace, including newlines, is
// insignificant.
func Recover(text string) ([]byte, error) {
	p := &parser{src: text}
	limbs, err := p.parse()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(limbs)*LimbSize)
	for _, l := range limbs {
		out = append(out, l[:]...)
	}
	end := len(out)
	for end > 0 && out[end-1] == 0 {
		end--
	}
	return out[:end], nil
}

// FormatU128 renders a little-endian 16-byte value as a decimal u128 literal.
func FormatU128(le [LimbSize]byte) string {
	var be [LimbSize]byte
	for i := range le {
		be[LimbSize-1-i] = le[i]
	}
	return new(big.Int).SetBytes(be[:]).String() + u128Suffix
}

// ParseU128 parses a decimal u128 literal into little-endian bytes.
func ParseU128(s string) ([LimbSize]byte, error) {
	var out [LimbSize]byte

	digits, ok := strings.CutSuffix(s, u128Suffix)
	if !ok || digits == "" || strings.Trim(digits, "0123456789") != "" {
		return out, errors.New(errors.PhaseParse, errors.KindInvalidData).
			Value(s).
			WitType("u128").
			Detail("not a u128 literal").
			Build()
	}

	n, ok := new(big.Int).SetString(digits, 10)
	if !ok || n.Cmp(maxU128) > 0 {
		return out, errors.Overflow(errors.PhaseParse, nil, s, "u128")
	}

	n.FillBytes(out[:])
	for i, j := 0, LimbSize-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) parse() ([][LimbSize]byte, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}

	var limbs [][LimbSize]byte
	for c := 0; ; c++ {
		if c == MaxChunks {
			return nil, p.fail("more than %d chunks", MaxChunks)
		}
		if err := p.field("c", c); err != nil {
			return nil, err
		}
		chunk, err := p.chunk()
		if err != nil {
			return nil, err
		}
		limbs = append(limbs, chunk...)

		if p.accept(',') {
			continue
		}
		if err := p.expect('}'); err != nil {
			return nil, err
		}
		break
	}

	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.fail("trailing input")
	}
	return limbs, nil
}

func (p *parser) chunk() ([][LimbSize]byte, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}

	limbs := make([][LimbSize]byte, 0, LimbsPerChunk)
	for f := 0; f < LimbsPerChunk; f++ {
		if f > 0 {
			if err := p.expect(','); err != nil {
				return nil, err
			}
		}
		if err := p.field("f", f); err != nil {
			return nil, err
		}
		limb, err := ParseU128(p.literal())
		if err != nil {
			return nil, err
		}
		limbs = append(limbs, limb)
	}

	if err := p.expect('}'); err != nil {
		return nil, err
	}
	return limbs, nil
}

// field consumes "<prefix><index>:".
func (p *parser) field(prefix string, index int) error {
	p.skipSpace()
	name := prefix + strconv.Itoa(index)
	if !strings.HasPrefix(p.src[p.pos:], name) {
		return p.fail("expected field %s", name)
	}
	p.pos += len(name)
	return p.expect(':')
}

func (p *parser) literal() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		ch := p.src[p.pos]
		if ch == ',' || ch == '}' || isSpace(ch) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) accept(ch byte) bool {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == ch {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(ch byte) error {
	if !p.accept(ch) {
		return p.fail("expected %q", ch)
	}
	return nil
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *parser) fail(format string, args ...any) error {
	return errors.New(errors.PhaseParse, errors.KindInvalidData).
		Value(p.pos).
		Detail("offset %d: %s", p.pos, fmt.Sprintf(format, args...)).
		Build()
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\n' || ch == '\t' || ch == '\r'
}
