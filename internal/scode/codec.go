package scode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Wire framing: a start marker, a fixed letter/number/param-count header,
// length-tagged parameters, a checksum, and an end marker.
//
//	stx letter number paramCount (paramLetter tag value)* checksum etx
const (
	stx byte = 0x02
	etx byte = 0x03

	tagInt32   byte = 'I'
	tagFloat32 byte = 'F'
	tagBytes   byte = 'B'
)

// ErrCorruptFrame is yielded by a Decoder when a frame carries an unknown
// parameter tag or fails its checksum or end marker. It does not stop decoding: the decoder discards the bad
// frame's start marker and resynchronizes on the next one.
var ErrCorruptFrame = errors.New("scode: corrupt frame")

// ErrTooManyParams is returned by Encode when a Code has more than 255
// parameters, which will not fit the wire header's param-count byte.
var ErrTooManyParams = errors.New("scode: too many params")

// ErrParamTooLong is returned by Encode when a Bytes parameter exceeds 255
// bytes, which will not fit the wire length prefix.
var ErrParamTooLong = errors.New("scode: param value too long")

func checksum(body []byte) byte {
	var c byte
	for _, b := range body {
		c ^= b
	}
	return c
}

// Encode renders a Code to its wire bytes. Encoding is deterministic: the
// same Code always produces the same bytes.
func Encode(c Code) ([]byte, error) {
	if len(c.Params) > 255 {
		return nil, ErrTooManyParams
	}

	body := make([]byte, 0, 16)
	body = append(body, c.Letter, c.Number, byte(len(c.Params)))
	for _, p := range c.Params {
		switch p.Value.Kind() {
		case KindInt32:
			v, _ := p.Value.Int32Value()
			body = append(body, p.Letter, tagInt32)
			var raw [4]byte
			binary.BigEndian.PutUint32(raw[:], uint32(v))
			body = append(body, raw[:]...)
		case KindFloat32:
			v, _ := p.Value.Float32Value()
			body = append(body, p.Letter, tagFloat32)
			var raw [4]byte
			binary.BigEndian.PutUint32(raw[:], math.Float32bits(v))
			body = append(body, raw[:]...)
		case KindBytes:
			raw, _ := p.Value.BytesValueOf()
			if len(raw) > 255 {
				return nil, ErrParamTooLong
			}
			body = append(body, p.Letter, tagBytes, byte(len(raw)))
			body = append(body, raw...)
		default:
			return nil, fmt.Errorf("scode: unknown param kind %v", p.Value.Kind())
		}
	}

	out := make([]byte, 0, len(body)+3)
	out = append(out, stx)
	out = append(out, body...)
	out = append(out, checksum(body), etx)
	return out, nil
}

// Decoder is a stateful byte sink: Push feeds raw bytes read from the
// link, and Next pops decoded frames one at a time. A decode failure at
// one frame never corrupts the next: Next resynchronizes on the following
// start marker and continues. Partial frames at the end of the buffered
// bytes are held until more bytes arrive.
type Decoder struct {
	buf []byte
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Push appends freshly read bytes to the decoder's internal buffer.
func (d *Decoder) Push(b []byte) {
	d.buf = append(d.buf, b...)
}

// Next attempts to pop one decoded item from the buffer. It returns
// ok=false when there is not yet enough buffered data to decide one way
// or the other; callers should stop draining and wait for the next Push.
// When ok is true, exactly one of (code, err) is meaningful: err is
// ErrCorruptFrame on a bad frame, nil on a good one.
func (d *Decoder) Next() (code Code, err error, ok bool) {
	for {
		idx := indexByte(d.buf, stx)
		if idx < 0 {
			d.buf = d.buf[:0]
			return Code{}, nil, false
		}
		if idx > 0 {
			d.buf = d.buf[idx:]
		}

		if len(d.buf) < 4 {
			return Code{}, nil, false
		}
		letter := d.buf[1]
		number := d.buf[2]
		paramCount := int(d.buf[3])

		pos := 4
		params := make([]Param, 0, paramCount)
		corrupt := false
	params:
		for i := 0; i < paramCount; i++ {
			if pos+2 > len(d.buf) {
				return Code{}, nil, false
			}
			pLetter := d.buf[pos]
			tag := d.buf[pos+1]
			pos += 2
			switch tag {
			case tagInt32:
				if pos+4 > len(d.buf) {
					return Code{}, nil, false
				}
				v := int32(binary.BigEndian.Uint32(d.buf[pos : pos+4]))
				pos += 4
				params = append(params, Param{Letter: pLetter, Value: Int32(v)})
			case tagFloat32:
				if pos+4 > len(d.buf) {
					return Code{}, nil, false
				}
				bits := binary.BigEndian.Uint32(d.buf[pos : pos+4])
				pos += 4
				params = append(params, Param{Letter: pLetter, Value: Float32(math.Float32frombits(bits))})
			case tagBytes:
				if pos+1 > len(d.buf) {
					return Code{}, nil, false
				}
				n := int(d.buf[pos])
				pos++
				if pos+n > len(d.buf) {
					return Code{}, nil, false
				}
				params = append(params, Param{Letter: pLetter, Value: BytesValue(d.buf[pos : pos+n])})
				pos += n
			default:
				corrupt = true
				break params
			}
		}

		if corrupt {
			d.buf = d.buf[1:]
			return Code{}, ErrCorruptFrame, true
		}

		if pos+2 > len(d.buf) {
			return Code{}, nil, false
		}
		gotChecksum := d.buf[pos]
		end := d.buf[pos+1]
		body := d.buf[1:pos]
		frameLen := pos + 2

		if end != etx || gotChecksum != checksum(body) {
			d.buf = d.buf[1:]
			return Code{}, ErrCorruptFrame, true
		}

		out := Code{Letter: letter, Number: number, Params: params}
		d.buf = d.buf[frameLen:]
		return out, nil, true
	}
}

// Drain pops every item currently decodable from the buffer.
func (d *Decoder) Drain() []Result {
	var results []Result
	for {
		code, err, ok := d.Next()
		if !ok {
			return results
		}
		results = append(results, Result{Code: code, Err: err})
	}
}

// Result is one item yielded by a Decoder: either a decoded Code, or a
// decode error for a discarded corrupt frame.
type Result struct {
	Code Code
	Err  error
}

func indexByte(buf []byte, b byte) int {
	for i, v := range buf {
		if v == b {
			return i
		}
	}
	return -1
}
