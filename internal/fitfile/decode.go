// Package fitfile decodes Flexible and Interoperable Data Transfer (FIT)
// activity files into the message model the export pipeline works on.
// Messages and fields outside the decoder's profile slice are skipped, and
// recoverable oddities surface as warnings rather than errors.
package fitfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/ganot/trainlog/internal/domain/activity"
)

var (
	// ErrMalformed indicates the bytes cannot be parsed as a FIT file.
	ErrMalformed = errors.New("malformed fit file")
)

// Decoder decodes activity files from disk. It is the concrete decoder the
// export pipeline runs against.
type Decoder struct{}

// NewDecoder returns a file-backed Decoder.
func NewDecoder() Decoder { return Decoder{} }

// DecodeFile decodes the file at path.
func (Decoder) DecodeFile(path string) (*activity.Record, []string, error) {
	return DecodeFile(path)
}

// DecodeFile reads and decodes one activity file.
func DecodeFile(path string) (*activity.Record, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return Decode(data)
}

// Decode decodes a complete file image. The returned warnings report
// recoverable oddities such as checksum mismatches; they never imply the
// record is unusable.
func Decode(data []byte) (*activity.Record, []string, error) {
	d := &decoder{data: data, rec: &activity.Record{}}
	if err := d.run(); err != nil {
		return nil, d.warnings, err
	}
	return d.rec, d.warnings, nil
}

type baseType byte

const (
	btEnum    baseType = 0x00
	btSint8   baseType = 0x01
	btUint8   baseType = 0x02
	btSint16  baseType = 0x83
	btUint16  baseType = 0x84
	btSint32  baseType = 0x85
	btUint32  baseType = 0x86
	btString  baseType = 0x07
	btFloat32 baseType = 0x88
	btFloat64 baseType = 0x89
	btUint8z  baseType = 0x0A
	btUint16z baseType = 0x8B
	btUint32z baseType = 0x8C
	btByte    baseType = 0x0D
	btSint64  baseType = 0x8E
	btUint64  baseType = 0x8F
	btUint64z baseType = 0x90
)

func (bt baseType) size() int {
	switch bt {
	case btEnum, btSint8, btUint8, btString, btUint8z, btByte:
		return 1
	case btSint16, btUint16, btUint16z:
		return 2
	case btSint32, btUint32, btFloat32, btUint32z:
		return 4
	case btFloat64, btSint64, btUint64, btUint64z:
		return 8
	}
	return 0
}

type fieldDef struct {
	num  byte
	size byte
	base baseType
}

type definition struct {
	global    uint16
	bigEndian bool
	fields    []fieldDef
	devBytes  int
	size      int
}

type decoder struct {
	data []byte
	off  int
	end  int

	defs      [16]*definition
	lastTS    uint32
	hasTS     bool
	devWarned bool

	warnings []string
	rec      *activity.Record
}

func (d *decoder) warnf(format string, args ...any) {
	d.warnings = append(d.warnings, fmt.Sprintf(format, args...))
}

func (d *decoder) take(n int) ([]byte, error) {
	if d.off+n > d.end {
		return nil, fmt.Errorf("%w: truncated record at offset %d", ErrMalformed, d.off)
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) run() error {
	if len(d.data) < 12 {
		return fmt.Errorf("%w: %d bytes is too short for a header", ErrMalformed, len(d.data))
	}
	hdrSize := int(d.data[0])
	if hdrSize != 12 && hdrSize != 14 {
		return fmt.Errorf("%w: header size %d", ErrMalformed, hdrSize)
	}
	if len(d.data) < hdrSize {
		return fmt.Errorf("%w: truncated header", ErrMalformed)
	}
	if string(d.data[8:12]) != ".FIT" {
		return fmt.Errorf("%w: bad magic", ErrMalformed)
	}
	dataSize := int(binary.LittleEndian.Uint32(d.data[4:8]))
	if hdrSize == 14 {
		if want := binary.LittleEndian.Uint16(d.data[12:14]); want != 0 && crc16(d.data[:12]) != want {
			d.warnf("header checksum mismatch")
		}
	}
	d.off = hdrSize
	d.end = hdrSize + dataSize
	if d.end+2 > len(d.data) {
		return fmt.Errorf("%w: data size %d exceeds file", ErrMalformed, dataSize)
	}
	if want := binary.LittleEndian.Uint16(d.data[d.end : d.end+2]); crc16(d.data[:d.end]) != want {
		d.warnf("file checksum mismatch")
	}
	for d.off < d.end {
		if err := d.record(); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) record() error {
	hdr, err := d.take(1)
	if err != nil {
		return err
	}
	h := hdr[0]
	switch {
	case h&0x80 != 0:
		// Compressed timestamp header: two bits of local type, five
		// bits of offset from the last seen timestamp.
		def := d.defs[(h>>5)&0x03]
		if def == nil {
			return fmt.Errorf("%w: data message for undefined local type %d", ErrMalformed, (h>>5)&0x03)
		}
		var inject *time.Time
		if d.hasTS {
			offset := uint32(h & 0x1F)
			ts := (d.lastTS &^ 0x1F) | offset
			if offset < d.lastTS&0x1F {
				ts += 0x20
			}
			d.lastTS = ts
			tv := fitEpoch.Add(time.Duration(ts) * time.Second)
			inject = &tv
		} else {
			d.warnf("compressed timestamp before any timestamp field")
		}
		return d.dataMessage(def, inject)
	case h&0x40 != 0:
		return d.definition(h&0x0F, h&0x20 != 0)
	default:
		def := d.defs[h&0x0F]
		if def == nil {
			return fmt.Errorf("%w: data message for undefined local type %d", ErrMalformed, h&0x0F)
		}
		return d.dataMessage(def, nil)
	}
}

func (d *decoder) definition(local byte, withDev bool) error {
	head, err := d.take(5)
	if err != nil {
		return err
	}
	arch := head[1]
	if arch > 1 {
		return fmt.Errorf("%w: architecture %d", ErrMalformed, arch)
	}
	def := &definition{bigEndian: arch == 1}
	if def.bigEndian {
		def.global = binary.BigEndian.Uint16(head[2:4])
	} else {
		def.global = binary.LittleEndian.Uint16(head[2:4])
	}
	count := int(head[4])
	raw, err := d.take(count * 3)
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		f := fieldDef{num: raw[i*3], size: raw[i*3+1], base: baseType(raw[i*3+2])}
		if f.base.size() == 0 {
			return fmt.Errorf("%w: unknown base type 0x%02X", ErrMalformed, byte(f.base))
		}
		if f.size == 0 {
			return fmt.Errorf("%w: zero-size field %d in message %d", ErrMalformed, f.num, def.global)
		}
		def.fields = append(def.fields, f)
		def.size += int(f.size)
	}
	if withDev {
		c, err := d.take(1)
		if err != nil {
			return err
		}
		n := int(c[0])
		devRaw, err := d.take(n * 3)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			def.devBytes += int(devRaw[i*3+1])
		}
		def.size += def.devBytes
		if n > 0 && !d.devWarned {
			d.warnf("developer fields present; their values are skipped")
			d.devWarned = true
		}
	}
	d.defs[local] = def
	return nil
}

func (d *decoder) dataMessage(def *definition, injectTS *time.Time) error {
	payload, err := d.take(def.size)
	if err != nil {
		return err
	}
	prof, known := messages[def.global]
	var fields map[string]any
	pos := 0
	for _, f := range def.fields {
		raw := payload[pos : pos+int(f.size)]
		pos += int(f.size)
		v, ok := decodeValue(raw, f.base, def.bigEndian)
		if f.num == 253 && ok {
			if u, uok := toUint(v); uok {
				d.lastTS = uint32(u)
				d.hasTS = true
			}
		}
		if !known || !ok {
			continue
		}
		pf, have := prof.fields[f.num]
		if !have {
			continue
		}
		if fields == nil {
			fields = make(map[string]any)
		}
		fields[pf.name] = pf.convert(v)
	}
	if !known {
		return nil
	}
	if injectTS != nil {
		if pf, have := prof.fields[253]; have {
			if fields == nil {
				fields = make(map[string]any)
			}
			if _, exists := fields[pf.name]; !exists {
				fields[pf.name] = *injectTS
			}
		}
	}
	if len(fields) > 0 {
		d.rec.Messages = append(d.rec.Messages, activity.Message{Name: prof.name, Fields: fields})
	}
	return nil
}

// decodeValue decodes one field's bytes. ok is false when the bytes hold the
// base type's invalid sentinel.
func decodeValue(raw []byte, bt baseType, bigEndian bool) (any, bool) {
	switch bt {
	case btString:
		if i := bytes.IndexByte(raw, 0); i >= 0 {
			raw = raw[:i]
		}
		if len(raw) == 0 {
			return nil, false
		}
		return string(raw), true
	case btByte:
		allInvalid := true
		for _, b := range raw {
			if b != 0xFF {
				allInvalid = false
				break
			}
		}
		if allInvalid {
			return nil, false
		}
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, true
	}
	n := bt.size()
	count := len(raw) / n
	if count == 0 {
		return nil, false
	}
	if count == 1 {
		return decodeScalar(raw[:n], bt, bigEndian)
	}
	var vals []any
	for i := 0; i < count; i++ {
		if v, ok := decodeScalar(raw[i*n:(i+1)*n], bt, bigEndian); ok {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return nil, false
	}
	return vals, true
}

func decodeScalar(raw []byte, bt baseType, bigEndian bool) (any, bool) {
	var u uint64
	switch len(raw) {
	case 1:
		u = uint64(raw[0])
	case 2:
		if bigEndian {
			u = uint64(binary.BigEndian.Uint16(raw))
		} else {
			u = uint64(binary.LittleEndian.Uint16(raw))
		}
	case 4:
		if bigEndian {
			u = uint64(binary.BigEndian.Uint32(raw))
		} else {
			u = uint64(binary.LittleEndian.Uint32(raw))
		}
	case 8:
		if bigEndian {
			u = binary.BigEndian.Uint64(raw)
		} else {
			u = binary.LittleEndian.Uint64(raw)
		}
	}
	switch bt {
	case btEnum, btUint8:
		return u, u != 0xFF
	case btUint8z:
		return u, u != 0
	case btSint8:
		return int64(int8(u)), u != 0x7F
	case btUint16:
		return u, u != 0xFFFF
	case btUint16z:
		return u, u != 0
	case btSint16:
		return int64(int16(u)), u != 0x7FFF
	case btUint32:
		return u, u != 0xFFFFFFFF
	case btUint32z:
		return u, u != 0
	case btSint32:
		return int64(int32(u)), u != 0x7FFFFFFF
	case btFloat32:
		return float64(math.Float32frombits(uint32(u))), uint32(u) != 0xFFFFFFFF
	case btFloat64:
		return math.Float64frombits(u), u != 0xFFFFFFFFFFFFFFFF
	case btSint64:
		return int64(u), int64(u) != math.MaxInt64
	case btUint64:
		return u, u != 0xFFFFFFFFFFFFFFFF
	case btUint64z:
		return u, u != 0
	}
	return nil, false
}
