package models

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/eldtechnologies/ledgerchat/internal/address"
)

// Kind names an account schema.
type Kind string

const (
	KindContact            Kind = "contact"
	KindDirectConversation Kind = "direct_conversation"
	KindGroup              Kind = "group"
	KindGroupContact       Kind = "group_contact"
)

var (
	ErrUnknownAccount = errors.New("unknown account discriminator")
	ErrWrongKind      = errors.New("account is of a different kind")
	ErrMalformed      = errors.New("malformed account data")
)

// Account is implemented by the four record types.
type Account interface {
	Kind() Kind
	encode(e *encoder)
	decode(d *decoder)
}

const discriminatorLen = 8

// discriminator is the first 8 bytes of sha256("account:<TypeName>").
func discriminator(typeName string) [discriminatorLen]byte {
	sum := sha256.Sum256([]byte("account:" + typeName))
	var d [discriminatorLen]byte
	copy(d[:], sum[:discriminatorLen])
	return d
}

var (
	discriminators = map[Kind][discriminatorLen]byte{
		KindContact:            discriminator("Contact"),
		KindDirectConversation: discriminator("DirectConversation"),
		KindGroup:              discriminator("Group"),
		KindGroupContact:       discriminator("GroupContact"),
	}
	kindsByDiscriminator = func() map[[discriminatorLen]byte]Kind {
		m := make(map[[discriminatorLen]byte]Kind, len(discriminators))
		for k, d := range discriminators {
			m[d] = k
		}
		return m
	}()
)

func newAccount(kind Kind) Account {
	switch kind {
	case KindContact:
		return &Contact{}
	case KindDirectConversation:
		return &DirectConversation{}
	case KindGroup:
		return &Group{}
	case KindGroupContact:
		return &GroupContact{}
	}
	return nil
}

// Encode serializes an account with its discriminator prefix.
func Encode(a Account) []byte {
	d := discriminators[a.Kind()]
	e := &encoder{}
	e.buf.Write(d[:])
	a.encode(e)
	return e.buf.Bytes()
}

// Decode parses any account, dispatching on the discriminator.
func Decode(data []byte) (Account, error) {
	if len(data) < discriminatorLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformed, len(data))
	}
	var d [discriminatorLen]byte
	copy(d[:], data)
	kind, ok := kindsByDiscriminator[d]
	if !ok {
		return nil, fmt.Errorf("%w: %x", ErrUnknownAccount, d)
	}

	a := newAccount(kind)
	dec := &decoder{data: data[discriminatorLen:]}
	a.decode(dec)
	if dec.err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, kind, dec.err)
	}
	if dec.off != len(dec.data) {
		return nil, fmt.Errorf("%w: %s: %d trailing bytes", ErrMalformed, kind, len(dec.data)-dec.off)
	}
	return a, nil
}

// DecodeAs parses data into dst, failing with ErrWrongKind if the stored
// discriminator names another schema.
func DecodeAs(data []byte, dst Account) error {
	a, err := Decode(data)
	if err != nil {
		return err
	}
	if a.Kind() != dst.Kind() {
		return fmt.Errorf("%w: want %s, got %s", ErrWrongKind, dst.Kind(), a.Kind())
	}
	switch v := dst.(type) {
	case *Contact:
		*v = *a.(*Contact)
	case *DirectConversation:
		*v = *a.(*DirectConversation)
	case *Group:
		*v = *a.(*Group)
	case *GroupContact:
		*v = *a.(*GroupContact)
	}
	return nil
}

type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) u8(v uint8) { e.buf.WriteByte(v) }

func (e *encoder) u16(v uint16) {
	e.buf.Write(binary.LittleEndian.AppendUint16(nil, v))
}

func (e *encoder) u32(v uint32) {
	e.buf.Write(binary.LittleEndian.AppendUint32(nil, v))
}

func (e *encoder) u64(v uint64) {
	e.buf.Write(binary.LittleEndian.AppendUint64(nil, v))
}

func (e *encoder) address(a address.Address) { e.buf.Write(a[:]) }

func (e *encoder) string(s string) {
	e.u32(uint32(len(s)))
	e.buf.WriteString(s)
}

func (e *encoder) strings(list []string) {
	e.u32(uint32(len(list)))
	for _, s := range list {
		e.string(s)
	}
}

// decoder reads fields in order; the first short read sticks in err and
// every later read returns a zero value.
type decoder struct {
	data []byte
	off  int
	err  error
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.data)-d.off < n {
		d.err = fmt.Errorf("need %d bytes at offset %d, have %d", n, d.off, len(d.data)-d.off)
		return nil
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u8() uint8 {
	if b := d.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *decoder) u16() uint16 {
	if b := d.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (d *decoder) u32() uint32 {
	if b := d.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (d *decoder) u64() uint64 {
	if b := d.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (d *decoder) address() address.Address {
	var a address.Address
	if b := d.take(address.Size); b != nil {
		copy(a[:], b)
	}
	return a
}

func (d *decoder) string() string {
	n := d.u32()
	if b := d.take(int(n)); b != nil {
		return string(b)
	}
	return ""
}

func (d *decoder) strings() []string {
	n := d.u32()
	if d.err != nil {
		return nil
	}
	// Each entry carries at least a 4-byte length prefix.
	if uint64(n)*4 > uint64(len(d.data)-d.off) {
		d.err = fmt.Errorf("list of %d entries exceeds remaining %d bytes", n, len(d.data)-d.off)
		return nil
	}
	list := make([]string, 0, n)
	for i := uint32(0); i < n && d.err == nil; i++ {
		list = append(list, d.string())
	}
	return list
}
