package stackitem

import (
	"errors"
	"fmt"

	"github.com/r3e-network/neo-core/pkg/encoding/bigint"
	"github.com/r3e-network/neo-core/pkg/io"
)

// MaxDeserialized is the maximum number of items deserialization can process.
// It's a VM limit in fact, but simple arrays of this size are inexpressive
// over the binary format, so it's a good limit anyway.
const MaxDeserialized = 2048

// ErrRecursive is returned upon an attempt to serialize some recursive item
// (like an array including an item with the reference to the same array).
var ErrRecursive = errors.New("recursive item")

// ErrUnserializable is returned upon an attempt to serialize some item that
// can't be serialized (like Interop item or Pointer).
var ErrUnserializable = errors.New("unserializable")

// SerializationContext is a serialization context.
type SerializationContext struct {
	uv           [9]byte
	data         []byte
	allowInvalid bool
	limit        int
	seen         map[Item]sliceNoPointer
}

// sliceNoPointer represents a subslice of a known slice where start and end
// are offsets in the serialized data (or number of items for the CountOnly
// mode).
type sliceNoPointer struct {
	start, end int
	itemsCount int
}

// NewSerializationContext returns reusable stack item serialization context.
func NewSerializationContext() *SerializationContext {
	return &SerializationContext{
		limit: MaxSize,
		seen:  make(map[Item]sliceNoPointer, typicalNumOfItems),
	}
}

// Serialize returns a byte slice with the serialized item or an error. The
// result is limited in size to MaxSize.
func Serialize(item Item) ([]byte, error) {
	sc := SerializationContext{
		limit: MaxSize,
		seen:  make(map[Item]sliceNoPointer, typicalNumOfItems),
	}
	err := sc.serialize(item)
	if err != nil {
		return nil, err
	}
	return sc.data, nil
}

// SerializeLimited returns a byte slice with the serialized item, using the
// provided limit instead of MaxSize.
func SerializeLimited(item Item, limit int) ([]byte, error) {
	sc := SerializationContext{
		limit: MaxSize,
		seen:  make(map[Item]sliceNoPointer, typicalNumOfItems),
	}
	if limit > 0 {
		sc.limit = limit
	}
	err := sc.serialize(item)
	if err != nil {
		return nil, err
	}
	return sc.data, nil
}

// EncodeBinary encodes the given Item into the given BinWriter. It's
// similar to io.Serializable's EncodeBinary but works with Item
// interface.
func EncodeBinary(item Item, w *io.BinWriter) {
	data, err := Serialize(item)
	if err != nil {
		w.Err = err
		return
	}
	w.WriteBytes(data)
}

// EncodeBinaryProtected encodes the given Item into the given BinWriter. It's
// similar to EncodeBinary but allows to encode interop items (only type,
// value is lost) and doesn't return any errors in the writer. Instead, if an
// error (like recursive array) is encountered, it just writes the special
// InvalidT type of the element.
func EncodeBinaryProtected(item Item, w *io.BinWriter) {
	sc := SerializationContext{
		allowInvalid: true,
		limit:        MaxSize,
		seen:         make(map[Item]sliceNoPointer, typicalNumOfItems),
	}
	err := sc.serialize(item)
	if err != nil {
		w.WriteBytes([]byte{byte(InvalidT)})
		return
	}
	w.WriteBytes(sc.data)
}

// Serialize returns the results of the item serialization using the context.
// The returned slice is only valid until the next Serialize invocation.
func (w *SerializationContext) Serialize(item Item, protected bool) ([]byte, error) {
	w.data = w.data[:0]
	for k := range w.seen {
		delete(w.seen, k)
	}
	w.allowInvalid = protected
	err := w.serialize(item)
	if err != nil {
		if protected {
			if w.data != nil {
				w.data = w.data[:0]
			}
			w.data = append(w.data, byte(InvalidT))
			return w.data, nil
		}
		return nil, err
	}
	return w.data, nil
}

func (w *SerializationContext) writeArray(item Item, arr []Item, start int) error {
	w.seen[item] = sliceNoPointer{}
	w.appendVarUint(uint64(len(arr)))
	for i := range arr {
		if err := w.serialize(arr[i]); err != nil {
			return err
		}
	}
	w.seen[item] = sliceNoPointer{start: start, end: len(w.data)}
	return nil
}

func (w *SerializationContext) serialize(item Item) error {
	if v, ok := w.seen[item]; ok {
		if v.start == v.end {
			return ErrRecursive
		}
		if len(w.data)+v.end-v.start > w.limit {
			return ErrTooBig
		}
		w.data = append(w.data, w.data[v.start:v.end]...)
		return nil
	}

	start := len(w.data)
	switch t := item.(type) {
	case *ByteArray:
		w.data = append(w.data, byte(ByteArrayT))
		w.appendVarUint(uint64(len(*t)))
		w.data = append(w.data, *t...)
	case *Buffer:
		w.data = append(w.data, byte(BufferT))
		w.appendVarUint(uint64(len(*t)))
		w.data = append(w.data, *t...)
	case Bool:
		w.data = append(w.data, byte(BooleanT))
		if t {
			w.data = append(w.data, 1)
		} else {
			w.data = append(w.data, 0)
		}
	case *BigInteger:
		w.data = append(w.data, byte(IntegerT))
		ln := len(w.data)
		w.data = append(w.data, 0)
		data := bigint.ToPreallocatedBytes(t.Big(), w.data[len(w.data):])
		w.data[ln] = byte(len(data))
		w.data = append(w.data, data...)
	case *Interop:
		if w.allowInvalid {
			w.data = append(w.data, byte(InteropT))
		} else {
			return fmt.Errorf("%w: Interop", ErrUnserializable)
		}
	case *Array:
		w.data = append(w.data, byte(ArrayT))
		if err := w.writeArray(item, t.value, start); err != nil {
			return err
		}
	case *Struct:
		w.data = append(w.data, byte(StructT))
		if err := w.writeArray(item, t.value, start); err != nil {
			return err
		}
	case *Map:
		w.seen[item] = sliceNoPointer{}
		w.data = append(w.data, byte(MapT))
		w.appendVarUint(uint64(len(t.value)))
		for i := range t.value {
			if err := w.serialize(t.value[i].Key); err != nil {
				return err
			}
			if err := w.serialize(t.value[i].Value); err != nil {
				return err
			}
		}
		w.seen[item] = sliceNoPointer{start: start, end: len(w.data)}
	case Null:
		w.data = append(w.data, byte(AnyT))
	case nil:
		if w.allowInvalid {
			w.data = append(w.data, byte(InvalidT))
		} else {
			return fmt.Errorf("%w: nil", ErrUnserializable)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnserializable, item.String())
	}

	if len(w.data) > w.limit {
		return errTooBigSize
	}
	return nil
}

func (w *SerializationContext) appendVarUint(val uint64) {
	n := io.PutVarUint(w.uv[:], val)
	w.data = append(w.data, w.uv[:n]...)
}

// Deserialize returns an Item deserialized from the given byte slice.
func Deserialize(data []byte) (Item, error) {
	r := io.NewBinReaderFromBuf(data)
	item := DecodeBinary(r)
	if r.Err != nil {
		return nil, r.Err
	}
	return item, nil
}

// DecodeBinary decodes the previously serialized Item from the given
// reader. It's similar to the io.Serializable's DecodeBinary() but implemented
// as a function because Item itself is an interface. Caveat: always check
// reader's error value before using the returned Item.
func DecodeBinary(r *io.BinReader) Item {
	return decodeBinary(r, false)
}

// DecodeBinaryProtected is similar to DecodeBinary but allows Interop and
// Invalid values to be present (making it symmetric to
// EncodeBinaryProtected).
func DecodeBinaryProtected(r *io.BinReader) Item {
	return decodeBinary(r, true)
}

func decodeBinary(r *io.BinReader, allowInvalid bool) Item {
	var depth = 1
	item, _ := decodeItem(r, allowInvalid, &depth, MaxDeserialized)
	return item
}

func decodeItem(r *io.BinReader, allowInvalid bool, depth *int, limit int) (Item, int) {
	var t = Type(r.ReadB())
	if r.Err != nil {
		return nil, 0
	}
	if *depth > limit {
		r.Err = errTooBigElements
		return nil, 0
	}

	switch t {
	case ByteArrayT, BufferT:
		data := r.ReadVarBytes(MaxSize)
		if t == ByteArrayT {
			return NewByteArray(data), 1
		}
		return NewBuffer(data), 1
	case BooleanT:
		var b = r.ReadBool()
		return NewBool(b), 1
	case IntegerT:
		data := r.ReadVarBytes(bigint.MaxBytesLen)
		if r.Err == nil && len(data) > MaxBigIntegerSizeBits/8 {
			r.Err = errTooBigInteger
			return nil, 0
		}
		num := bigint.FromBytes(data)
		return NewBigInteger(num), 1
	case ArrayT, StructT:
		size := int(r.ReadVarUint())
		if r.Err != nil {
			return nil, 0
		}
		if size > limit-*depth {
			r.Err = errTooBigElements
			return nil, 0
		}
		var sum = 1
		arr := make([]Item, size)
		for i := 0; i < size; i++ {
			*depth++
			var itemCount int
			arr[i], itemCount = decodeItem(r, allowInvalid, depth, limit)
			if r.Err != nil {
				return nil, 0
			}
			sum += itemCount
		}
		if t == ArrayT {
			return NewArray(arr), sum
		}
		return NewStruct(arr), sum
	case MapT:
		size := int(r.ReadVarUint())
		if r.Err != nil {
			return nil, 0
		}
		if size > (limit-*depth)/2 {
			r.Err = errTooBigElements
			return nil, 0
		}
		var sum = 1
		m := NewMap()
		for i := 0; i < size; i++ {
			*depth += 2
			key, itemCount := decodeItem(r, allowInvalid, depth, limit)
			if r.Err != nil {
				return nil, 0
			}
			sum += itemCount
			value, itemCount := decodeItem(r, allowInvalid, depth, limit)
			if r.Err != nil {
				return nil, 0
			}
			sum += itemCount
			if err := IsValidMapKey(key); err != nil {
				r.Err = err
				return nil, 0
			}
			m.Add(key, value)
		}
		return m, sum
	case AnyT:
		return Null{}, 1
	case InteropT:
		if allowInvalid {
			return NewInterop(nil), 1
		}
		fallthrough
	default:
		if t == InvalidT && allowInvalid {
			return nil, 1
		}
		r.Err = fmt.Errorf("%w: %v", ErrInvalidType, t)
		return nil, 0
	}
}

// DeserializeLimited returns an Item deserialized from the given byte slice
// allowing the provided limit of stack items.
func DeserializeLimited(data []byte, limit int) (Item, error) {
	if limit <= 0 || limit > MaxDeserialized {
		limit = MaxDeserialized
	}
	r := io.NewBinReaderFromBuf(data)
	var depth = 1
	item, _ := decodeItem(r, false, &depth, limit)
	if r.Err != nil {
		return nil, r.Err
	}
	return item, nil
}

// SerializeConvertible serializes Convertible into a byte slice.
func SerializeConvertible(conv Convertible) ([]byte, error) {
	item, err := conv.ToStackItem()
	if err != nil {
		return nil, err
	}
	return Serialize(item)
}

// DeserializeConvertible deserializes Convertible from a byte slice.
func DeserializeConvertible(data []byte, conv Convertible) error {
	item, err := Deserialize(data)
	if err != nil {
		return err
	}
	return conv.FromStackItem(item)
}
