package network

import (
	"errors"
	"fmt"

	"github.com/r3e-network/neo-core/pkg/core/block"
	"github.com/r3e-network/neo-core/pkg/core/transaction"
	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/r3e-network/neo-core/pkg/network/payload"
)

// Message is the complete message sent between nodes.
type Message struct {
	// Flags that represent whether compression is used or not.
	Flags MessageFlag
	// Command is a byte command code.
	Command CommandType

	// Payload sent with the message.
	Payload payload.Payload

	// Compressed message payload.
	compressedPayload []byte
}

// MessageFlag represents compression level of a message payload.
type MessageFlag byte

// Possible message flags.
const (
	Compressed MessageFlag = 1 << iota
	None       MessageFlag = 0
)

// CommandType represents the type of a message command.
type CommandType byte

// Valid protocol commands used to send between nodes.
const (
	// Handshaking.
	CMDVersion CommandType = 0x00
	CMDVerack  CommandType = 0x01

	// Connectivity.
	CMDGetAddr CommandType = 0x10
	CMDAddr    CommandType = 0x11
	CMDPing    CommandType = 0x18
	CMDPong    CommandType = 0x19

	// Synchronization.
	CMDGetHeaders      CommandType = 0x20
	CMDHeaders         CommandType = 0x21
	CMDGetBlocks       CommandType = 0x24
	CMDMempool         CommandType = 0x25
	CMDInv             CommandType = 0x27
	CMDGetData         CommandType = 0x28
	CMDGetBlockByIndex CommandType = 0x29
	CMDNotFound        CommandType = 0x2a
	CMDTX              CommandType = CommandType(payload.TXType)
	CMDBlock           CommandType = CommandType(payload.BlockType)
	CMDExtensible      CommandType = CommandType(payload.ExtensibleType)
	CMDReject          CommandType = 0x2f

	// SPV protocol.
	CMDFilterLoad  CommandType = 0x30
	CMDFilterAdd   CommandType = 0x31
	CMDFilterClear CommandType = 0x32
	CMDMerkleBlock CommandType = 0x38

	// Others.
	CMDAlert CommandType = 0x40
)

const (
	// PayloadMaxSize is the maximum size of a protocol message payload.
	PayloadMaxSize = 0x02000000

	// compressionMinSize is the lower bound to apply compression.
	compressionMinSize = 1024
)

// ErrInvalidPayloadSize is returned for messages with a payload exceeding
// the protocol limit.
var ErrInvalidPayloadSize = errors.New("invalid payload size")

// NewMessage returns a new message with the given payload.
func NewMessage(cmd CommandType, p payload.Payload) *Message {
	return &Message{
		Command: cmd,
		Payload: p,
	}
}

// Decode decodes a Message from the given reader.
func (m *Message) Decode(br *io.BinReader) error {
	m.Flags = MessageFlag(br.ReadB())
	m.Command = CommandType(br.ReadB())
	l := br.ReadVarUint()
	if l > PayloadMaxSize {
		if br.Err != nil {
			return br.Err
		}
		return ErrInvalidPayloadSize
	}
	if br.Err != nil {
		return br.Err
	}
	// The message has no payload.
	if l == 0 {
		return nil
	}
	m.compressedPayload = make([]byte, l)
	br.ReadBytes(m.compressedPayload)
	if br.Err != nil {
		return br.Err
	}
	return m.decodePayload()
}

func (m *Message) decodePayload() error {
	buf := m.compressedPayload
	// Protocol-level compression.
	if m.Flags&Compressed != 0 {
		d, err := decompress(m.compressedPayload)
		if err != nil {
			return err
		}
		buf = d
	}

	r := io.NewBinReaderFromBuf(buf)
	var p payload.Payload
	switch m.Command {
	case CMDVersion:
		p = &payload.Version{}
	case CMDInv, CMDGetData, CMDNotFound:
		p = &payload.Inventory{}
	case CMDAddr:
		p = &payload.AddressList{}
	case CMDBlock:
		p = &block.Block{}
	case CMDGetBlocks:
		p = &payload.GetBlocks{}
	case CMDGetHeaders, CMDGetBlockByIndex:
		p = &payload.GetBlockByIndex{}
	case CMDHeaders:
		p = &payload.Headers{}
	case CMDTX:
		p = &transaction.Transaction{}
	case CMDExtensible:
		p = payload.NewExtensible()
	case CMDPing, CMDPong:
		p = &payload.Ping{}
	default:
		return fmt.Errorf("can't decode command %s", m.Command.String())
	}
	p.DecodeBinary(r)
	if r.Err == nil || errors.Is(r.Err, payload.ErrTooManyHeaders) {
		m.Payload = p
	}

	return r.Err
}

// Encode encodes a Message to any given BinWriter.
func (m *Message) Encode(br *io.BinWriter) error {
	if err := m.tryCompressPayload(); err != nil {
		return err
	}
	br.WriteB(byte(m.Flags))
	br.WriteB(byte(m.Command))
	if m.compressedPayload != nil {
		br.WriteVarBytes(m.compressedPayload)
	} else {
		br.WriteB(0)
	}
	if br.Err != nil {
		return br.Err
	}
	return nil
}

// Bytes serializes a Message into the new allocated buffer and returns it.
func (m *Message) Bytes() ([]byte, error) {
	w := io.NewBufBinWriter()
	if err := m.Encode(w.BinWriter); err != nil {
		return nil, err
	}
	if w.Err != nil {
		return nil, w.Err
	}
	return w.Bytes(), nil
}

// tryCompressPayload sets the message's compressed payload to the serialized
// payload and compresses it in case its size exceeds compressionMinSize.
func (m *Message) tryCompressPayload() error {
	if m.Payload == nil {
		return nil
	}
	if m.compressedPayload != nil {
		return nil
	}
	buf := io.NewBufBinWriter()
	m.Payload.EncodeBinary(buf.BinWriter)
	if buf.Err != nil {
		return buf.Err
	}
	compressedPayload := buf.Bytes()
	if m.Flags&Compressed == 0 {
		switch m.Payload.(type) {
		case *payload.Headers, *payload.AddressList, *block.Block,
			*transaction.Transaction, *payload.Extensible:
			if len(compressedPayload) > compressionMinSize {
				p, err := compress(compressedPayload)
				if err != nil {
					return err
				}
				compressedPayload = p
				m.Flags |= Compressed
			}
		}
	}
	m.compressedPayload = compressedPayload
	return nil
}

// String implements the fmt.Stringer interface.
func (c CommandType) String() string {
	switch c {
	case CMDVersion:
		return "CMDVersion"
	case CMDVerack:
		return "CMDVerack"
	case CMDGetAddr:
		return "CMDGetAddr"
	case CMDAddr:
		return "CMDAddr"
	case CMDPing:
		return "CMDPing"
	case CMDPong:
		return "CMDPong"
	case CMDGetHeaders:
		return "CMDGetHeaders"
	case CMDHeaders:
		return "CMDHeaders"
	case CMDGetBlocks:
		return "CMDGetBlocks"
	case CMDMempool:
		return "CMDMempool"
	case CMDInv:
		return "CMDInv"
	case CMDGetData:
		return "CMDGetData"
	case CMDGetBlockByIndex:
		return "CMDGetBlockByIndex"
	case CMDNotFound:
		return "CMDNotFound"
	case CMDTX:
		return "CMDTX"
	case CMDBlock:
		return "CMDBlock"
	case CMDExtensible:
		return "CMDExtensible"
	case CMDReject:
		return "CMDReject"
	case CMDFilterLoad:
		return "CMDFilterLoad"
	case CMDFilterAdd:
		return "CMDFilterAdd"
	case CMDFilterClear:
		return "CMDFilterClear"
	case CMDMerkleBlock:
		return "CMDMerkleBlock"
	case CMDAlert:
		return "CMDAlert"
	default:
		return fmt.Sprintf("UNKNOWN (0x%02x)", byte(c))
	}
}
