package ft60x

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Session pipe commands.
const (
	CmdRead   uint8 = 0x01 // read a bounded amount from a pipe
	CmdStream uint8 = 0x02 // stream continuously from a pipe
)

// DefaultStreamSize is the length field sent with CmdStream.
const DefaultStreamSize uint32 = 0x40000000

// controlRequest is sent on the session OUT pipe to arm a data pipe.
type controlRequest struct {
	Index uint32
	Pipe  uint8
	Cmd   uint8
	_     [2]uint8
	Len   uint32
	_     [8]uint8
}

// buildRequest encodes a 20-byte session request.
func buildRequest(index uint32, pipe, cmd uint8, size uint32) ([]byte, error) {
	req := controlRequest{Index: index, Pipe: pipe, Cmd: cmd, Len: size}
	buf := bytes.NewBuffer(make([]byte, 0, binary.Size(req)))
	if err := binary.Write(buf, binary.LittleEndian, req); err != nil {
		return nil, fmt.Errorf("ft60x: encode session request: %w", err)
	}
	return buf.Bytes(), nil
}
