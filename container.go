package dbc

import (
	"encoding/binary"
	"fmt"

	"github.com/consensys/dbc/dbf"
)

// ChecksumSize is the size of the checksum between the header and the payload.
const ChecksumSize = 4

// Container is a DATASUS .DBC file split into its parts.
type Container struct {
	// Header is the uncompressed table header.
	Header []byte
	// Checksum is stored as found; nothing validates it.
	Checksum uint32
	// Payload is the implode stream of the record area.
	Payload       []byte
	PayloadOffset int
}

// ParseContainer splits a DATASUS file. It reads the header length from the
// table header and checks the parts fit in file.
func ParseContainer(file []byte) (*Container, error) {
	hl, err := dbf.HeaderLength(file)
	if err != nil {
		return nil, err
	}
	if hl < 33 {
		return nil, &dbf.Error{Offset: 8, Err: fmt.Errorf("%w: header length %d", dbf.ErrMalformedHeader, hl)}
	}

	payload := hl + ChecksumSize
	if payload > len(file) {
		return nil, &dbf.Error{
			Offset: 8,
			Err:    fmt.Errorf("%w: header length %d leaves no payload in a %d byte file", dbf.ErrMalformedHeader, hl, len(file)),
		}
	}

	return &Container{
		Header:        file[:hl],
		Checksum:      binary.LittleEndian.Uint32(file[hl:payload]),
		Payload:       file[payload:],
		PayloadOffset: payload,
	}, nil
}
