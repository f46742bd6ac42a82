package binlog

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// fileMagic is the four-byte header of every on-disk binlog file.
var fileMagic = []byte{0xfe, 'b', 'i', 'n'}

// OpenFile reads an on-disk binlog file, validates its magic and
// returns a decoder fed with the file's event stream. The logical file
// name of the context starts as the file's base name.
func OpenFile(path string, cfg Config) (*Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewFileDecoder(f, cfg)
}

// NewFileDecoder consumes a binlog file image from rd: the 4-byte
// magic followed by events.
func NewFileDecoder(rd io.Reader, cfg Config) (*Decoder, error) {
	magic := make([]byte, 4)
	if _, err := io.ReadFull(rd, magic); err != nil {
		return nil, fmt.Errorf("binlog: reading file magic: %w", err)
	}
	if !bytes.Equal(magic, fileMagic) {
		return nil, fmt.Errorf("binlog: bad file magic %x", magic)
	}
	buf, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}
	d := NewDecoder(cfg)
	d.ctx.position = 4
	d.Feed(buf)
	return d, nil
}
