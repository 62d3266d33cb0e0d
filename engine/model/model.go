package model

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// Model is a named list of triangle-list vertices.
type Model struct {
	Name     string
	Vertices []StaticVertex
}

func New(name string, vertices []StaticVertex) *Model {
	return &Model{Name: name, Vertices: vertices}
}

// Merge concatenates the vertices of models, in order, under a new name.
func Merge(name string, models []*Model) *Model {
	total := 0
	for _, m := range models {
		total += len(m.Vertices)
	}
	vertices := make([]StaticVertex, 0, total)
	for _, m := range models {
		vertices = append(vertices, m.Vertices...)
	}
	return &Model{Name: name, Vertices: vertices}
}

// Encode writes the model as: u32 name length, name bytes, u32 vertex count,
// then the vertices. All integers and floats are little endian.
func (m *Model) Encode(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(m.Name))); err != nil {
		return err
	}
	if _, err := io.WriteString(w, m.Name); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(m.Vertices))); err != nil {
		return err
	}
	if len(m.Vertices) == 0 {
		return nil
	}
	return binary.Write(w, binary.LittleEndian, m.Vertices)
}

func (m *Model) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(8 + len(m.Name) + len(m.Vertices)*VertexSizeBytes)
	if err := m.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *Model) UnmarshalBinary(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*m = *decoded
	return nil
}

// Decode parses bytes produced by Encode. Trailing bytes are rejected.
func Decode(data []byte) (*Model, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("model data too short: %d bytes", len(data))
	}
	nameLen := int(binary.LittleEndian.Uint32(data))
	data = data[4:]
	if nameLen > len(data)-4 {
		return nil, fmt.Errorf("model name length %d exceeds data", nameLen)
	}
	name := data[:nameLen]
	if !utf8.Valid(name) {
		return nil, fmt.Errorf("model name is not valid UTF-8")
	}
	data = data[nameLen:]
	count := int(binary.LittleEndian.Uint32(data))
	data = data[4:]
	if count*VertexSizeBytes != len(data) {
		return nil, fmt.Errorf("model %q declares %d vertices but carries %d bytes", name, count, len(data))
	}
	vertices := make([]StaticVertex, count)
	if count > 0 {
		if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, vertices); err != nil {
			return nil, err
		}
	}
	return &Model{Name: string(name), Vertices: vertices}, nil
}
