// Package model holds static meshes: the vertex layout shared with the
// renderer, the binary model format and the COLLADA conversion that produces
// it.
package model

import "unsafe"

// VertexSizeBytes is the size of one StaticVertex, both in memory and on disk.
const VertexSizeBytes = 32

// StaticVertex is an interleaved position, normal and texture coordinate.
type StaticVertex struct {
	Px, Py, Pz float32
	Nx, Ny, Nz float32
	Tu, Tv     float32
}

// DefaultVertex sits at the origin with a normal along +Z.
func DefaultVertex() StaticVertex {
	return StaticVertex{Nz: 1}
}

func NewStaticVertex(p [3]float32, n [3]float32, t [2]float32) StaticVertex {
	return StaticVertex{
		Px: p[0], Py: p[1], Pz: p[2],
		Nx: n[0], Ny: n[1], Nz: n[2],
		Tu: t[0], Tv: t[1],
	}
}

// VertexBytes views the vertices as raw bytes without copying.
func VertexBytes(vertices []StaticVertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*VertexSizeBytes)
}
