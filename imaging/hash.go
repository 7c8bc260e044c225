// Package imaging provides the content fingerprint used by the refresh loop
// to decide whether a freshly generated image actually needs a panel write.
package imaging

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"image"

	"github.com/pkg/errors"
)

// ComputeImageHash returns a fingerprint of the image's pixel content.
// Images with identical bounds and identical RGBA values hash equal,
// regardless of the underlying image type.
func ComputeImageHash(img image.Image) (string, error) {
	if img == nil {
		return "", errors.New("imaging: nil image")
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return "", errors.New("imaging: empty image bounds")
	}
	h := sha256.New()
	var dims [16]byte
	binary.BigEndian.PutUint32(dims[0:], uint32(bounds.Min.X))
	binary.BigEndian.PutUint32(dims[4:], uint32(bounds.Min.Y))
	binary.BigEndian.PutUint32(dims[8:], uint32(bounds.Dx()))
	binary.BigEndian.PutUint32(dims[12:], uint32(bounds.Dy()))
	h.Write(dims[:])

	var px [8]byte
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			binary.BigEndian.PutUint16(px[0:], uint16(r))
			binary.BigEndian.PutUint16(px[2:], uint16(g))
			binary.BigEndian.PutUint16(px[4:], uint16(b))
			binary.BigEndian.PutUint16(px[6:], uint16(a))
			h.Write(px[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
