package frame

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

//Decode decodes an encoded still image (jpeg, png, gif, bmp, tiff or webp) into a Frame.
//The returned string is the format name reported by the decoder.
func Decode(data []byte) (*Frame, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("Decode: Could not decode image, got '%w'", err)
	}

	return FromImage(img), format, nil
}
