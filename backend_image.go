package docconv

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// decodeImage decodes any raster format the detector classifies as image:
// png, jpeg, gif, bmp, tiff and webp.
func decodeImage(data []byte) (image.Image, string, error) {
	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, name, nil
}

// encodeImage encodes img in the requested raster encoding. JPEG has no
// alpha channel, so transparent areas are flattened onto white first.
func encodeImage(img image.Image, opts Options) ([]byte, error) {
	opts.defaults()
	var buf bytes.Buffer
	var err error
	switch opts.ImageEncoding {
	case EncodingJPEG:
		err = jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: opts.JPEGQuality})
	case EncodingGIF:
		err = gif.Encode(&buf, img, &gif.Options{NumColors: 256})
	case EncodingBMP:
		err = bmp.Encode(&buf, img)
	case EncodingTIFF:
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		err = (&png.Encoder{CompressionLevel: png.BestSpeed}).Encode(&buf, img)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", opts.ImageEncoding, err)
	}
	return buf.Bytes(), nil
}

func flatten(img image.Image) image.Image {
	if _, ok := img.(*image.YCbCr); ok {
		return img
	}
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(out, b, img, b.Min, draw.Over)
	return out
}

// ImageFormat re-encodes a raster image in the requested encoding.
type ImageFormat struct{}

func (ImageFormat) Name() string      { return BackendImageFormat }
func (ImageFormat) Kind() BackendKind { return KindLocal }

func (ImageFormat) Convert(_ context.Context, in *Input) ([]byte, error) {
	img, _, err := decodeImage(in.Data)
	if err != nil {
		return nil, err
	}
	return encodeImage(img, in.Options)
}
