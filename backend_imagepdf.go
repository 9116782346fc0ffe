package docconv

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ImagePDF wraps a raster image into a single page PDF with pdfcpu. JPEG and
// PNG are embedded as they are; other encodings are converted to PNG first.
type ImagePDF struct{}

func (ImagePDF) Name() string      { return BackendImagePDF }
func (ImagePDF) Kind() BackendKind { return KindLocal }

func (ImagePDF) Convert(_ context.Context, in *Input) ([]byte, error) {
	data := in.Data
	switch imageEncodingOf(data) {
	case EncodingPNG, EncodingJPEG:
	default:
		img, _, err := decodeImage(data)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("normalize image: %w", err)
		}
		data = buf.Bytes()
	}

	imp := pdfcpu.DefaultImportConfig()
	conf := model.NewDefaultConfiguration()

	var out bytes.Buffer
	if err := api.ImportImages(nil, &out, []io.Reader{bytes.NewReader(data)}, imp, conf); err != nil {
		return nil, fmt.Errorf("import image: %w", err)
	}
	return out.Bytes(), nil
}
