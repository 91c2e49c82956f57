package optics

import (
	"encoding/base64"
	"fmt"
	"image"
	"image/color"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/makiuchi-d/gozxing/qrcode/decoder"
	log "github.com/sirupsen/logrus"
)

// Ensuring interface compatability at compile time.
var _ Codec = &QRCodec{}

var errorCorrectionLevels = map[string]decoder.ErrorCorrectionLevel{
	"L": decoder.ErrorCorrectionLevel_L,
	"M": decoder.ErrorCorrectionLevel_M,
	"Q": decoder.ErrorCorrectionLevel_Q,
	"H": decoder.ErrorCorrectionLevel_H,
}

// ValidErrorCorrection reports whether level is one of L, M, Q or H.
func ValidErrorCorrection(level string) bool {
	_, ok := errorCorrectionLevels[level]
	return ok
}

type QRCodecOptions struct {
	// QR error correction level, one of L, M, Q, H. L leaves the most room
	// for data: a 2048 byte packet only fits at L.
	ErrorCorrection string
	// Pixels per QR module in rendered images
	ModuleSize int
	// Blank modules around the code
	QuietZone int
	// Tells the reader the capture contains nothing but the code. Only useful
	// for rendered images that never went through a camera.
	PureBarcode bool
}

func DefaultQRCodecOptions() *QRCodecOptions {
	return &QRCodecOptions{
		ErrorCorrection: "L",
		ModuleSize:      4,
		QuietZone:       4,
	}
}

// QRCodec carries frames as base64 text in QR codes.
type QRCodec struct {
	options *QRCodecOptions
	level   decoder.ErrorCorrectionLevel
	writer  *qrcode.QRCodeWriter
	reader  gozxing.Reader
}

func NewQRCodec(options *QRCodecOptions) (*QRCodec, error) {
	if options == nil {
		options = DefaultQRCodecOptions()
	}
	level, ok := errorCorrectionLevels[options.ErrorCorrection]
	if !ok {
		return nil, fmt.Errorf("optics: unknown error correction level %q", options.ErrorCorrection)
	}
	if options.ModuleSize < 1 {
		return nil, fmt.Errorf("optics: module size must be positive, got %d", options.ModuleSize)
	}
	if options.QuietZone < 0 {
		return nil, fmt.Errorf("optics: quiet zone must not be negative, got %d", options.QuietZone)
	}
	return &QRCodec{
		options: options,
		level:   level,
		writer:  qrcode.NewQRCodeWriter(),
		reader:  qrcode.NewQRCodeReader(),
	}, nil
}

func (c *QRCodec) Encode(data []byte) (image.Image, error) {
	text := base64.StdEncoding.EncodeToString(data)
	hints := map[gozxing.EncodeHintType]interface{}{
		gozxing.EncodeHintType_ERROR_CORRECTION: c.level,
		gozxing.EncodeHintType_MARGIN:           c.options.QuietZone,
	}
	// Zero width and height yield one pixel per module, quiet zone included.
	matrix, err := c.writer.Encode(text, gozxing.BarcodeFormat_QR_CODE, 0, 0, hints)
	if err != nil {
		return nil, fmt.Errorf("optics: encode %d bytes: %w", len(data), err)
	}
	return c.render(matrix), nil
}

func (c *QRCodec) render(matrix *gozxing.BitMatrix) *image.Gray {
	scale := c.options.ModuleSize
	w, h := matrix.GetWidth(), matrix.GetHeight()
	img := image.NewGray(image.Rect(0, 0, w*scale, h*scale))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := color.Gray{Y: 0xff}
			if matrix.Get(x, y) {
				px = color.Gray{Y: 0}
			}
			for dy := 0; dy < scale; dy++ {
				for dx := 0; dx < scale; dx++ {
					img.SetGray(x*scale+dx, y*scale+dy, px)
				}
			}
		}
	}
	return img
}

func (c *QRCodec) Decode(img image.Image) ([]byte, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDecodable, err)
	}
	var hints map[gozxing.DecodeHintType]interface{}
	if c.options.PureBarcode {
		hints = map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_PURE_BARCODE: true,
		}
	}
	result, err := c.reader.Decode(bmp, hints)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDecodable, err)
	}
	data, err := base64.StdEncoding.DecodeString(result.GetText())
	if err != nil {
		log.Debugf("Scanned QR code does not carry base64: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrNotDecodable, err)
	}
	return data, nil
}
