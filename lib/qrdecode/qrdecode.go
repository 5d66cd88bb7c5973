package qrdecode

import (
	"attendqr/lib/telemetry"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var tracer = telemetry.Tracer("attendqr.lib.qrdecode")

// ErrNoSymbol is returned when an image contains no readable QR symbol.
var ErrNoSymbol = errors.New("no qr symbol found")

var hintAttempts = []map[gozxing.DecodeHintType]interface{}{
	nil,
	{gozxing.DecodeHintType_TRY_HARDER: true},
}

// Decode returns the text of the first QR symbol detected in img.
func Decode(img image.Image) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: detector panicked: %v", ErrNoSymbol, r)
		}
	}()

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", err
	}

	reader := qrcode.NewQRCodeReader()
	var lastErr error
	for _, hints := range hintAttempts {
		result, err := reader.Decode(bmp, hints)
		if err == nil {
			return result.GetText(), nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("%w: %v", ErrNoSymbol, lastErr)
}

// Load reads and decodes the raster image at path, the format is sniffed
// from the contents rather than the file extension.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	slog.Debug("loaded image", "path", path, "format", format, "bounds", img.Bounds().String())
	return img, nil
}

// DecodeFile loads the image at path and returns the text of its first QR symbol.
// ok is false when the image cannot be read or has no symbol, this is never fatal.
func DecodeFile(ctx context.Context, path string) (content string, ok bool) {
	ctx, span := tracer.Start(ctx, "DecodeFile")
	defer span.End()
	span.SetAttributes(attribute.String("path", path))

	img, err := Load(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load image")
		slog.ErrorContext(ctx, "error decoding qr code", "path", path, "err", err)
		return "", false
	}

	content, err = Decode(img)
	if errors.Is(err, ErrNoSymbol) {
		span.SetStatus(codes.Error, "no qr symbol")
		slog.WarnContext(ctx, "no qr code found", "path", path, "err", err)
		return "", false
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode image")
		slog.ErrorContext(ctx, "error decoding qr code", "path", path, "err", err)
		return "", false
	}

	return content, true
}
