package portal

import (
	"attendqr/lib/htmlutil"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const imageTimestampFormat = "20060102_150405"

// step is the outcome of one per-image stage, either a value or the reason
// the image was skipped.
type step[T any] struct {
	value   T
	skipped error
}

func ok[T any](value T) step[T] {
	return step[T]{value: value}
}

func skip[T any](err error) step[T] {
	return step[T]{skipped: err}
}

func (s step[T]) Ok() bool {
	return s.skipped == nil
}

func ImageFileName(capturedAt time.Time, index int) string {
	return fmt.Sprintf("qr_code_%s_%d.png", capturedAt.Format(imageTimestampFormat), index)
}

// DecodeInline returns the bytes of a data:image URI.
func DecodeInline(src string) ([]byte, error) {
	_, payload, found := strings.Cut(src, ",")
	if !found {
		return nil, fmt.Errorf("%w: inline image has no payload", ErrParse)
	}
	payload = strings.Join(strings.Fields(payload), "")
	payload = strings.TrimRight(payload, "=")
	data, err := base64.RawStdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: inline image: %w", ErrParse, err)
	}
	return data, nil
}

func fetchImage(ctx context.Context, f Fetcher, link string) step[[]byte] {
	page, err := f.Get(ctx, link)
	if err != nil {
		return skip[[]byte](err)
	}
	if !page.Success() {
		return skip[[]byte](fmt.Errorf("%w: GET %s returned %d", ErrStatus, link, page.Status))
	}
	return ok(page.Body)
}

func resolveImage(ctx context.Context, f Fetcher, baseUrl string, img CandidateImage) step[[]byte] {
	switch img.Kind {
	case SourceInline:
		data, err := DecodeInline(img.Source)
		if err != nil {
			return skip[[]byte](err)
		}
		return ok(data)
	case SourceAbsolute:
		return fetchImage(ctx, f, img.Source)
	case SourceRelative:
		return fetchImage(ctx, f, htmlutil.JoinURL(baseUrl, img.Source))
	}
	return skip[[]byte](fmt.Errorf("%w: unsupported source kind %v", ErrParse, img.Kind))
}

// writeImage creates path exclusively, an existing file is never overwritten.
func writeImage(path string, data []byte) step[string] {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return skip[string](fmt.Errorf("%w: %s already exists", ErrPersist, path))
	}
	if err != nil {
		return skip[string](fmt.Errorf("%w: %w", ErrPersist, err))
	}

	_, err = file.Write(data)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return skip[string](fmt.Errorf("%w: %w", ErrPersist, err))
	}
	return ok(path)
}

// PersistImages resolves each candidate into bytes and writes it into
// outputDir, returning the written paths in candidate order. Images that
// cannot be resolved or written are logged and skipped.
func PersistImages(
	ctx context.Context,
	f Fetcher,
	baseUrl, outputDir string,
	images []CandidateImage,
	capturedAt time.Time,
) []string {
	ctx, span := tracer.Start(ctx, "PersistImages")
	defer span.End()

	var saved []string
	for _, img := range images {
		data := resolveImage(ctx, f, baseUrl, img)
		if !data.Ok() {
			span.RecordError(data.skipped)
			slog.WarnContext(
				ctx, "skipping image",
				"index", img.Index,
				"kind", img.Kind.String(),
				"err", data.skipped,
			)
			continue
		}

		path := filepath.Join(outputDir, ImageFileName(capturedAt, img.Index))
		written := writeImage(path, data.value)
		if !written.Ok() {
			span.RecordError(written.skipped)
			slog.WarnContext(ctx, "failed to save image", "index", img.Index, "err", written.skipped)
			continue
		}

		slog.InfoContext(ctx, "saved qr code image", "path", written.value, "bytes", len(data.value))
		saved = append(saved, written.value)
	}

	span.SetAttributes(
		attribute.Int("candidates", len(images)),
		attribute.Int("saved", len(saved)),
	)
	if len(images) > 0 && len(saved) == 0 {
		span.SetStatus(codes.Error, "no images could be saved")
	}
	return saved
}
