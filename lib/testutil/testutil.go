package testutil

import (
	"attendqr/lib/sqliteutil"
	"attendqr/lib/telemetry"
	"bytes"
	"database/sql"
	"fmt"
	"image"
	"image/png"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

type ServiceParams struct {
	Name string
	// if unspecified, it will skip setting up a db
	DbSchema string
	// if unspecified, it will use `:memory:`
	DbPath string
}

type ServiceResult struct {
	DB *sql.DB
}

func SetupService(t testing.TB, params ServiceParams) (ServiceResult, func()) {
	cleanup := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name))

	if params.DbSchema == "" {
		return ServiceResult{}, cleanup
	}

	dbpath := params.DbPath
	if dbpath == "" {
		dbpath = ":memory:"
	}
	db, err := sqliteutil.Config{File: dbpath}.OpenDB(params.DbSchema)
	if err != nil {
		t.Fatal(err)
	}

	return ServiceResult{DB: db}, func() {
		db.Close()
		cleanup()
	}
}

// QRCode renders payload as a QR symbol of the given square size.
func QRCode(t testing.TB, payload string, size int) image.Image {
	matrix, err := qrcode.NewQRCodeWriter().Encode(
		payload,
		gozxing.BarcodeFormat_QR_CODE,
		size, size,
		nil,
	)
	if err != nil {
		t.Fatal(err)
	}
	return matrix
}

// QRCodePNG is QRCode encoded as png bytes.
func QRCodePNG(t testing.TB, payload string) []byte {
	return EncodePNG(t, QRCode(t, payload, 256))
}

// BlankPNG is a plain white png with no symbol in it.
func BlankPNG(t testing.TB) []byte {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return EncodePNG(t, img)
}

func EncodePNG(t testing.TB, img image.Image) []byte {
	buf := bytes.NewBuffer(nil)
	err := png.Encode(buf, img)
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
