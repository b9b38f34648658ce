// Package qrcode renders profile QR data as a vCard and encodes it as a PNG.
package qrcode

import (
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	goqr "github.com/skip2/go-qrcode"

	"github.com/c360studio/semprofile/templatemodel"
)

// DefaultSize is the default PNG edge length in pixels.
const DefaultSize = 256

// Generator produces a QR image for some content.
type Generator interface {
	PNG(content string) ([]byte, error)
}

// Encoder is the go-qrcode backed Generator.
type Encoder struct {
	Level goqr.RecoveryLevel
	Size  int
}

// NewEncoder returns an Encoder with medium error correction at DefaultSize.
func NewEncoder() Encoder {
	return Encoder{Level: goqr.Medium, Size: DefaultSize}
}

// PNG encodes content as a PNG image.
func (e Encoder) PNG(content string) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qrcode: empty content")
	}
	size := e.Size
	if size == 0 {
		size = DefaultSize
	}
	png, err := goqr.Encode(content, e.Level, size)
	if err != nil {
		return nil, fmt.Errorf("qrcode: encode: %w", err)
	}
	return png, nil
}

// VCard renders QR data as vCard 3.0 text. Missing fields are left out.
func VCard(data map[string]string) string {
	first := data[templatemodel.QRFirstName]
	last := data[templatemodel.QRLastName]

	lines := []string{"BEGIN:VCARD", "VERSION:3.0"}
	lines = append(lines, "N:"+escape(last)+";"+escape(first)+";;;")
	lines = append(lines, "FN:"+escape(FullName(data)))

	optional := []struct{ field, key string }{
		{"TITLE", templatemodel.QRPreferredTitle},
		{"TEL", templatemodel.QRPhoneNumber},
		{"EMAIL", templatemodel.QREmail},
		{"URL", templatemodel.QRExternalURL},
	}
	for _, o := range optional {
		if v := data[o.key]; v != "" {
			lines = append(lines, o.field+":"+escape(v))
		}
	}

	lines = append(lines, "END:VCARD")
	return strings.Join(lines, "\r\n") + "\r\n"
}

// FullName joins first and last name, falling back to the external URL.
func FullName(data map[string]string) string {
	name := strings.TrimSpace(data[templatemodel.QRFirstName] + " " + data[templatemodel.QRLastName])
	if name == "" {
		return data[templatemodel.QRExternalURL]
	}
	return name
}

// Filename returns a download filename like "ada-lovelace-qrcode.png".
func Filename(name string) string {
	s := slug.Make(name)
	if s == "" {
		return "qrcode.png"
	}
	return s + "-qrcode.png"
}

var vcardEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", `\,`,
	";", `\;`,
	"\r\n", `\n`,
	"\n", `\n`,
)

func escape(s string) string {
	return vcardEscaper.Replace(s)
}
