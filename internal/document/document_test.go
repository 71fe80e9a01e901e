package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/david/tender-digest/internal/config"
)

func TestKindFor(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"documents/report.pdf", KindPDF},
		{"documents/REPORT.PDF", KindPDF},
		{"documents/Proekt_kontrakta.pdf", KindContractPDF},
		{"documents/KONTRAKT_1.Pdf", KindContractPDF},
		{"kontrakt/report.pdf", KindPDF},
		{"documents/kontrakt.docx", KindDOCX},
		{"documents/old.DOC", KindDOC},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := KindFor(tt.path, "kontrakt")
			if err != nil {
				t.Fatalf("KindFor: %v", err)
			}
			if got != tt.want {
				t.Errorf("KindFor = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindFor_Unsupported(t *testing.T) {
	for _, path := range []string{"scan.jpg", "archive.zip", "noext", "file.pdf.txt"} {
		_, err := KindFor(path, "kontrakt")
		var unsupported *UnsupportedFormatError
		if !errors.As(err, &unsupported) {
			t.Errorf("%s: expected UnsupportedFormatError, got %v", path, err)
		}
	}
}

type fixedExtractor struct{ text string }

func (f fixedExtractor) Extract(ctx context.Context, path string) (ExtractedText, error) {
	return ExtractedText{Text: f.text + ":" + filepath.Base(path)}, nil
}

func TestDispatcher_RoutesByKind(t *testing.T) {
	d := NewDispatcher(config.DocumentsConfig{ContractMarker: "kontrakt", DocConverter: "antiword"})
	d.Register(KindPDF, fixedExtractor{"plain"})
	d.Register(KindContractPDF, fixedExtractor{"contract"})
	d.Register(KindDOCX, fixedExtractor{"docx"})

	tests := map[string]string{
		"a.pdf":          "plain:a.pdf",
		"kontrakt_1.pdf": "contract:kontrakt_1.pdf",
		"b.docx":         "docx:b.docx",
	}
	for path, want := range tests {
		got, err := d.Extract(context.Background(), path)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if got.Text != want {
			t.Errorf("%s: got %q, want %q", path, got.Text, want)
		}
	}

	if _, err := d.Extract(context.Background(), "c.xlsx"); err == nil {
		t.Errorf("expected an error for an unsupported extension")
	}
}

func TestPlainPDF_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("this is not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (PlainPDF{}).Extract(context.Background(), path); err == nil {
		t.Fatal("expected an error for a non-PDF file")
	}
	if _, err := (ContractPDF{}).Extract(context.Background(), path); err == nil {
		t.Fatal("expected an error for a non-PDF file")
	}
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"nul", "Цена\x00 100", "Цена 100"},
		{"c0 controls", "a\x01b\x07c\x0bd\x0ce\x1bf\x7fg", "abcdefg"},
		{"layout whitespace kept", "a\tb\r\nc", "a\tb\r\nc"},
		{"invalid utf-8", "ab\xc3\x28cd", "ab(cd"},
		{"clean text unchanged", "Проект контракта", "Проект контракта"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.in); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDispatcher_SanitizesExtractedText(t *testing.T) {
	d := NewDispatcher(config.DocumentsConfig{ContractMarker: "kontrakt"})
	d.Register(KindPDF, fixedExtractor{"Identity\x00-H\x00"})

	got, err := d.Extract(context.Background(), "scan.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "Identity-H:scan.pdf" {
		t.Errorf("text = %q", got.Text)
	}
}
