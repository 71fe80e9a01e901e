package document

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
)

const sampleDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Проект контракта</w:t></w:r></w:p>
    <w:p><w:r><w:t xml:space="preserve">Срок: </w:t></w:r><w:r><w:t>10 дней</w:t></w:r></w:p>
    <w:tbl><w:tr><w:tc><w:p><w:r><w:t>Цена</w:t><w:tab/><w:t>100</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
    <w:p><w:r><w:t>строка</w:t><w:br/><w:t>перенос</w:t></w:r></w:p>
    <w:p/>
    <w:sectPr/>
  </w:body>
</w:document>`

func writeDOCX(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDOCX_ParagraphsInOrder(t *testing.T) {
	path := writeDOCX(t, map[string]string{
		"[Content_Types].xml": `<Types/>`,
		"word/document.xml":   sampleDocumentXML,
	})

	got, err := DOCX{}.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "Проект контракта\nСрок: 10 дней\nЦена\t100\nстрока\nперенос\n"
	if got.Text != want {
		t.Errorf("text =\n%q\nwant\n%q", got.Text, want)
	}
	if got.Provenance != ProvenanceDOCX {
		t.Errorf("provenance = %q", got.Provenance)
	}
}

func TestDOCX_MissingDocumentPart(t *testing.T) {
	path := writeDOCX(t, map[string]string{"word/styles.xml": `<w:styles/>`})
	if _, err := (DOCX{}).Extract(context.Background(), path); err == nil {
		t.Fatal("expected an error for a package without word/document.xml")
	}
}

func TestDOCX_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.docx")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (DOCX{}).Extract(context.Background(), path); err == nil {
		t.Fatal("expected an error for a non-zip file")
	}
}
