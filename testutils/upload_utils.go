package testutils

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"testing"
)

// UploadFile describes one file part of a multipart request
type UploadFile struct {
	Field       string
	Filename    string
	ContentType string
	Content     []byte
}

// PDF returns a "documents" part holding a minimal PDF
func PDF(filename string) UploadFile {
	return UploadFile{
		Field:       "documents",
		Filename:    filename,
		ContentType: "application/pdf",
		Content:     PDFContent(filename),
	}
}

// PDFContent returns bytes that sniff as application/pdf
func PDFContent(title string) []byte {
	return []byte(fmt.Sprintf("%%PDF-1.4\n1 0 obj\n<< /Title (%s) >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%%%EOF\n", title))
}

// PNG returns a "documents" part holding PNG bytes
func PNG(filename string) UploadFile {
	return UploadFile{
		Field:       "documents",
		Filename:    filename,
		ContentType: "image/png",
		Content:     []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"),
	}
}

// MultipartBody encodes fields and files as a multipart/form-data body
func MultipartBody(t *testing.T, fields map[string]string, files ...UploadFile) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field %s: %v", k, err)
		}
	}

	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.Field, f.Filename))
		header.Set("Content-Type", f.ContentType)

		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("failed to create part %s: %v", f.Filename, err)
		}
		if _, err := part.Write(f.Content); err != nil {
			t.Fatalf("failed to write part %s: %v", f.Filename, err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

// FileHeaders parses files back into the headers a handler would receive
func FileHeaders(t *testing.T, files ...UploadFile) []*multipart.FileHeader {
	t.Helper()

	if len(files) == 0 {
		return nil
	}

	body, contentType := MultipartBody(t, nil, files...)
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		t.Fatalf("failed to parse content type: %v", err)
	}

	form, err := multipart.NewReader(body, params["boundary"]).ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("failed to read multipart form: %v", err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })

	var headers []*multipart.FileHeader
	seen := make(map[string]bool)
	for _, f := range files {
		if seen[f.Field] {
			continue
		}
		seen[f.Field] = true
		headers = append(headers, form.File[f.Field]...)
	}
	return headers
}
