package web

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"image"
	"image/color"
	stdjpeg "image/jpeg"
	"image/png"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func newTestServer(cfg Config) *Server {
	cfg.Logger = log.New(io.Discard, "", 0)
	return New(cfg)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{uint8(x * 5), uint8(y * 3), uint8(x ^ y), 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func upload(t *testing.T, srv http.Handler, contentType string, data []byte, accept string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="photo"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/split", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func get(srv http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func splitJSON(t *testing.T, srv http.Handler, w, h int) splitResponse {
	t.Helper()
	rec := upload(t, srv, "image/png", pngBytes(t, w, h), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("split: status %d: %s", rec.Code, rec.Body)
	}
	var resp splitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestIndex(t *testing.T) {
	srv := newTestServer(Config{})
	rec := get(srv, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `name="image"`) {
		t.Error("no upload field on the index page")
	}
	if strings.Contains(body, `class="toast"`) {
		t.Error("index page shows a notification")
	}
}

func TestSplitPage(t *testing.T) {
	srv := newTestServer(Config{})
	rec := upload(t, srv, "image/png", pngBytes(t, 100, 80), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	for _, name := range []string{"top-left.jpg", "top-right.jpg", "bottom-left.jpg", "bottom-right.jpg"} {
		if !strings.Contains(body, `download="`+name+`"`) {
			t.Errorf("no download link for %s", name)
		}
	}
	if n := strings.Count(body, `class="toast"`); n != 1 {
		t.Errorf("%d notifications, want 1", n)
	}
	if !strings.Contains(body, msgSuccess) {
		t.Error("no success notification")
	}
	if !strings.Contains(body, "getElementById('toast').hidden = true") {
		t.Error("notification is never hidden")
	}
	if !strings.Contains(body, "0.00 MB") {
		t.Error("tile sizes are not shown in MB")
	}
	if n := srv.sessionCount(); n != 1 {
		t.Errorf("%d sessions, want 1", n)
	}
}

func TestSplitAndDownload(t *testing.T) {
	srv := newTestServer(Config{Progressive: true})
	resp := splitJSON(t, srv, 101, 99)
	if len(resp.Tiles) != 4 {
		t.Fatalf("%d tiles", len(resp.Tiles))
	}
	want := []image.Point{{50, 49}, {51, 49}, {50, 50}, {51, 50}}
	var got []image.Point
	for _, tile := range resp.Tiles {
		rec := get(srv, tile.URL)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", tile.Name, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("%s: content type %q", tile.Name, ct)
		}
		if !strings.Contains(rec.Header().Get("Content-Disposition"), tile.Name) {
			t.Errorf("%s: disposition %q", tile.Name, rec.Header().Get("Content-Disposition"))
		}
		if rec.Body.Len() != tile.Bytes {
			t.Errorf("%s: %d bytes served, %d reported", tile.Name, rec.Body.Len(), tile.Bytes)
		}
		img, err := stdjpeg.Decode(rec.Body)
		if err != nil {
			t.Fatalf("%s: %v", tile.Name, err)
		}
		got = append(got, img.Bounds().Size())
		if tile.Quality != 0.95 || tile.Attempts != 1 {
			t.Errorf("%s: quality %v after %d attempts", tile.Name, tile.Quality, tile.Attempts)
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tile sizes (-want +got):\n%s", diff)
	}
}

func TestArchive(t *testing.T) {
	srv := newTestServer(Config{})
	resp := splitJSON(t, srv, 64, 64)
	rec := get(srv, resp.Archive)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	data := rec.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for i, f := range zr.File {
		names = append(names, f.Name)
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(content, get(srv, resp.Tiles[i].URL).Body.Bytes()) {
			t.Errorf("%s: archive content differs from the tile", f.Name)
		}
	}
	want := []string{"top-left.jpg", "top-right.jpg", "bottom-left.jpg", "bottom-right.jpg"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("archive entries (-want +got):\n%s", diff)
	}
}

func TestReset(t *testing.T) {
	srv := newTestServer(Config{})
	resp := splitJSON(t, srv, 20, 20)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, resp.Reset, nil))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("reset: status %d", rec.Code)
	}
	if n := srv.sessionCount(); n != 0 {
		t.Errorf("%d sessions after reset", n)
	}
	for _, tile := range resp.Tiles {
		if code := get(srv, tile.URL).Code; code != http.StatusNotFound {
			t.Errorf("%s: status %d after reset", tile.Name, code)
		}
	}
	if code := get(srv, resp.Archive).Code; code != http.StatusNotFound {
		t.Errorf("archive: status %d after reset", code)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, resp.Reset, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second reset: status %d", rec.Code)
	}
}

func TestRejectNonImage(t *testing.T) {
	srv := newTestServer(Config{})
	for _, ct := range []string{"text/plain", ""} {
		rec := upload(t, srv, ct, []byte("this is not a picture\n"), "")
		if rec.Code != http.StatusUnsupportedMediaType {
			t.Errorf("%q: status %d, want 415", ct, rec.Code)
		}
		body := rec.Body.String()
		if n := strings.Count(body, `class="toast"`); n != 1 {
			t.Errorf("%q: %d notifications, want 1", ct, n)
		}
		if !strings.Contains(body, msgInvalidInput) {
			t.Errorf("%q: rejection message missing", ct)
		}
		if strings.Contains(body, `class="result-card"`) {
			t.Errorf("%q: result cards shown for a rejected file", ct)
		}
	}
	if n := srv.sessionCount(); n != 0 {
		t.Errorf("%d sessions after rejected uploads", n)
	}
}

func TestRejectJSON(t *testing.T) {
	srv := newTestServer(Config{})
	rec := upload(t, srv, "application/pdf", []byte("%PDF-1.7"), "application/json")
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status %d", rec.Code)
	}
	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]string{"error": msgInvalidInput}, got); diff != "" {
		t.Errorf("error body (-want +got):\n%s", diff)
	}
}

func TestTooSmallImage(t *testing.T) {
	srv := newTestServer(Config{})
	rec := upload(t, srv, "image/png", pngBytes(t, 1, 40), "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d", rec.Code)
	}
	if n := strings.Count(rec.Body.String(), `class="toast"`); n != 1 {
		t.Errorf("%d notifications, want 1", n)
	}
	if n := srv.sessionCount(); n != 0 {
		t.Errorf("%d sessions after a failed split", n)
	}
}

func TestMissingFile(t *testing.T) {
	srv := newTestServer(Config{})
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("other", "x")
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/split", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rec.Code)
	}
}

func TestEviction(t *testing.T) {
	srv := newTestServer(Config{MaxSessions: 2})
	first := splitJSON(t, srv, 10, 10)
	splitJSON(t, srv, 12, 12)
	third := splitJSON(t, srv, 14, 14)
	if n := srv.sessionCount(); n != 2 {
		t.Errorf("%d sessions, want 2", n)
	}
	if code := get(srv, first.Tiles[0].URL).Code; code != http.StatusNotFound {
		t.Errorf("evicted tile: status %d", code)
	}
	if code := get(srv, third.Tiles[0].URL).Code; code != http.StatusOK {
		t.Errorf("newest tile: status %d", code)
	}
}

func TestUnknownTile(t *testing.T) {
	srv := newTestServer(Config{})
	resp := splitJSON(t, srv, 10, 10)
	for _, path := range []string{
		"/tiles/" + resp.Session + "/middle.jpg",
		"/tiles/nosuchsession/top-left.jpg",
		"/tiles/nosuchsession/" + archiveName,
	} {
		if code := get(srv, path).Code; code != http.StatusNotFound {
			t.Errorf("%s: status %d", path, code)
		}
	}
}

func TestPrinterFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	if got := printerFor(req).Sprintf("%.2f MB", 0.5); got != "0.50 MB" {
		t.Errorf("got %q", got)
	}
	// Without a header the first supported language is used.
	req.Header.Del("Accept-Language")
	want := message.NewPrinter(language.English).Sprintf("%.2f MB", 1.25)
	if got := printerFor(req).Sprintf("%.2f MB", 1.25); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRejectPageHasNoCards(t *testing.T) {
	srv := newTestServer(Config{})
	ok := upload(t, srv, "image/png", pngBytes(t, 20, 20), "")
	if n := strings.Count(ok.Body.String(), `class="result-card"`); n != 4 {
		t.Errorf("%d result cards after a split, want 4", n)
	}
	bad := upload(t, srv, "text/plain", []byte("nope"), "")
	if strings.Contains(bad.Body.String(), `class="result-card"`) {
		t.Error("result cards shown for a rejected file")
	}
}

func TestOriginal(t *testing.T) {
	srv := newTestServer(Config{})
	data := pngBytes(t, 30, 20)
	rec := upload(t, srv, "image/png", data, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("split: status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `id="original"`) {
		t.Error("result page does not show the original")
	}

	resp := splitJSON(t, srv, 30, 20)
	if resp.Original == "" {
		t.Fatal("no original URL in the JSON response")
	}
	orig := get(srv, resp.Original)
	if orig.Code != http.StatusOK {
		t.Fatalf("original: status %d", orig.Code)
	}
	if ct := orig.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("original: content type %q", ct)
	}
	if !bytes.Equal(orig.Body.Bytes(), pngBytes(t, 30, 20)) {
		t.Error("original: served bytes differ from the upload")
	}

	reset := httptest.NewRecorder()
	srv.ServeHTTP(reset, httptest.NewRequest(http.MethodPost, resp.Reset, nil))
	if code := get(srv, resp.Original).Code; code != http.StatusNotFound {
		t.Errorf("original: status %d after reset", code)
	}
}

func TestTooManyPixels(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatal(err)
	}
	// Claim 40000x40000 in the IHDR chunk and fix up its CRC.
	data := buf.Bytes()
	binary.BigEndian.PutUint32(data[16:], 40000)
	binary.BigEndian.PutUint32(data[20:], 40000)
	binary.BigEndian.PutUint32(data[29:], crc32.ChecksumIEEE(data[12:29]))

	srv := newTestServer(Config{})
	rec := upload(t, srv, "image/png", data, "")
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status %d, want 413", rec.Code)
	}
	body := rec.Body.String()
	if n := strings.Count(body, `class="toast"`); n != 1 {
		t.Errorf("%d notifications, want 1", n)
	}
	if !strings.Contains(body, msgTooManyPx) {
		t.Error("pixel limit message missing")
	}
	if n := srv.sessionCount(); n != 0 {
		t.Errorf("%d sessions after a rejected upload", n)
	}

	small := newTestServer(Config{MaxPixels: 99})
	if code := upload(t, small, "image/png", pngBytes(t, 10, 10), "").Code; code != http.StatusRequestEntityTooLarge {
		t.Errorf("100 pixels with a limit of 99: status %d", code)
	}
}
