package assemble

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/propmerge/internal/config"
	"github.com/propmerge/internal/schema"
)

func testAssembler(t *testing.T) *Assembler {
	t.Helper()
	a := New(t.TempDir(), config.FetchConfig{Workers: 2, TimeoutSeconds: 5, Retries: 1}, false)
	a.Fetcher.Policy.InitialDelay = time.Millisecond
	return a
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func soldRow(street string) schema.PropertyRow {
	r := schema.NewRow(schema.Sold)
	r.Address = schema.Address{Street: street, Suburb: "Crows Nest", State: "NSW", Postcode: "2065"}
	return r
}

func openSaved(t *testing.T, path string) *excelize.File {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open saved workbook: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestWriteWorkbook(t *testing.T) {
	img := pngImage(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(img)
	}))
	defer srv.Close()

	withPhoto := soldRow("23 Willoughby Road")
	withPhoto.PropertyPhoto = schema.Val(srv.URL + "/photo.png")
	withPhoto.WebsiteLink = schema.Val("https://rpp.corelogic.com.au/property/1")

	plain := schema.NewRow(schema.ForSale)
	plain.Address = schema.Address{Street: "5 Pacific Highway", Suburb: "Chatswood", State: "NSW", Postcode: "2067"}

	a := testAssembler(t)
	path, stats, err := a.Write(context.Background(), []schema.PropertyRow{withPhoto, plain},
		[]string{"Crows Nest, NSW", "Chatswood NSW"})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	wantName := regexp.MustCompile(`^Properties_Crows_Chatswood_\d{2}_\d{2}_\d{4}_\d{2}_\d{2}\.xlsx$`)
	if base := filepath.Base(path); !wantName.MatchString(base) {
		t.Errorf("file name = %q", base)
	}

	if stats.Rows != 2 || stats.Hyperlinks != 1 || stats.ImagesEmbedded != 1 || stats.ImageFallbacks != 0 {
		t.Errorf("stats = %+v", stats)
	}

	f := openSaved(t, path)

	cells := map[string]string{
		"A1":  "Type",
		"A2":  "Sold",
		"C2":  "23 Willoughby Road",
		"C3":  "5 Pacific Highway",
		"Z3":  "N/A", // sale price does not apply to a for-sale row
		"AX2": time.Now().Format("02/01/2006"),
		"AX3": time.Now().Format("02/01/2006"),
		"B2":  "", // photo is embedded, not text
	}
	for cell, want := range cells {
		got, err := f.GetCellValue(SheetName, cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", cell, err)
		}
		if got != want {
			t.Errorf("cell %s = %q, want %q", cell, got, want)
		}
	}

	ok, link, err := f.GetCellHyperLink(SheetName, "Y2")
	if err != nil || !ok || link != "https://rpp.corelogic.com.au/property/1" {
		t.Errorf("hyperlink Y2 = %v %q (err %v)", ok, link, err)
	}
	if ok, _, _ := f.GetCellHyperLink(SheetName, "Y3"); ok {
		t.Error("row without URL got a hyperlink")
	}

	pics, err := f.GetPictures(SheetName, "B2")
	if err != nil || len(pics) != 1 {
		t.Errorf("pictures at B2 = %d (err %v), want 1", len(pics), err)
	}

	for col, want := range map[string]float64{"G": 35, "I": 8, "AA": 15, "AZ": 10} {
		got, err := f.GetColWidth(SheetName, col)
		if err != nil {
			t.Fatalf("GetColWidth(%s): %v", col, err)
		}
		if got != want {
			t.Errorf("width %s = %v, want %v", col, got, want)
		}
	}
}

func TestPhotoFetchFailureFallsBackToText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	row := soldRow("23 Willoughby Road")
	row.PropertyPhoto = schema.Val(srv.URL + "/photo.jpg")

	a := testAssembler(t)
	path, stats, err := a.Write(context.Background(), []schema.PropertyRow{row}, []string{"Crows Nest"})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if stats.ImagesEmbedded != 0 || stats.ImageFallbacks != 1 {
		t.Errorf("stats = %+v", stats)
	}

	f := openSaved(t, path)
	got, _ := f.GetCellValue(SheetName, "B2")
	if got != srv.URL+"/photo.jpg" {
		t.Errorf("photo cell = %q, want the raw URL", got)
	}
}

func TestInvalidPhotoValuesDegrade(t *testing.T) {
	blob := soldRow("23 Willoughby Road")
	blob.PropertyPhoto = schema.Val("blob:https://rpp.corelogic.com.au/51f0")

	mapPin := soldRow("25 Willoughby Road")
	mapPin.PropertyPhoto = schema.Val("https://maps.googleapis.com/maps/api/staticmap?center=-33.8")

	note := soldRow("27 Willoughby Road")
	note.PropertyPhoto = schema.Val("See agency brochure")

	a := testAssembler(t)
	path, stats, err := a.Write(context.Background(),
		[]schema.PropertyRow{blob, mapPin, note}, []string{"Crows Nest"})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if stats.ImageFallbacks != 2 {
		t.Errorf("fallbacks = %d, want 2", stats.ImageFallbacks)
	}

	f := openSaved(t, path)
	for cell, want := range map[string]string{
		"B2": imageFallback,
		"B3": imageFallback,
		"B4": "See agency brochure",
	} {
		if got, _ := f.GetCellValue(SheetName, cell); got != want {
			t.Errorf("cell %s = %q, want %q", cell, got, want)
		}
	}
}

func TestNonImageContentFallsBackToText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>gone</html>"))
	}))
	defer srv.Close()

	row := soldRow("23 Willoughby Road")
	row.PropertyPhoto = schema.Val(srv.URL + "/photo.png")

	a := testAssembler(t)
	path, stats, err := a.Write(context.Background(), []schema.PropertyRow{row}, []string{"Crows Nest"})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if stats.ImagesEmbedded != 0 || stats.ImageFallbacks != 1 {
		t.Errorf("stats = %+v", stats)
	}

	f := openSaved(t, path)
	if got, _ := f.GetCellValue(SheetName, "B2"); !strings.HasPrefix(got, "http") {
		t.Errorf("photo cell = %q, want the raw URL", got)
	}
}

func TestOutputPath(t *testing.T) {
	a := &Assembler{outputDir: "out"}

	tests := []struct {
		locations []string
		wantSlug  string
	}{
		{[]string{"Crows Nest, NSW", "Chatswood NSW", "Sydney"}, "Crows_Chatswood"},
		{[]string{"Chatswood, NSW 2067"}, "Chatswood"},
		{nil, "All"},
		{[]string{"  "}, "All"},
	}

	for _, tc := range tests {
		got := filepath.Base(a.outputPath(tc.locations))
		want := regexp.MustCompile(`^Properties_` + tc.wantSlug + `_\d{2}_\d{2}_\d{4}_\d{2}_\d{2}\.xlsx$`)
		if !want.MatchString(got) {
			t.Errorf("outputPath(%v) = %q, want slug %q", tc.locations, got, tc.wantSlug)
		}
	}
}

func TestWriteFailsWhenOutputDirUnavailable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	a := New(filepath.Join(blocker, "nested"), config.FetchConfig{Workers: 1, TimeoutSeconds: 1}, false)
	_, _, err := a.Write(context.Background(), []schema.PropertyRow{soldRow("23 Willoughby Road")}, nil)
	if err == nil {
		t.Fatal("Write() succeeded with an unusable output directory")
	}
}
