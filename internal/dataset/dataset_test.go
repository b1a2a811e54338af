package dataset

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const shopperCSV = " Customer ID ,Age,Gender,Purchase Amount (USD),Discount Applied\n" +
	"1,55,Male,53,Yes\n" +
	"2,19,Male,64,Yes\n" +
	"3,50,Female,N/A,No\n" +
	"4,,Female,90,No\n"

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadCSVTrimsHeaderAndKeepsRawCells(t *testing.T) {
	p := writeFile(t, "shoppers.csv", shopperCSV)
	tab, err := Load(p, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	wantCols := []string{"Customer ID", "Age", "Gender", "Purchase Amount (USD)", "Discount Applied"}
	if diff := cmp.Diff(wantCols, tab.Columns); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	if tab.Len() != 4 {
		t.Fatalf("expected 4 rows, got %d", tab.Len())
	}
	amt, ok := tab.Column("Purchase Amount (USD)")
	if !ok {
		t.Fatalf("amount column missing")
	}
	if diff := cmp.Diff([]string{"53", "64", "N/A", "90"}, amt); diff != "" {
		t.Fatalf("amount mismatch (-want +got):\n%s", diff)
	}
	age, _ := tab.Column("Age")
	if age[3] != "" {
		t.Fatalf("expected empty cell for missing age, got %q", age[3])
	}
	if tab.Name != "shoppers.csv" {
		t.Fatalf("unexpected name %q", tab.Name)
	}
}

func TestLoadTSVMatchesCSV(t *testing.T) {
	csvPath := writeFile(t, "a.csv", shopperCSV)
	tsvPath := writeFile(t, "a.tsv", strings.ReplaceAll(shopperCSV, ",", "\t"))
	a, err := Load(csvPath, Options{})
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	b, err := Load(tsvPath, Options{})
	if err != nil {
		t.Fatalf("tsv: %v", err)
	}
	if diff := cmp.Diff(a.Records(), b.Records()); diff != "" {
		t.Fatalf("tsv differs from csv (-csv +tsv):\n%s", diff)
	}
}

func TestLoadMaxRowsAndUnsupported(t *testing.T) {
	p := writeFile(t, "s.csv", shopperCSV)
	tab, err := Load(p, Options{MaxRows: 2})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tab.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tab.Len())
	}
	if _, err := Load(writeFile(t, "s.parquet", "x"), Options{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	src := New("x", []string{"a", "b"}, [][]string{{"1.5", "x,y"}, {"-0.25", ""}})
	out := filepath.Join(t.TempDir(), "out", "round.csv")
	if err := WriteCSV(src, out); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	back, err := Load(out, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(src.Records(), back.Records()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSVRejectsEmpty(t *testing.T) {
	err := WriteCSV(New("x", []string{"a"}, nil), filepath.Join(t.TempDir(), "e.csv"))
	if !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestWithColumnReturnsCopy(t *testing.T) {
	src := New("x", []string{"a"}, [][]string{{"1"}, {"2"}})
	added, err := src.WithColumn("Cluster", []string{"0", "1"})
	if err != nil {
		t.Fatalf("WithColumn: %v", err)
	}
	if len(src.Columns) != 1 || len(src.Rows[0]) != 1 {
		t.Fatalf("source table mutated: %+v", src)
	}
	if got, _ := added.Column("Cluster"); got[1] != "1" {
		t.Fatalf("unexpected cluster column %v", got)
	}
	replaced, err := added.WithColumn("a", []string{"9", "9"})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if len(replaced.Columns) != 2 {
		t.Fatalf("replace should not append, got %v", replaced.Columns)
	}
	if _, err := src.WithColumn("bad", []string{"1"}); err == nil {
		t.Fatalf("expected length mismatch error")
	}
}

func writeXLSX(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "book.xlsx")
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	files := map[string]string{
		"xl/workbook.xml": `<workbook xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><sheets>` +
			`<sheet name="Notes" sheetId="1" r:id="rId1"/><sheet name="Shoppers" sheetId="2" r:id="rId2"/></sheets></workbook>`,
		"xl/_rels/workbook.xml.rels": `<Relationships>` +
			`<Relationship Id="rId1" Target="worksheets/sheet1.xml"/>` +
			`<Relationship Id="rId2" Target="/xl/worksheets/sheet2.xml"/></Relationships>`,
		"xl/sharedStrings.xml": `<sst><si><t>Age</t></si><si><t>Gender</t></si><si><t>Female</t></si><si><t>note</t></si></sst>`,
		"xl/worksheets/sheet1.xml": `<worksheet><sheetData><row r="1"><c r="A1" t="s"><v>3</v></c></row></sheetData></worksheet>`,
		"xl/worksheets/sheet2.xml": `<worksheet><sheetData>` +
			`<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>` +
			`<row r="2"><c r="A2"><v>41</v></c><c r="B2" t="s"><v>2</v></c></row>` +
			`<row r="3"><c r="B3" t="inlineStr"><is><t>Male</t></is></c></row>` +
			`</sheetData></worksheet>`,
	}
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
	return p
}

func TestLoadXLSXSheetSelection(t *testing.T) {
	p := writeXLSX(t)
	byName, err := Load(p, Options{SheetName: "shoppers"})
	if err != nil {
		t.Fatalf("by name: %v", err)
	}
	want := [][]string{{"Age", "Gender"}, {"41", "Female"}, {"", "Male"}}
	if diff := cmp.Diff(want, byName.Records()); diff != "" {
		t.Fatalf("sheet mismatch (-want +got):\n%s", diff)
	}
	byIndex, err := Load(p, Options{SheetIndex: 2})
	if err != nil {
		t.Fatalf("by index: %v", err)
	}
	if diff := cmp.Diff(want, byIndex.Records()); diff != "" {
		t.Fatalf("index mismatch (-want +got):\n%s", diff)
	}
	first, err := Load(p, Options{})
	if err != nil {
		t.Fatalf("default sheet: %v", err)
	}
	if first.Columns[0] != "note" {
		t.Fatalf("expected first sheet header 'note', got %v", first.Columns)
	}
	if _, err := Load(p, Options{SheetName: "missing"}); err == nil || !strings.Contains(err.Error(), "available sheets: Notes, Shoppers") {
		t.Fatalf("expected sheet-not-found error, got %v", err)
	}
}

func TestNormalizeRelPath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
	}
	for _, tt := range tests {
		if got := normalizeRelPath(tt.input); got != tt.expected {
			t.Errorf("normalizeRelPath(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestLoadCSVPadsShortRows(t *testing.T) {
	p := writeFile(t, "ragged.csv", "Age,Gender,Purchase Amount (USD)\n41,Female,20\n33,Male\n27,Female,15,extra\n")
	tab, err := Load(p, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := [][]string{
		{"41", "Female", "20"},
		{"33", "Male", ""},
		{"27", "Female", "15"},
	}
	if diff := cmp.Diff(want, tab.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCSVDuplicateHeaders(t *testing.T) {
	p := writeFile(t, "dup.csv", "Age,Age,,Purchase Amount (USD),Age\n41,42,x,20,43\n")
	tab, err := Load(p, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	wantCols := []string{"Age", "Age.1", "", "Purchase Amount (USD)", "Age.2"}
	if diff := cmp.Diff(wantCols, tab.Columns); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	age, _ := tab.Column("Age")
	if age[0] != "41" {
		t.Fatalf("expected first Age column to win, got %q", age[0])
	}
}

func TestLoadCSVHeaderOnly(t *testing.T) {
	p := writeFile(t, "header.csv", "Age,Purchase Amount (USD)\n")
	tab, err := Load(p, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tab.Len() != 0 {
		t.Fatalf("expected no rows, got %d", tab.Len())
	}
	if diff := cmp.Diff([]string{"Age", "Purchase Amount (USD)"}, tab.Columns); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}

	empty, err := ParseCSV(strings.NewReader(""), "empty", ',')
	if err != nil {
		t.Fatalf("ParseCSV empty: %v", err)
	}
	if empty.Len() != 0 || len(empty.Columns) != 0 {
		t.Fatalf("expected empty table, got %+v", empty)
	}
}
