package importer

import (
	"testing"
)

func TestParseCommaCSV(t *testing.T) {
	table, err := ParseCSV("nombre,genero\nChrono Trigger,RPG\nZelda,Aventura\n")
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(table.Header) != 2 || table.Header[0] != "nombre" {
		t.Errorf("header = %v", table.Header)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d", len(table.Rows))
	}
	if table.Rows[1][1] != "Aventura" {
		t.Errorf("cell = %q", table.Rows[1][1])
	}
}

func TestParseDetectsSemicolon(t *testing.T) {
	table, err := ParseCSV("nombre;precio\nFF VII;59,90\n")
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(table.Rows[0]) != 2 {
		t.Fatalf("cells = %d", len(table.Rows[0]))
	}
	// With semicolon as delimiter the decimal comma survives.
	if table.Rows[0][1] != "59,90" {
		t.Errorf("cell = %q", table.Rows[0][1])
	}
}

func TestParseQuotedFields(t *testing.T) {
	table, err := ParseCSV("nombre,nota\n\"Baldur's Gate, Enhanced\",\"dijo \"\"hola\"\"\"\n")
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if table.Rows[0][0] != "Baldur's Gate, Enhanced" {
		t.Errorf("quoted comma cell = %q", table.Rows[0][0])
	}
	if table.Rows[0][1] != `dijo "hola"` {
		t.Errorf("escaped quote cell = %q", table.Rows[0][1])
	}
}

func TestParseQuotedNewline(t *testing.T) {
	table, err := ParseCSV("nombre,nota\nJuego,\"linea 1\nlinea 2\"\n")
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("rows = %d, a quoted newline must not split the row", len(table.Rows))
	}
	if table.Rows[0][1] != "linea 1\nlinea 2" {
		t.Errorf("cell = %q", table.Rows[0][1])
	}
}

func TestParseCRLFAndNoTrailingNewline(t *testing.T) {
	table, err := ParseCSV("nombre,genero\r\nZelda,Aventura\r\nMetroid,Accion")
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d", len(table.Rows))
	}
	if table.Rows[1][0] != "Metroid" {
		t.Errorf("last row lost: %v", table.Rows[1])
	}
}

func TestParseUnterminatedQuoteRunsToEnd(t *testing.T) {
	table, err := ParseCSV("nombre\n\"sin cierre\n")
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("rows = %d", len(table.Rows))
	}
	if table.Rows[0][0] != "sin cierre" {
		t.Errorf("cell = %q", table.Rows[0][0])
	}
}

func TestParseSkipsBlankLinesAndNormalizesWidth(t *testing.T) {
	table, err := ParseCSV("a,b,c\n\n1,2\n,,\n")
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("rows = %d, blank and empty rows must be dropped", len(table.Rows))
	}
	if len(table.Rows[0]) != 3 || table.Rows[0][2] != "" {
		t.Errorf("row = %v, want padded to header width", table.Rows[0])
	}
}

func TestParseStripsBOM(t *testing.T) {
	table, err := ParseCSV("\uFEFFnombre\nZelda\n")
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if table.Header[0] != "nombre" {
		t.Errorf("header = %q", table.Header[0])
	}
}

func TestParseEmptyInput(t *testing.T) {
	if _, err := ParseCSV("  \n "); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestDetectDelimiter(t *testing.T) {
	if DetectDelimiter("a;b\n1,2") != ';' {
		t.Error("semicolon in first line must win")
	}
	if DetectDelimiter("a,b\n1;2") != ',' {
		t.Error("comma when first line has no semicolon")
	}
}
