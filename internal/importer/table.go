package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// ErrUnreadableFile is returned when a file is neither a readable spreadsheet
// nor text in any of the supported encodings.
var ErrUnreadableFile = errors.New("unreadable file")

// Table is a parsed header row plus data rows. Every row has exactly
// len(Headers) cells.
type Table struct {
	Headers []string
	Rows    [][]string
	// Lines holds the 1-based file line or sheet row of each data row.
	Lines []int
	// Source describes how the file was read: "xlsx" or the text encoding.
	Source string
}

type textEncoding struct {
	name string
	enc  encoding.Encoding // nil means the bytes are already UTF-8
}

// textEncodings are tried in order. UTF-8 with a byte-order mark is handled
// before this list.
var textEncodings = []textEncoding{
	{"utf-8", nil},
	{"gb18030", simplifiedchinese.GB18030},
	{"big5", traditionalchinese.Big5},
	{"shift_jis", japanese.ShiftJIS},
	{"windows-1252", charmap.Windows1252},
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var spreadsheetExts = map[string]bool{".xlsx": true, ".xlsm": true, ".xltx": true, ".xltm": true}

// ReadTable parses data as a spreadsheet when the filename or content says so,
// otherwise as delimited text.
func ReadTable(data []byte, filename string) (*Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrUnreadableFile)
	}
	ext := strings.ToLower(path.Ext(filename))
	if ext == ".xls" {
		return nil, fmt.Errorf("%w: legacy .xls workbooks are not supported, save as .xlsx or .csv", ErrUnreadableFile)
	}
	if spreadsheetExts[ext] || isWorkbook(data) {
		return readWorkbook(data)
	}
	return readText(data)
}

func isWorkbook(data []byte) bool {
	mt := mimetype.Detect(data)
	for ; mt != nil; mt = mt.Parent() {
		if mt.Is("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet") {
			return true
		}
	}
	return false
}

func readWorkbook(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrUnreadableFile)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	lines := make([]int, len(rows))
	for i := range lines {
		lines[i] = i + 1
	}
	return newTable(rows, lines, "xlsx")
}

func readText(data []byte) (*Table, error) {
	var attempts []string
	if bytes.HasPrefix(data, utf8BOM) {
		t, err := parseDelimited(data[len(utf8BOM):], textEncoding{"utf-8-bom", nil})
		if err == nil {
			return t, nil
		}
		attempts = append(attempts, "utf-8-bom: "+err.Error())
	}
	for _, te := range textEncodings {
		t, err := parseDelimited(data, te)
		if err == nil {
			return t, nil
		}
		attempts = append(attempts, te.name+": "+err.Error())
	}
	return nil, fmt.Errorf("%w: no supported encoding fits (%s)", ErrUnreadableFile, strings.Join(attempts, "; "))
}

func parseDelimited(raw []byte, te textEncoding) (*Table, error) {
	text, err := decode(raw, te)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	var lines []int
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := r.FieldPos(0)
		rows = append(rows, rec)
		lines = append(lines, line)
	}
	return newTable(rows, lines, te.name)
}

func decode(raw []byte, te textEncoding) (string, error) {
	var text string
	if te.enc == nil {
		if !utf8.Valid(raw) {
			return "", errors.New("invalid utf-8")
		}
		text = string(raw)
	} else {
		out, err := te.enc.NewDecoder().Bytes(raw)
		if err != nil {
			return "", err
		}
		text = string(out)
	}
	for _, r := range text {
		if r == utf8.RuneError {
			return "", errors.New("undecodable bytes")
		}
		if unicode.IsControl(r) && r != '\t' && r != '\r' && r != '\n' {
			return "", fmt.Errorf("control character %U", r)
		}
	}
	return text, nil
}

// sniffDelimiter picks the most frequent of comma, semicolon and tab on the header line.
func sniffDelimiter(text string) rune {
	line := text
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		line = text[:i]
	}
	best, bestN := ',', strings.Count(line, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(line, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

func newTable(rows [][]string, lines []int, source string) (*Table, error) {
	// Leading blank lines are not a header.
	for len(rows) > 0 && blank(rows[0]) {
		rows, lines = rows[1:], lines[1:]
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrUnreadableFile)
	}
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	t := &Table{Headers: normalizeHeaders(rows[0], width), Source: source}
	for i, r := range rows[1:] {
		if blank(r) {
			continue
		}
		row := make([]string, width)
		copy(row, r)
		t.Rows = append(t.Rows, row)
		t.Lines = append(t.Lines, lines[i+1])
	}
	return t, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// normalizeHeaders trims names, names empty columns column_<n> and suffixes
// duplicates with _2, _3, ...
func normalizeHeaders(raw []string, width int) []string {
	out := make([]string, width)
	seen := map[string]int{}
	for i := 0; i < width; i++ {
		h := ""
		if i < len(raw) {
			h = strings.TrimSpace(strings.TrimPrefix(raw[i], "\ufeff"))
		}
		if h == "" {
			h = "column_" + strconv.Itoa(i+1)
		}
		seen[h]++
		if n := seen[h]; n > 1 {
			h = h + "_" + strconv.Itoa(n)
		}
		out[i] = h
	}
	return out
}

// Preview returns at most n rows.
func (t *Table) Preview(n int) [][]string {
	if n < 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}
