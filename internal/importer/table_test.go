package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestReadTable_Encodings(t *testing.T) {
	gbk, err := simplifiedchinese.GB18030.NewEncoder().String("型号,客户\nM1,华为\n")
	require.NoError(t, err)

	tests := []struct {
		name       string
		data       []byte
		wantSource string
		wantHeader []string
		wantRow    []string
	}{
		{
			name:       "utf-8",
			data:       []byte("model_no,description\nM1,scratch\n"),
			wantSource: "utf-8",
			wantHeader: []string{"model_no", "description"},
			wantRow:    []string{"M1", "scratch"},
		},
		{
			name:       "utf-8 with bom",
			data:       []byte("\xef\xbb\xbfmodel_no,description\r\nM1,scratch\r\n"),
			wantSource: "utf-8-bom",
			wantHeader: []string{"model_no", "description"},
			wantRow:    []string{"M1", "scratch"},
		},
		{
			name:       "gb18030",
			data:       []byte(gbk),
			wantSource: "gb18030",
			wantHeader: []string{"型号", "客户"},
			wantRow:    []string{"M1", "华为"},
		},
		{
			name:       "windows-1252 fallback",
			data:       []byte("name,x\nCaf\xe9,1\n"),
			wantSource: "windows-1252",
			wantHeader: []string{"name", "x"},
			wantRow:    []string{"Café", "1"},
		},
		{
			name:       "semicolon delimited",
			data:       []byte("model_no;description\nM1;\"a;b\"\n"),
			wantSource: "utf-8",
			wantHeader: []string{"model_no", "description"},
			wantRow:    []string{"M1", "a;b"},
		},
		{
			name:       "tab delimited",
			data:       []byte("model_no\tdescription\nM1\tx\n"),
			wantSource: "utf-8",
			wantHeader: []string{"model_no", "description"},
			wantRow:    []string{"M1", "x"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := ReadTable(tt.data, "data.csv")
			require.NoError(t, err)
			assert.Equal(t, tt.wantSource, tbl.Source)
			assert.Equal(t, tt.wantHeader, tbl.Headers)
			require.Len(t, tbl.Rows, 1)
			assert.Equal(t, tt.wantRow, tbl.Rows[0])
		})
	}
}

func TestReadTable_Unreadable(t *testing.T) {
	utf16 := []byte{0xFF, 0xFE, 'm', 0, ',', 0, 'd', 0, '\n', 0, 'M', 0, ',', 0, 'x', 0, '\n', 0}

	for name, tc := range map[string]struct {
		data     []byte
		filename string
	}{
		"utf-16":      {utf16, "data.csv"},
		"empty":       {[]byte("  \n"), "data.csv"},
		"legacy xls":  {[]byte("\xd0\xcf\x11\xe0"), "data.xls"},
		"broken xlsx": {[]byte("not a zip"), "data.xlsx"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadTable(tc.data, tc.filename)
			assert.ErrorIs(t, err, ErrUnreadableFile)
		})
	}
}

func TestReadTable_HeadersAndRaggedRows(t *testing.T) {
	data := []byte("model_no,,model_no,note\n\nM1,a,b\nM2,a,b,c,extra\n,,,\n")

	tbl, err := ReadTable(data, "x.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"model_no", "column_2", "model_no_2", "note", "column_5"}, tbl.Headers)
	require.Len(t, tbl.Rows, 2, "blank rows are dropped")
	assert.Equal(t, []string{"M1", "a", "b", "", ""}, tbl.Rows[0])
	assert.Equal(t, []string{"M2", "a", "b", "c", "extra"}, tbl.Rows[1])
	assert.Len(t, tbl.Preview(1), 1)
	assert.Len(t, tbl.Preview(10), 2)
}

func TestReadTable_Workbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"model_no", "category", "severity"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"M1", "Soldering", "Critical"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"M2", "Cosmetic"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	tbl, err := ReadTable(buf.Bytes(), "defects.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "xlsx", tbl.Source)
	assert.Equal(t, []string{"model_no", "category", "severity"}, tbl.Headers)
	assert.Equal(t, [][]string{{"M1", "Soldering", "Critical"}, {"M2", "Cosmetic", ""}}, tbl.Rows)
}
