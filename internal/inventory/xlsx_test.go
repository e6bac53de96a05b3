package inventory

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWorkbook(t *testing.T, parts map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "devices.xlsx")
	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	for name, content := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	return path
}

const sharedStrings = `<?xml version="1.0" encoding="UTF-8"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<si><t>ip</t></si><si><t>username</t></si><si><t>password</t></si><si><t>device_type</t></si>
<si><t>192.168.100.1</t></si><si><t>cisco</t></si><si><r><t>cisco_</t></r><r><t>xr</t></r></si>
</sst>`

const sheet1 = `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>
<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c><c r="C1" t="s"><v>2</v></c><c r="E1" t="s"><v>3</v></c></row>
<row r="2"><c r="A2" t="s"><v>4</v></c><c r="B2" t="s"><v>5</v></c><c r="C2" t="s"><v>5</v></c></row>
<row r="3"><c r="A3" t="inlineStr"><is><t>10.0.0.9</t></is></c><c r="B3" t="s"><v>5</v></c><c r="E3" t="s"><v>6</v></c></row>
</sheetData></worksheet>`

func TestLoad_XLSX(t *testing.T) {
	path := writeWorkbook(t, map[string]string{
		"xl/sharedStrings.xml":     sharedStrings,
		"xl/worksheets/sheet1.xml": sheet1,
		"xl/worksheets/sheet2.xml": `<worksheet><sheetData></sheetData></worksheet>`,
	})

	devices, err := Load(path)
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.Equal(t, "192.168.100.1", devices[0].IP)
	assert.Equal(t, "cisco", devices[0].Password)
	assert.Equal(t, DefaultDeviceType, devices[0].DeviceType)

	assert.Equal(t, "10.0.0.9", devices[1].IP)
	assert.Empty(t, devices[1].Password)
	assert.Equal(t, "cisco_xr", devices[1].DeviceType)
	assert.Equal(t, PlatformIOSXR, devices[1].Platform)
}

func TestLoad_XLSXErrors(t *testing.T) {
	notZip := writeFile(t, "devices.xlsx", "hostname,ip\n")
	_, err := Load(notZip)
	require.Error(t, err)

	noSheet := writeWorkbook(t, map[string]string{"xl/workbook.xml": "<workbook/>"})
	_, err = Load(noSheet)
	require.Error(t, err)

	badIndex := writeWorkbook(t, map[string]string{
		"xl/worksheets/sheet1.xml": `<worksheet><sheetData><row><c r="A1" t="s"><v>7</v></c></row></sheetData></worksheet>`,
	})
	_, err = Load(badIndex)
	require.Error(t, err)
}

func TestColumnIndex(t *testing.T) {
	assert.Equal(t, 0, columnIndex("A1"))
	assert.Equal(t, 4, columnIndex("E12"))
	assert.Equal(t, 27, columnIndex("AB3"))
	assert.Equal(t, -1, columnIndex("12"))
}
