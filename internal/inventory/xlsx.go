package inventory

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

type xlsxSST struct {
	SI []struct {
		T    string `xml:"t"`
		Runs []struct {
			T string `xml:"t"`
		} `xml:"r"`
	} `xml:"si"`
}

type xlsxWorksheet struct {
	SheetData struct {
		Rows []struct {
			Cells []struct {
				R      string `xml:"r,attr"`
				T      string `xml:"t,attr"`
				V      string `xml:"v"`
				Inline struct {
					T string `xml:"t"`
				} `xml:"is"`
			} `xml:"c"`
		} `xml:"row"`
	} `xml:"sheetData"`
}

// parseXLSX reads the first worksheet of a workbook as a header row plus
// device rows, the same layout as the CSV format.
func parseXLSX(f *os.File) ([]Device, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	var sheets []string

	for _, zf := range zr.File {
		files[zf.Name] = zf
		if strings.HasPrefix(zf.Name, "xl/worksheets/sheet") && strings.HasSuffix(zf.Name, ".xml") {
			sheets = append(sheets, zf.Name)
		}
	}

	if len(sheets) == 0 {
		return nil, errors.New("xlsx has no worksheet")
	}

	sort.Slice(sheets, func(i, j int) bool { return sheetNumber(sheets[i]) < sheetNumber(sheets[j]) })

	var shared []string

	if zf, ok := files["xl/sharedStrings.xml"]; ok {
		var sst xlsxSST
		if err := decodeXML(zf, &sst); err != nil {
			return nil, fmt.Errorf("shared strings: %w", err)
		}

		for _, si := range sst.SI {
			text := si.T
			for _, run := range si.Runs {
				text += run.T
			}
			shared = append(shared, text)
		}
	}

	var ws xlsxWorksheet
	if err := decodeXML(files[sheets[0]], &ws); err != nil {
		return nil, fmt.Errorf("%s: %w", sheets[0], err)
	}

	var table [][]string

	for _, row := range ws.SheetData.Rows {
		var cells []string

		for i, cell := range row.Cells {
			col := columnIndex(cell.R)
			if col < 0 {
				col = i
			}

			val := cell.V
			switch cell.T {
			case "s":
				idx, err := strconv.Atoi(val)
				if err != nil || idx < 0 || idx >= len(shared) {
					return nil, fmt.Errorf("cell %s: bad shared string index %q", cell.R, val)
				}
				val = shared[idx]
			case "inlineStr":
				val = cell.Inline.T
			}

			for len(cells) <= col {
				cells = append(cells, "")
			}
			cells[col] = val
		}

		table = append(table, cells)
	}

	return fromTable(table)
}

func decodeXML(zf *zip.File, v any) error {
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}

	return xml.Unmarshal(data, v)
}

// columnIndex turns the letters of a cell reference ("C7", "AB2") into a
// zero-based column number, or -1 when there are none.
func columnIndex(ref string) int {
	n := 0
	letters := 0

	for _, c := range ref {
		if c < 'A' || c > 'Z' {
			break
		}
		n = n*26 + int(c-'A'+1)
		letters++
	}

	if letters == 0 {
		return -1
	}

	return n - 1
}

func sheetNumber(name string) int {
	s := strings.TrimSuffix(strings.TrimPrefix(name, "xl/worksheets/sheet"), ".xml")

	n, err := strconv.Atoi(s)
	if err != nil {
		return int(^uint(0) >> 1)
	}

	return n
}
