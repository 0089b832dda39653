package clone

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/liserjrqlxue/goUtil/fmtUtil"
	"github.com/liserjrqlxue/goUtil/simpleUtil"
	"github.com/shenwei356/xopen"
	"github.com/xuri/excelize/v2"
)

// ReadTSV loads a tab separated clone table, gzip input is detected.
func ReadTSV(path string) (*Table, error) {
	in, err := xopen.Ropen(path)
	if err != nil {
		return nil, err
	}
	defer simpleUtil.DeferClose(in)

	t, err := Parse(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Info("ReadTSV", "path", path, "rows", t.Len())
	return t, nil
}

// Parse reads a header line followed by one record per line.
func Parse(r io.Reader) (*Table, error) {
	var reader = csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty table")
		}
		return nil, err
	}
	var t = &Table{Columns: header}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		var fields = make(map[string]string, len(header))
		for i, col := range header {
			fields[col] = row[i]
		}
		record, err := NewRecord(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		t.Records = append(t.Records, record)
	}
	return t, nil
}

// ReadDirectory concatenates every *.tsv and *.tsv.gz file of dir, sorted by name.
func ReadDirectory(dir string) (*Table, error) {
	paths, err := tsvFiles(dir)
	if err != nil {
		return nil, err
	}

	var tables []*Table
	for _, p := range paths {
		t, err := ReadTSV(p)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return Concat(tables...), nil
}

func tsvFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".tsv") || strings.HasSuffix(e.Name(), ".tsv.gz") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no tsv file in %s", dir)
	}
	sort.Strings(paths)
	return paths, nil
}

// Read loads a directory or a single file.
func Read(path string) (*Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return ReadDirectory(path)
	}
	return ReadTSV(path)
}

func (t *Table) rows() [][]string {
	var rows = make([][]string, 0, len(t.Records))
	for _, r := range t.Records {
		var row = make([]string, len(t.Columns))
		for i, col := range t.Columns {
			row[i] = r.Get(col)
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteTSV writes the table, a .gz suffix compresses the output.
// Write failures after opening panic, as fmtUtil does.
func (t *Table) WriteTSV(path string) error {
	out, err := xopen.Wopen(path)
	if err != nil {
		return err
	}
	defer simpleUtil.DeferClose(out)

	fmtUtil.FprintStringArray(out, t.Columns, "\t")
	for _, row := range t.rows() {
		fmtUtil.FprintStringArray(out, row, "\t")
	}
	slog.Info("WriteTSV", "path", path, "rows", t.Len())
	return nil
}

// WriteXLSX writes the table to sheet of a new workbook. Numeric cells stay numeric.
func (t *Table) WriteXLSX(path, sheet string) error {
	var xlsx = excelize.NewFile()
	defer simpleUtil.DeferClose(xlsx)

	if err := WriteSheet(xlsx, sheet, t.Columns, t.rows(), t.IsNumeric); err != nil {
		return err
	}
	return xlsx.SaveAs(path)
}

// WriteSheet creates sheet in xlsx and fills it with title and rows.
// Cells of the columns numeric reports are written as numbers when they
// hold a finite one. The default Sheet1 is dropped when another sheet name is used.
func WriteSheet(xlsx *excelize.File, sheet string, title []string, rows [][]string, numeric func(column string) bool) error {
	index, err := xlsx.NewSheet(sheet)
	if err != nil {
		return err
	}
	xlsx.SetActiveSheet(index)
	if sheet != "Sheet1" {
		if err = xlsx.DeleteSheet("Sheet1"); err != nil {
			return err
		}
	}
	if err = xlsx.SetSheetRow(sheet, "A1", &title); err != nil {
		return err
	}
	for i, row := range rows {
		var cells = make([]any, len(row))
		for j, s := range row {
			cells[j] = s
			if numeric == nil || !numeric(title[j]) {
				continue
			}
			if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
				cells[j] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err = xlsx.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	return nil
}
