package service

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/import/sheet"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/import/sniffer"
)

var (
	ErrEmptyDocument   = errors.New("document has no data")
	ErrUnsupportedFile = errors.New("unsupported file")
)

// Source is one document handed to an import. Either Data holds the raw file
// or Rows holds rows already keyed by their column headers.
type Source struct {
	Name string
	Data []byte
	Rows []map[string]string
}

// Document is a source after header detection and classification.
type Document struct {
	FileName    string
	Type        dataset.Type
	Rows        []map[string]string
	HeaderIndex int
	Degraded    bool
}

// DocumentFromSource picks the intake path for src.
func DocumentFromSource(src Source) (*Document, error) {
	if src.Rows != nil {
		return DocumentFromRows(src.Name, src.Rows)
	}
	return DocumentFromFile(src.Name, src.Data)
}

// DocumentFromFile reads workbooks by extension and treats everything else as
// delimited text.
func DocumentFromFile(name string, data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		rows, err := sheet.ReadXLSX(data)
		if err != nil {
			return nil, sheetError(err)
		}
		return DocumentFromRows(name, rows)
	case ".xls":
		rows, err := sheet.ReadXLS(data)
		if err != nil {
			return nil, sheetError(err)
		}
		return DocumentFromRows(name, rows)
	}

	// NUL bytes never appear in text exports.
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, fmt.Errorf("%w: %s is not delimited text", ErrUnsupportedFile, name)
	}

	doc, err := sniffer.Parse(sniffer.DecodeText(data))
	if errors.Is(err, sniffer.ErrEmptyFile) {
		return nil, ErrEmptyDocument
	}
	if err != nil {
		return nil, err
	}

	return &Document{
		FileName:    name,
		Type:        doc.Type,
		Rows:        doc.Rows,
		HeaderIndex: doc.HeaderIndex,
		Degraded:    doc.Degraded,
	}, nil
}

// DocumentFromRows wraps already tabular rows. The type is decided from the
// key set of the first row.
func DocumentFromRows(name string, rows []map[string]string) (*Document, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyDocument
	}
	return &Document{
		FileName: name,
		Type:     sniffer.ClassifyRow(rows[0]),
		Rows:     rows,
	}, nil
}

func sheetError(err error) error {
	if errors.Is(err, sheet.ErrNoHeader) || errors.Is(err, sheet.ErrNoSheets) {
		return ErrEmptyDocument
	}
	return fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
}
