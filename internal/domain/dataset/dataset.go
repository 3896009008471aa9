// Package dataset defines the canonical record shape shared by the import pipeline,
// the dataset store and the aggregation engine.
package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// Type classifies a whole imported document. A document is homogeneous.
type Type string

const (
	Sales     Type = "sales"
	Suppliers Type = "suppliers"
)

// GeneralSupplier is assigned to supplier records that carry no supplier name.
const GeneralSupplier = "General"

var ErrUnknownType = errors.New("unknown dataset type")

// ParseType accepts the two dataset names case-insensitively.
func ParseType(raw string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case Sales:
		return Sales, nil
	case Suppliers:
		return Suppliers, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, raw)
}

func (t Type) Valid() bool {
	return t == Sales || t == Suppliers
}

// Record is one normalized transaction row.
type Record struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	SKU         string  `json:"sku,omitempty"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Total       float64 `json:"total"`
	Unit        string  `json:"unit,omitempty"`
	Supplier    string  `json:"supplier,omitempty"`
}

// EntityName returns the field a dataset is ranked and filtered by:
// the product description for sales, the supplier for suppliers.
func (r Record) EntityName(t Type) string {
	if t == Suppliers {
		return r.Supplier
	}
	return r.Description
}

// Snapshot is the persisted unit holding both collections and their source file names.
type Snapshot struct {
	Sales              []Record `json:"sales"`
	Suppliers          []Record `json:"suppliers"`
	SalesFileNames     []string `json:"salesFileNames"`
	SuppliersFileNames []string `json:"suppliersFileNames"`
}

// EmptySnapshot returns a snapshot whose slices are non-nil so it encodes as empty arrays.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Sales:              []Record{},
		Suppliers:          []Record{},
		SalesFileNames:     []string{},
		SuppliersFileNames: []string{},
	}
}

// Normalize replaces nil slices with empty ones.
func (s Snapshot) Normalize() Snapshot {
	if s.Sales == nil {
		s.Sales = []Record{}
	}
	if s.Suppliers == nil {
		s.Suppliers = []Record{}
	}
	if s.SalesFileNames == nil {
		s.SalesFileNames = []string{}
	}
	if s.SuppliersFileNames == nil {
		s.SuppliersFileNames = []string{}
	}
	return s
}

// Records returns the collection for t.
func (s Snapshot) Records(t Type) []Record {
	if t == Suppliers {
		return s.Suppliers
	}
	return s.Sales
}

// Table is a flat, ordered tabular view used for exports.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}
