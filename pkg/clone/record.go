package clone

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrUnknownField = errors.New("unknown field")

// column names with typed fields on Record
const (
	FieldCloneID    = "clone_id"
	FieldSubject    = "subject"
	FieldVGene      = "v_gene"
	FieldJGene      = "j_gene"
	FieldCDR3NT     = "cdr3_nt"
	FieldCDR3AA     = "cdr3_aa"
	FieldCDR3NumNTs = "cdr3_num_nts"
	FieldFunctional = "functional"
	FieldCopies     = "copies"
	FieldUniques    = "uniques"
	FieldClones     = "clones"
	FieldSHM        = "shm"
)

// NumericFields are written as numbers to workbooks.
var NumericFields = []string{FieldCDR3NumNTs, FieldCopies, FieldUniques, FieldClones, FieldSHM}

// Record is one clone observed in one pool.
type Record struct {
	CloneID    string
	Subject    string
	VGene      string
	JGene      string
	CDR3NT     string
	CDR3AA     string
	CDR3NumNTs float64
	Functional string
	Copies     float64
	Uniques    float64
	Clones     float64
	SHM        float64

	// raw column values, including the typed ones
	Fields map[string]string
}

// NewRecord types the known columns of fields. A missing shm or
// cdr3_num_nts is NaN, cdr3_num_nts falling back to the length of cdr3_nt
// when the column is absent. Missing copies and uniques are 0.
func NewRecord(fields map[string]string) (*Record, error) {
	var r = &Record{Fields: fields, Clones: 1, SHM: math.NaN(), CDR3NumNTs: math.NaN()}
	r.CloneID = fields[FieldCloneID]
	r.Subject = fields[FieldSubject]
	r.VGene = fields[FieldVGene]
	r.JGene = fields[FieldJGene]
	r.CDR3NT = fields[FieldCDR3NT]
	r.CDR3AA = fields[FieldCDR3AA]
	r.Functional = fields[FieldFunctional]

	for _, num := range []struct {
		name string
		dst  *float64
	}{
		{FieldCDR3NumNTs, &r.CDR3NumNTs},
		{FieldCopies, &r.Copies},
		{FieldUniques, &r.Uniques},
		{FieldClones, &r.Clones},
		{FieldSHM, &r.SHM},
	} {
		s, ok := fields[num.name]
		if !ok || s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", num.name, err)
		}
		*num.dst = v
	}
	if _, ok := fields[FieldCDR3NumNTs]; !ok && r.CDR3NT != "" {
		r.CDR3NumNTs = float64(len(r.CDR3NT))
	}
	return r, nil
}

// Get returns the raw value of field.
func (r *Record) Get(field string) string {
	return r.Fields[field]
}

// Value returns the numeric value of field, NaN when it is empty.
func (r *Record) Value(field string) (float64, error) {
	switch field {
	case FieldCopies:
		return r.Copies, nil
	case FieldUniques:
		return r.Uniques, nil
	case FieldClones:
		return r.Clones, nil
	case FieldSHM:
		return r.SHM, nil
	case FieldCDR3NumNTs:
		return r.CDR3NumNTs, nil
	}
	s, ok := r.Fields[field]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// Key joins the values of fields with a space, the multi-column clone definition.
func (r *Record) Key(fields ...string) string {
	if len(fields) == 1 {
		return r.Fields[fields[0]]
	}
	var values = make([]string, len(fields))
	for i, f := range fields {
		values[i] = r.Fields[f]
	}
	return strings.Join(values, " ")
}
