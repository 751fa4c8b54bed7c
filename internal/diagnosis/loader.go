package diagnosis

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

//go:embed data/icpc2_icd10.csv
var defaultTable []byte

// Category headers in the source table, e.g. "A--" or "A70-A99". They group codes
// and are not codes themselves.
var rangeMarker = regexp.MustCompile(`^(.?--.*|[A-Z]\d{2}-[A-Z]\d{2})$`)

const (
	colICPC2Code = 0
	colICPC2Text = 2
	colICD10Code = 3
	colICD10Text = 4
	minColumns   = 5
)

// LoadDefault builds the registry from the table compiled into the binary.
func LoadDefault() (*Registry, error) {
	return Load(bytes.NewReader(defaultTable))
}

// LoadFile builds the registry from a table on disk.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening diagnosis table: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load builds the registry from a semicolon separated table where each line pairs an
// ICPC-2 code with one ICD-10 equivalent:
//
//	ICPC-2 code;short text;full text;ICD-10 code;ICD-10 text
//
// Lines repeating an ICPC-2 code add further equivalents. A line with an empty ICD-10
// code registers the ICPC-2 code without equivalents.
func Load(r io.Reader) (*Registry, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	b := newBuilder()
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading diagnosis table: %w", err)
		}
		line, _ := reader.FieldPos(0)

		if len(record) < minColumns {
			return nil, fmt.Errorf("diagnosis table line %d: expected %d columns, got %d", line, minColumns, len(record))
		}
		icpc2 := strings.TrimSpace(record[colICPC2Code])
		if icpc2 == "" {
			return nil, fmt.Errorf("diagnosis table line %d: missing ICPC-2 code", line)
		}
		if rangeMarker.MatchString(icpc2) {
			continue
		}

		b.add(
			Code{System: ICPC2, Value: icpc2, Text: strings.TrimSpace(record[colICPC2Text])},
			Code{System: ICD10, Value: strings.TrimSpace(record[colICD10Code]), Text: strings.TrimSpace(record[colICD10Text])},
		)
	}

	return b.build(), nil
}

type builder struct {
	codes map[System]map[string]*entry
}

func newBuilder() *builder {
	return &builder{codes: map[System]map[string]*entry{
		ICPC2: {},
		ICD10: {},
	}}
}

func (b *builder) entry(code Code) *entry {
	e, ok := b.codes[code.System][code.Value]
	if !ok {
		e = &entry{code: code}
		b.codes[code.System][code.Value] = e
	}
	return e
}

// add registers the pair in both directions, so the cross-reference is symmetric.
func (b *builder) add(icpc2, icd10 Code) {
	primary := b.entry(icpc2)
	if icd10.Value == "" {
		return
	}
	disease := b.entry(icd10)

	primary.refs = appendUnique(primary.refs, disease.code)
	disease.refs = appendUnique(disease.refs, primary.code)
}

func (b *builder) build() *Registry {
	return &Registry{codes: b.codes}
}

func appendUnique(refs []Code, code Code) []Code {
	for _, existing := range refs {
		if existing.Value == code.Value {
			return refs
		}
	}
	return append(refs, code)
}
