// Package accounts provides the account ownership metadata store.
package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Record holds the ownership metadata for one AWS account. The "Account ID"
// CSV column carries the human-readable account name.
type Record struct {
	Number string
	Name   string
	Owner  string
	Type   string
}

// Store looks up ownership metadata by 12-digit account number. Lookup is a
// total function: a missing account yields a zero Record, never an error.
type Store interface {
	Lookup(accountNumber string) Record
	Len() int
}

type mapStore struct {
	records map[string]Record
}

func (s *mapStore) Lookup(accountNumber string) Record {
	return s.records[accountNumber]
}

func (s *mapStore) Len() int {
	return len(s.records)
}

// NewStore creates a store from pre-built records, keyed by account number.
func NewStore(records map[string]Record) Store {
	if records == nil {
		records = map[string]Record{}
	}
	return &mapStore{records: records}
}

// Expected CSV header columns, matched exactly.
const (
	headerAccountNo    = "Account No"
	headerAccountName  = "Account ID"
	headerAccountOwner = "Account Owner"
	headerAccountType  = "Account Type"
)

// LoadCSV reads the account ownership file. The header row must contain the
// expected column names; rows with an empty account number are skipped.
func LoadCSV(path string) (Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open owners file: %w", err)
	}
	defer f.Close()

	return parseCSV(f)
}

func parseCSV(r io.Reader) (Store, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read owners file header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	if _, ok := cols[headerAccountNo]; !ok {
		return nil, fmt.Errorf("owners file is missing the %q header column (found: %s)",
			headerAccountNo, strings.Join(header, ", "))
	}

	records := map[string]Record{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read owners file row: %w", err)
		}

		number := fieldAt(row, cols, headerAccountNo)
		if number == "" {
			continue
		}
		records[number] = Record{
			Number: number,
			Name:   fieldAt(row, cols, headerAccountName),
			Owner:  fieldAt(row, cols, headerAccountOwner),
			Type:   fieldAt(row, cols, headerAccountType),
		}
	}

	return &mapStore{records: records}, nil
}

func fieldAt(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
