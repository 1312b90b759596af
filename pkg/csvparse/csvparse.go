// Package csvparse turns an uploaded CSV file into a lazy sequence of
// validated entries.
//
// The first row must be a header. Columns are mapped by name, so their order
// does not matter and unknown columns are ignored. Parsing is fail-fast: the
// first malformed or invalid row ends the sequence with a BadInput error and
// no further entries are produced.
package csvparse

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/graphvis/pkg/apperr"
	"github.com/OFFIS-RIT/graphvis/pkg/entry"
)

type column int

const (
	colLabel1 column = iota
	colLabel2
	colRelation
	colEntity1
	colEntity2
	colScore
	colSourceID
	colSentenceIndex
	colSentence
	numColumns
)

// headerNames maps accepted header spellings to their column.
var headerNames = map[string]column{
	"label1":        colLabel1,
	"label2":        colLabel2,
	"relation":      colRelation,
	"entity1":       colEntity1,
	"entity2":       colEntity2,
	"score":         colScore,
	"PMC_ID":        colSourceID,
	"sourceId":      colSourceID,
	"sent_id":       colSentenceIndex,
	"sentenceIndex": colSentenceIndex,
	"sentence":      colSentence,
}

var canonicalNames = [numColumns]string{
	"label1", "label2", "relation", "entity1", "entity2",
	"score", "PMC_ID", "sent_id", "sentence",
}

// Entries parses data lazily. See Stream.
func Entries(data []byte) iter.Seq2[entry.Entry, error] {
	return Stream(bytes.NewReader(data))
}

// Stream returns a single-use sequence over the entries in r. Each step yields
// either a valid entry and a nil error, or a zero entry and the error that
// stopped parsing. Ranging over the sequence a second time yields nothing.
func Stream(r io.Reader) iter.Seq2[entry.Entry, error] {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	consumed := false

	return func(yield func(entry.Entry, error) bool) {
		if consumed {
			return
		}
		consumed = true

		index, err := readHeader(reader)
		if err != nil {
			yield(entry.Entry{}, err)
			return
		}

		for {
			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(entry.Entry{}, apperr.WrapBadInput(err, "malformed csv"))
				return
			}
			if blank(record) {
				continue
			}
			line, _ := reader.FieldPos(0)

			e, err := decodeRow(index, record)
			if err == nil {
				err = entry.Validate(e)
			}
			if err != nil {
				yield(entry.Entry{}, apperr.WrapBadInput(err, "invalid row %d [%s]", line, strings.Join(record, ",")))
				return
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

// Parse collects all entries of data. It returns either every entry or an
// error, never a partial list.
func Parse(data []byte) ([]entry.Entry, error) {
	var out []entry.Entry
	for e, err := range Entries(data) {
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func readHeader(reader *csv.Reader) ([numColumns]int, error) {
	var index [numColumns]int
	for i := range index {
		index[i] = -1
	}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return index, apperr.BadInput("csv file is empty")
	}
	if err != nil {
		return index, apperr.WrapBadInput(err, "malformed csv header")
	}

	for i, name := range header {
		name = strings.TrimSpace(name)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if col, ok := headerNames[name]; ok && index[col] == -1 {
			index[col] = i
		}
	}

	var missing []string
	for col, pos := range index {
		if pos == -1 {
			missing = append(missing, canonicalNames[col])
		}
	}
	if len(missing) > 0 {
		return index, apperr.BadInput("csv header is missing columns: %s", strings.Join(missing, ", "))
	}
	return index, nil
}

func decodeRow(index [numColumns]int, record []string) (entry.Entry, error) {
	field := func(col column) string {
		pos := index[col]
		if pos >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[pos])
	}

	score, err := strconv.ParseFloat(field(colScore), 64)
	if err != nil {
		return entry.Entry{}, fmt.Errorf("score %q is not a number", field(colScore))
	}
	sentenceIndex, err := parseIndex(field(colSentenceIndex))
	if err != nil {
		return entry.Entry{}, err
	}

	return entry.Entry{
		Label1:        entry.Label(field(colLabel1)),
		Label2:        entry.Label(field(colLabel2)),
		Relation:      entry.Relation(field(colRelation)),
		Entity1:       field(colEntity1),
		Entity2:       field(colEntity2),
		Score:         score,
		SourceID:      field(colSourceID),
		SentenceIndex: sentenceIndex,
		Sentence:      field(colSentence),
	}, nil
}

// parseIndex accepts integers and integral floats such as "3.0".
func parseIndex(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("sent_id %q is not an integer", s)
	}
	return int(f), nil
}

func blank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
