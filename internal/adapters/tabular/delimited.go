package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const readBufferSize = 256 * 1024

// candidateDelimiters are tried in order; ties keep the earlier one.
var candidateDelimiters = []rune{'\t', ';', ',', '|'}

// DetectDelimiter picks the candidate delimiter occurring most often in line.
// A line without any candidate is treated as comma separated.
func DetectDelimiter(line string) rune {
	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func readDelimitedFile(path string, delimiter rune) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := ReadDelimited(f, delimiter)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// ReadDelimited reads delimited text from r. A zero delimiter is detected from
// the header line. A UTF-8 byte order mark is skipped.
func ReadDelimited(r io.Reader, delimiter rune) (*Table, error) {
	br := bufio.NewReaderSize(r, readBufferSize)

	if bom, err := br.Peek(3); err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = br.Discard(3)
	}

	if delimiter == 0 {
		delimiter = DetectDelimiter(peekLine(br))
	}

	cr := csv.NewReader(br)
	cr.Comma = delimiter
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &Table{Header: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}
		if blank(rec) {
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// peekLine returns the first line without consuming it. Lines longer than the
// buffer are cut at the buffer size, which is enough to count delimiters.
func peekLine(br *bufio.Reader) string {
	buf, _ := br.Peek(readBufferSize)
	if i := bytes.IndexByte(buf, '\n'); i >= 0 {
		buf = buf[:i]
	}
	return string(buf)
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
