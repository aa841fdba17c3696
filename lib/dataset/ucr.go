package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
)

var (
	ErrEmptyDataset = errors.New("dataset: no series")
	ErrBadLine      = errors.New("dataset: malformed line")
)

// Longest line the reader accepts, in bytes.
const MAX_LINE_LENGTH = 64 * 1024 * 1024

func isSeparator(r rune) bool {
	return r == ',' || r == ' ' || r == '\t' || r == '\r'
}

// ReadUCR parses one series per line: the label first, then the values,
// separated by commas and/or whitespace. Blank lines are skipped. With
// skipHeader the first line is ignored.
func ReadUCR(r io.Reader, skipHeader bool) (Labeled, error) {
	ret := make(Labeled)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MAX_LINE_LENGTH)
	lineCount := 0
	for scanner.Scan() {
		lineCount++
		if skipHeader && lineCount == 1 {
			continue
		}
		parts := strings.FieldsFunc(scanner.Text(), isSeparator)
		if len(parts) == 0 {
			continue
		}
		if len(parts) == 1 {
			return nil, fmt.Errorf("%w: line %d has a label but no values", ErrBadLine, lineCount)
		}
		series := make([]float64, len(parts)-1)
		for i, p := range parts[1:] {
			v, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: on line %d, failed to parse %s into a float: %v",
					ErrBadLine, lineCount, p, err)
			}
			series[i] = v
		}
		ret.Add(parts[0], series)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if ret.Count() == 0 {
		return nil, ErrEmptyDataset
	}
	return ret, nil
}

// LoadUCR reads a UCR file.
func LoadUCR(filename string, skipHeader bool) (Labeled, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	ret, err := ReadUCR(file, skipHeader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	log.Printf("loaded %d series in %d classes from %s\n", ret.Count(), len(ret.Labels()), filename)
	return ret, nil
}

// ReadSeries reads a single series from one column of a whitespace or comma
// separated file, one value per line. Blank lines are skipped.
func ReadSeries(r io.Reader, column int) ([]float64, error) {
	var ret []float64
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MAX_LINE_LENGTH)
	lineCount := 0
	for scanner.Scan() {
		lineCount++
		parts := strings.FieldsFunc(scanner.Text(), isSeparator)
		if len(parts) == 0 {
			continue
		}
		if column >= len(parts) {
			return nil, fmt.Errorf("%w: line %d has no column %d", ErrBadLine, lineCount, column)
		}
		v, err := strconv.ParseFloat(parts[column], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: on line %d, failed to parse %s into a float: %v",
				ErrBadLine, lineCount, parts[column], err)
		}
		ret = append(ret, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(ret) == 0 {
		return nil, ErrEmptyDataset
	}
	return ret, nil
}

func LoadSeries(filename string, column int) ([]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	ret, err := ReadSeries(file, column)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	log.Printf("read %d points from %s\n", len(ret), filename)
	return ret, nil
}
