package statement

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

func parsePDF(bank Bank, r io.Reader) (*Statement, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Kind: CorruptFile, Bank: bank, Err: err}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, parseErr(EmptyStatement, bank, "file is empty")
	}

	lines, err := extractLines(data)
	if err != nil {
		return nil, &ParseError{Kind: CorruptFile, Bank: bank, Err: err}
	}

	return ParseText(bank, lines)
}

// extractLines returns the text of every page row by row, words joined by a space.
func extractLines(data []byte) (lines []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panicked: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("reading page %d: %w", i, err)
		}

		for _, row := range rows {
			parts := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}

			if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
				lines = append(lines, line)
			}
		}
	}

	return lines, nil
}
