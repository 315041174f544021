package refdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
)

// SubstituteTable is the wide reference sheet where each row may list a
// product code in any of several columns. The stage searches a fixed
// column range of it; this type just holds the raw rows in sheet order.
type SubstituteTable struct {
	Rows [][]string
}

// FetchSubstitutes downloads and parses the substitute-code sheet. The
// first row is the header and is discarded; row order is preserved because
// the resolver's tie-break is top-most match wins.
func (c *Client) FetchSubstitutes(ctx context.Context, url string) (SubstituteTable, error) {
	body, err := c.fetch(ctx, url)
	if err != nil {
		return SubstituteTable{}, err
	}
	defer body.Close()

	return ParseSubstitutes(body)
}

// ParseSubstitutes reads the substitute CSV into rows.
func ParseSubstitutes(r io.Reader) (SubstituteTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	if _, err := cr.Read(); err != nil {
		return SubstituteTable{}, fmt.Errorf("substitute table: failed to read header: %w", err)
	}

	var rows [][]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return SubstituteTable{}, fmt.Errorf("substitute table: failed to read row: %w", err)
		}
		rows = append(rows, record)
	}

	return SubstituteTable{Rows: rows}, nil
}
