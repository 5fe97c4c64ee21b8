package table

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// WriteText renders a view for terminals: an aligned table in table mode and
// one block per row in grid mode.
func WriteText[T any](w io.Writer, v View[T]) error {
	if v.Loading {
		_, err := fmt.Fprintln(w, "Loading...")
		return err
	}
	if v.Empty {
		_, err := fmt.Fprintln(w, NoResults)
		return err
	}

	headers := make([]string, len(v.Headers))
	for i, h := range v.Headers {
		headers[i] = h.Header
		switch h.Sort {
		case "asc":
			headers[i] += " ^"
		case "desc":
			headers[i] += " v"
		}
	}

	if v.Mode == GridView {
		for i, r := range v.Rows {
			if i > 0 {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			for ci, cell := range r.Cells {
				if _, err := fmt.Fprintf(w, "%s: %s\n", headers[ci], cell); err != nil {
					return err
				}
			}
		}
	} else {
		tw := tablewriter.NewWriter(w)
		tw.SetHeader(headers)
		tw.SetAutoWrapText(false)
		tw.SetAutoFormatHeaders(false)
		tw.SetBorder(false)
		for _, r := range v.Rows {
			tw.Append(r.Cells)
		}
		tw.Render()
	}

	if v.ShowPagination {
		_, err := fmt.Fprintf(w, "\nPage %d of %d (%d rows)\n", v.PageIndex+1, v.PageCount, v.Filtered)
		return err
	}
	return nil
}
