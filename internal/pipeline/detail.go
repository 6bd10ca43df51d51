package pipeline

import (
	"github.com/harrison/eprimestat/internal/models"
)

// Detail is the per-file detail table: the transformed frames followed by
// the aggregate result as key/value pairs.
type Detail struct {
	Header []string
	Rows   [][]string
	Result [][2]string
}

// Detail shapes the output as a table. The header is the field list of the
// first transformed frame; other frames contribute a blank cell for any
// header field they lack.
func (o *Output) Detail() Detail {
	var d Detail
	if len(o.Frames) > 0 {
		d.Header = o.Frames[0].Keys()
		d.Rows = make([][]string, len(o.Frames))
		for i, f := range o.Frames {
			row := make([]string, len(d.Header))
			for j, k := range d.Header {
				row[j] = f.Value(k)
			}
			d.Rows[i] = row
		}
	}
	for _, k := range o.Keys {
		d.Result = append(d.Result, [2]string{k, models.FormatValue(o.Result[k])})
	}
	return d
}
