package health

import (
	"fmt"
	"io"

	"github.com/valyala/bytebufferpool"

	"github.com/srediag/plugin-status/api"
)

const (
	stateOK   = "OK"
	stateFail = "FAIL"
)

// Styler decorates the state column; the zero value renders plain text.
type Styler func(healthy bool, s string) string

// RenderText writes one line per report followed by the log lines captured
// during the query, indented.
func RenderText(w io.Writer, reports []*api.Report, style Styler) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	width := len("PLUGIN")
	for _, r := range reports {
		if len(r.Plugin) > width {
			width = len(r.Plugin)
		}
	}

	fmt.Fprintf(buf, "%-*s  %-5s  %s\n", width, "PLUGIN", "STATE", "DETAIL")
	for _, r := range reports {
		state, detail := stateOK, fmt.Sprintf("%v", r.Result)
		if r.Result == nil {
			detail = "-"
		}
		if !r.Healthy {
			state = stateFail
			if r.Error != nil {
				detail = r.Error.Code + ": " + r.Error.Message
			}
		}
		col := fmt.Sprintf("%-5s", state)
		if style != nil {
			col = style(r.Healthy, col)
		}
		fmt.Fprintf(buf, "%-*s  %s %s\n", width, r.Plugin, col, detail)
		for _, line := range r.Logs {
			fmt.Fprintf(buf, "%-*s    log: %s\n", width, "", line)
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}
