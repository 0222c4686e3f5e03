package display

import (
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
)

// Kitty graphics protocol: APC "\x1b_G<keys>;<payload>\x1b\\". PNG payloads
// (f=100) travel as base64 in chunks of at most maxPayload bytes, and m=1
// marks that another chunk follows.
const (
	apcStart   = "\x1b_G"
	apcEnd     = "\x1b\\"
	maxPayload = 4096
)

// writeKitty transmits and places a PNG at the cursor. When cols is positive
// the terminal scales the image to that many cells wide.
func writeKitty(out io.Writer, png []byte, cols int) error {
	if len(png) == 0 {
		return nil
	}

	payload := base64.StdEncoding.EncodeToString(png)
	header := "a=T,f=100,q=2"
	if cols > 0 {
		header += ",c=" + strconv.Itoa(cols)
	}

	for off := 0; ; {
		end := min(off+maxPayload, len(payload))
		more := end < len(payload)

		var keys string
		switch {
		case off == 0 && more:
			keys = header + ",m=1"
		case off == 0:
			keys = header
		case more:
			keys = "m=1"
		default:
			keys = "m=0"
		}

		if _, err := fmt.Fprintf(out, "%s%s;%s%s", apcStart, keys, payload[off:end], apcEnd); err != nil {
			return err
		}
		if !more {
			return nil
		}
		off = end
	}
}
