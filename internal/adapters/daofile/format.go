// Package daofile reads and writes the fixed-width text catalogs and model
// files exchanged with the legacy photometry suite.
package daofile

import (
	"fmt"
	"strings"
)

// The writers below reproduce the column conventions of the legacy catalogs
// byte-for-byte; companion tools parse these files by position.

func rightAlignInt(n, width int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) < width {
		s = strings.Repeat(" ", width-len(s)) + s
	}
	return s
}

func rightAlignF3(v float64, widthBefore int) string {
	s := fmt.Sprintf("%.3f", v)
	if len(s) < widthBefore+4 {
		s = strings.Repeat(" ", widthBefore+4-len(s)) + s
	}
	return s
}

func rightAlignF2(v float64, widthBefore int) string {
	s := fmt.Sprintf("%.3f", v)
	if len(s) < widthBefore+3 {
		s = strings.Repeat(" ", widthBefore+3-len(s)) + s
	}
	return s
}

// magStr formats an instrumental magnitude, saturating at the legacy
// sentinel value 99.999.
func magStr(v float64) string {
	var s string
	if v >= 99.999 {
		s = "99.999"
	} else {
		s = fmt.Sprintf("%.3f", v)
	}
	if len(s) < 6 {
		s = strings.Repeat(" ", 6-len(s)) + s
	}
	return s
}

// magErrStr formats a magnitude error, saturating at 9.9999.
func magErrStr(v float64) string {
	var s string
	if v >= 9.9999 {
		s = "9.9999"
	} else {
		s = fmt.Sprintf("%.4f", v)
	}
	if len(s) < 6 {
		s = strings.Repeat(" ", 6-len(s)) + s
	}
	return s
}

// splitHeader splits catalog text into its header lines and data lines.
func splitHeader(text string, headerLines int) (string, []string) {
	lines := strings.Split(text, "\n")
	if len(lines) <= headerLines {
		return text, nil
	}
	header := strings.Join(lines[:headerLines], "\n") + "\n"
	return header, lines[headerLines:]
}
