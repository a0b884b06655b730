package snapshot

import (
	"bytes"
	"strings"
)

// Rule is the delimiter line written above and below each file header.
var Rule = strings.Repeat("=", 80)

// writeBlock appends one file record to buf.
func writeBlock(buf *bytes.Buffer, rel string, content []byte) {
	buf.WriteString("\n")
	buf.WriteString(Rule)
	buf.WriteString("\nFile: ")
	buf.WriteString(rel)
	buf.WriteString("\n")
	buf.WriteString(Rule)
	buf.WriteString("\n\n")
	buf.Write(content)
}
