package cmd

import (
	"fmt"
	"strings"

	"github.com/golang/glog"
)

// glogLogger adapts glog to the Logger interfaces of the bootloader and
// updater packages. Debug messages need -v=1.
type glogLogger struct {
	prefix string
}

func (l glogLogger) Debug(msg string, keysAndValues ...interface{}) {
	if glog.V(1) {
		glog.InfoDepth(1, l.format(msg, keysAndValues))
	}
}

func (l glogLogger) Info(msg string, keysAndValues ...interface{}) {
	glog.InfoDepth(1, l.format(msg, keysAndValues))
}

func (l glogLogger) Error(msg string, keysAndValues ...interface{}) {
	glog.ErrorDepth(1, l.format(msg, keysAndValues))
}

func (l glogLogger) format(msg string, kv []interface{}) string {
	var b strings.Builder
	if l.prefix != "" {
		b.WriteString(l.prefix)
		b.WriteString(": ")
	}
	b.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if i+1 < len(kv) {
			fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
		} else {
			fmt.Fprintf(&b, " %v=?", kv[i])
		}
	}
	return b.String()
}
