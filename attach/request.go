package attach

import "io"

// ProtocolVersion is the version marker the client writes first on the wire.
const ProtocolVersion byte = '1'

// requestArgs is the fixed number of argument fields following the command.
// The JVM always reads exactly this many; unsupplied arguments go out as
// empty strings.
const requestArgs = 3

// Request is one attach command. The command name and arguments are opaque
// strings passed through to the target; their semantics are the JVM's
// business. Arguments beyond the wire's three slots are dropped.
type Request struct {
	Command string
	Args    []string
}

// WriteTo encodes the request: the version byte plus NUL, then the command
// and three arguments, each NUL-terminated and each written as its own
// discrete write. The receiver parses NUL-terminated strings rather than a
// framed message, so field boundaries matter and no length prefix exists.
func (r Request) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write([]byte{ProtocolVersion, 0})
	total := int64(n)
	if err != nil {
		return total, err
	}

	fields := make([]string, 0, requestArgs+1)
	fields = append(fields, r.Command)
	for i := 0; i < requestArgs; i++ {
		if i < len(r.Args) {
			fields = append(fields, r.Args[i])
		} else {
			fields = append(fields, "")
		}
	}
	for _, f := range fields {
		n, err := w.Write(append([]byte(f), 0))
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
