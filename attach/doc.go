/*
Package attach is a client for the HotSpot Dynamic Attach protocol. It lets a caller send one diagnostic command (threaddump, dumpheap, load, jcmd, ...) to a running JVM and stream the response back, with no instrumentation of the target beyond what HotSpot already ships.

The rendezvous is filesystem-based: an attached-and-listening JVM owns a unix stream socket at /tmp/.java_pid<pid>. If the socket does not exist yet, the client forces the JVM to create it by dropping an empty .attach_pid<pid> marker file (preferably in the target's own working directory, falling back to /tmp) and sending SIGQUIT. HotSpot's SIGQUIT handler notices the marker and starts the attach listener. There is no acknowledgment, so the client polls for the socket at a fixed interval with a bounded number of attempts, then removes the marker whether or not the socket appeared.

The wire protocol is fixed-arity and NUL-delimited. The client writes the version byte '1' followed by NUL, then exactly four NUL-terminated fields: the command name and three arguments, with unsupplied arguments sent as empty strings. The JVM's parser reads NUL-terminated strings, not framed messages, so this shape must not be "improved" with length prefixes. The response is an unstructured byte stream terminated only by the JVM closing the connection; there is no completion marker, so a truncated response is indistinguishable from a complete one.

Each Attacher invocation is one session: locate the socket, activate the listener if needed, connect, write the request, relay the response, close.
*/
package attach
