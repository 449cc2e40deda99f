// Package comm provides the JSON line protocol spoken by test jigs.
package comm

// The jig is a microcontroller based fixture attached over a serial link.
// The host sends one JSON object terminated by CRLF and the jig replies
// with one JSON object. The reply carries no length or terminator that can
// be relied on, so frames are recovered structurally: the text between the
// first '{' and the last '}' in the receive buffer is a frame candidate, and
// it becomes a frame once it parses as JSON.
//
// Two complete objects sitting in the buffer at the same time are never
// split apart. The jig answers one object per request. Nested objects in a
// reply stay intact.
//
// A transaction opens the transport, writes the request, polls the
// transport at a fixed interval until a frame shows up or the timeout
// expires, and closes the transport again. Failures are reported through
// Result and never panic.
