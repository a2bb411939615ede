// Package compose reads, transforms and writes docker-compose files.
//
// The transformations used by `ahoy secure` and `ahoy unsecure` (adding the
// reverse proxy, assigning a virtual host, moving conflicting ports into a
// backup label and back) are pure functions over Document: they perform no
// I/O and never modify their input. Fields ahoy does not understand are
// carried through untouched.
package compose
