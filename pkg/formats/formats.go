// Package formats reads and writes the binary assets of the rig
// simulator: BHV behavior tables (bhv.go) and GRD ground tables (grd.go).
// Both are little endian with a four or two byte magic and a
// major.minor version; only the current major version is accepted.
package formats
