// Package irfmt stores optimized programs in a compact binary file so they
// can be run again without parsing and optimizing.
//
// Layout:
//
//	MAGIC(4) | VERSION(2) | FLAGS(2) | HEADER_LEN(4) | BODY_LEN(8) | HEADER | BODY
//
// Integers in the preamble are little-endian. The header carries the
// compiler version and a source label; the body is the node tree in
// preorder, one record per node:
//
//	KIND(1) | START(uvarint) | END(uvarint) | operands... | [CHILD_COUNT(uvarint)]
//
// The file digest is the BLAKE2b-256 hash of the body alone, so relabelling
// or rebuilding with a newer compiler does not change it.
package irfmt

import (
	"bytes"

	"golang.org/x/mod/semver"

	"github.com/opal-lang/bfi/core/ast"
)

const (
	// Magic is the file magic number "BFIR" (4 bytes)
	Magic = "BFIR"

	// Version is the format version. Readers reject any other value.
	Version uint16 = 0x0001

	// CompilerVersion is written into every header. Files from a compiler
	// with a different major version (minor, while still at v0) are
	// rejected.
	CompilerVersion = "v0.3.0"
)

// Flags is a bitmask describing the body.
type Flags uint16

const (
	// FlagClassified marks a tree containing classified loop nodes.
	FlagClassified Flags = 1 << 0

	knownFlags = FlagClassified
)

// Limits enforced by Read.
const (
	maxHeaderLen = 64 * 1024
	maxBodyLen   = 32 * 1024 * 1024
	// MaxDepth bounds loop nesting in a file.
	MaxDepth = 1024
)

const preambleLen = 20

// File is the decoded content of an IR file.
type File struct {
	Compiler string // semver of the writing compiler
	Label    string // source name, informational
	Flags    Flags
	Program  *ast.Program
}

// IsIRFile reports whether data starts with the IR magic number.
func IsIRFile(data []byte) bool {
	return bytes.HasPrefix(data, []byte(Magic))
}

// compatible reports whether a file written by compiler can be read by this
// build.
func compatible(compiler string) bool {
	if !semver.IsValid(compiler) {
		return false
	}
	if semver.Major(CompilerVersion) == "v0" {
		return semver.MajorMinor(compiler) == semver.MajorMinor(CompilerVersion)
	}
	return semver.Major(compiler) == semver.Major(CompilerVersion)
}

func classified(program *ast.Program) bool {
	found := false
	ast.Walk(program.Body, func(n *ast.Node, _ int) bool {
		switch n.Kind {
		case ast.KindAdd, ast.KindSub, ast.KindILoop, ast.KindCLoop, ast.KindTNz, ast.KindSearchZero:
			found = true
		}
		return !found
	})
	return found
}
