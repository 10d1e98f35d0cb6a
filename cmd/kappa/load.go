package main

import (
	"errors"

	"kappa/internal/concrete"
	"kappa/internal/diag"
	"kappa/internal/source"
)

// loadModule reads a resolved module. Failures are returned as a
// diagnostic so every output format can report them.
func loadModule(fs *source.FileSet, path string) (*concrete.Module, *diag.Diagnostic) {
	mod, err := concrete.LoadFile(fs, path)
	if err == nil {
		return mod, nil
	}
	var de *concrete.DecodeError
	if errors.As(err, &de) {
		d := diag.NewError(diag.IODecodeError, de.Span, de.Msg)
		return nil, &d
	}
	d := diag.NewError(diag.IOLoadFileError, source.NoSpan, err.Error())
	return nil, &d
}
