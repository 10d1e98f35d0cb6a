package diagfmt

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"kappa/internal/diag"
	"kappa/internal/source"
)

// Msgpack writes the JSON output tree as msgpack, with the same keys.
func Msgpack(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	enc.SetOmitEmpty(true)
	return enc.Encode(BuildDiagnosticsOutput(bag, fs, opts))
}
