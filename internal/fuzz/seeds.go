package fuzztests

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	maxSeedBytes = 64 << 10
	maxFuzzInput = 256 << 10
)

var moduleSeeds = []string{
	`{"schema":1,"name":"numbers","decls":[
 {"k":"func","name":"one","span":[0,10],"result":{"k":"global","name":"Nat","span":[1,4]},"body":{"k":"number","value":"1","span":[5,6]}},
 {"k":"func","name":"two","span":[11,20],"result":{"k":"global","name":"Nat","span":[12,15]},
  "body":{"k":"app","span":[16,20],"fun":{"k":"global","name":"suc","span":[16,19]},"args":[{"e":{"k":"global","name":"one","span":[19,20]}}]}}]}`,
	`{"schema":1,"name":"bool","decls":[
 {"k":"data","name":"B","span":[0,12],"cons":[{"name":"t","span":[4,5]},{"name":"f","span":[8,9]}]},
 {"k":"func","name":"yes","span":[13,20],"result":{"k":"global","name":"B","span":[14,15]},"body":{"k":"global","name":"t","span":[18,19]}}]}`,
	`{"schema":1,"name":"mismatch","decls":[
 {"k":"func","name":"bad","span":[0,9],"result":{"k":"global","name":"Nat","span":[1,4]},"body":{"k":"global","name":"Nat","span":[5,8]}}]}`,
	`{"schema":1,"name":"cycle","decls":[
 {"k":"func","name":"f","span":[0,4],"result":{"k":"global","name":"Nat","span":[1,2]},"body":{"k":"global","name":"g","span":[2,3]}},
 {"k":"func","name":"g","span":[5,9],"result":{"k":"global","name":"Nat","span":[6,7]},"body":{"k":"global","name":"f","span":[7,8]}}]}`,
	`{"schema":2,"name":"future","decls":[]}`,
	`{"schema":1,"name":"unknown","decls":[{"k":"axiom","name":"x","span":[0,1]}]}`,
	`{"schema":1,"name":"truncated","decls":[{"k":"func"`,
}

func addJSONSeeds(f *testing.F) {
	for _, s := range moduleSeeds {
		f.Add([]byte(s))
	}
	addTestdataSeeds(f, ".json")
}

// addMsgpackSeeds re-encodes the JSON seeds that parse as generic values.
func addMsgpackSeeds(f *testing.F) {
	for _, s := range moduleSeeds {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			continue
		}
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetSortMapKeys(true)
		if err := enc.Encode(integral(v)); err != nil {
			continue
		}
		f.Add(buf.Bytes())
	}
	addTestdataSeeds(f, ".msgpack")
}

// integral turns the whole float64 numbers of a decoded JSON value into
// int64, so spans and ids encode as msgpack integers.
func integral(v any) any {
	switch x := v.(type) {
	case float64:
		if x == float64(int64(x)) {
			return int64(x)
		}
		return x
	case []any:
		for i := range x {
			x[i] = integral(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = integral(x[k])
		}
		return x
	}
	return v
}

func addTestdataSeeds(f *testing.F, ext string) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || filepath.Ext(path) != ext {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil || len(src) > maxSeedBytes {
			return nil
		}
		f.Add(src)
		return nil
	})
}

func clip(input []byte) []byte {
	if len(input) > maxFuzzInput {
		input = input[:maxFuzzInput]
	}
	return append([]byte(nil), input...)
}
