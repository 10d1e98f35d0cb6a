package fuzztests

import (
	"context"
	"errors"
	"testing"
	"time"

	"kappa/internal/concrete"
	"kappa/internal/driver"
	"kappa/internal/prelude"
	"kappa/internal/source"
	"kappa/internal/typecheck"
)

// checkTimeout bounds one check run. Hitting it points at a loop the
// step limit does not cover.
const checkTimeout = 5 * time.Second

func checkModule(t *testing.T, mod *concrete.Module) {
	t.Helper()
	session := driver.NewSession(typecheck.NewRegistry(prelude.New()), mod, driver.Options{
		Jobs:           2,
		MaxDiagnostics: 64,
		Timeout:        checkTimeout,
		Check:          typecheck.Options{MaxSteps: 100_000},
	})
	rep, err := session.Check(context.Background())
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("check of %s did not finish within %s", mod.Name, checkTimeout)
	}
	if err == nil && rep.Count(driver.StatusInterrupted) != 0 {
		t.Fatalf("interrupted definitions without an error: %v", rep.Statuses)
	}
	session.Diagnostics()
}

func FuzzDecodeJSON(f *testing.F) {
	addJSONSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		fs := source.NewFileSet()
		file := fs.Add("fuzz.json", int64(len(input)))
		mod, err := concrete.DecodeJSON(clip(input), file, "fuzz.json")
		if err != nil {
			if mod != nil {
				t.Fatalf("decoder returned a module with error %v", err)
			}
			return
		}
		checkModule(t, mod)
	})
}

func FuzzDecodeMsgpack(f *testing.F) {
	addMsgpackSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		fs := source.NewFileSet()
		file := fs.Add("fuzz.msgpack", int64(len(input)))
		mod, err := concrete.DecodeMsgpack(clip(input), file, "fuzz.msgpack")
		if err != nil {
			if mod != nil {
				t.Fatalf("decoder returned a module with error %v", err)
			}
			return
		}
		checkModule(t, mod)
	})
}
