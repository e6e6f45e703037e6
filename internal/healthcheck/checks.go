package healthcheck

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Binary checks that a conversion utility can be found on PATH.
func Binary(name string) Checker {
	return CheckerFunc(func(context.Context) []CheckResult {
		path, err := exec.LookPath(name)
		if err != nil {
			return []CheckResult{{ID: "transcoder.binary", Status: StatusError, Summary: name + " not found", Detail: err.Error()}}
		}
		return []CheckResult{{ID: "transcoder.binary", Status: StatusOK, Summary: path}}
	})
}

// WritableDir checks that dir exists and accepts new files.
func WritableDir(id, dir string) Checker {
	return CheckerFunc(func(context.Context) []CheckResult {
		info, err := os.Stat(dir)
		if err != nil {
			return []CheckResult{{ID: id, Status: StatusError, Summary: "missing", Detail: err.Error()}}
		}
		if !info.IsDir() {
			return []CheckResult{{ID: id, Status: StatusError, Summary: "not a directory", Detail: dir}}
		}
		f, err := os.CreateTemp(dir, ".health-*")
		if err != nil {
			return []CheckResult{{ID: id, Status: StatusError, Summary: "not writable", Detail: err.Error()}}
		}
		name := f.Name()
		_ = f.Close()
		_ = os.Remove(name)
		return []CheckResult{{ID: id, Status: StatusOK, Summary: dir}}
	})
}

// Count reports a warning when n is zero, e.g. an empty template catalogue.
func Count(id string, n int) Checker {
	return CheckerFunc(func(context.Context) []CheckResult {
		if n == 0 {
			return []CheckResult{{ID: id, Status: StatusWarn, Summary: "empty"}}
		}
		return []CheckResult{{ID: id, Status: StatusOK, Summary: fmt.Sprintf("%d entries", n)}}
	})
}
