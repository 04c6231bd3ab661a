// Command staticlint runs the analyzers the storybooks code base is checked
// with: a set of go vet passes, ineffassign, nilerr, the nosecretliteral
// check and the staticcheck analyzers.
//
// By default every SA analyzer of staticcheck is enabled. A config.json next
// to the binary narrows the list:
//
//	{"Staticcheck": ["SA1000", "SA4006"]}
package main

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/staticcheck"

	"github.com/patric-chuzhbe/storybooks/cmd/staticlint/nosecretliteral"
)

// Config is the optional file listing the enabled staticcheck analyzers.
const Config = `config.json`

type ConfigData struct {
	Staticcheck []string
}

func loadConfig() (ConfigData, error) {
	var cfg ConfigData

	appfile, err := os.Executable()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(filepath.Join(filepath.Dir(appfile), Config))
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	err = json.Unmarshal(data, &cfg)

	return cfg, err
}

func staticcheckAnalyzers(enabled []string) []*analysis.Analyzer {
	checks := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		checks[name] = true
	}

	var result []*analysis.Analyzer
	for _, v := range staticcheck.Analyzers {
		name := v.Analyzer.Name
		if checks[name] || (len(checks) == 0 && strings.HasPrefix(name, "SA")) {
			result = append(result, v.Analyzer)
		}
	}

	return result
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	myChecks := []*analysis.Analyzer{
		copylock.Analyzer,
		httpresponse.Analyzer,
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		printf.Analyzer,
		structtag.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,

		ineffassign.Analyzer,
		nilerr.Analyzer,

		nosecretliteral.Analyzer,
	}
	myChecks = append(myChecks, staticcheckAnalyzers(cfg.Staticcheck)...)

	multichecker.Main(myChecks...)
}
