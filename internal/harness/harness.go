package harness

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/roach88/puresh/internal/compiler"
	"github.com/roach88/puresh/internal/source"
)

// Run transpiles the scenario's script and checks the result against its
// expectations. A returned error means the scenario could not be run at
// all; mismatches are reported in Result.Errors.
func Run(s *Scenario) (*Result, error) {
	cfg, err := s.config()
	if err != nil {
		return nil, err
	}

	res := NewResult()
	doc, err := source.Load(s.Script)
	if err != nil {
		if !source.IsDecodeError(err) {
			return nil, err
		}
		res.Outcome = OutcomeFailed
		res.Kind = KindDecode
		res.Detail = err.Error()
		checkExpect(s.Expect, res)
		runAssertions(s.Assertions, res)
		return res, nil
	}

	out, err := compiler.Transpile(doc.Script, cfg)
	if err != nil {
		res.Kind, res.Codes = compiler.Classify(err)
		res.Detail = err.Error()
		res.Outcome = OutcomeFailed
		if compiler.IsRejection(err) {
			res.Outcome = OutcomeRejected
		}
	} else {
		res.Outcome = OutcomeCompiled
		res.Script = out.Script
		res.Digest = out.Digest
		res.Warnings = out.Warnings
		if out.Fixes != nil && out.Fixes.Fixes != nil {
			res.Fixes = out.Fixes.Fixes
		}
	}
	checkExpect(s.Expect, res)

	if res.Outcome == OutcomeCompiled {
		if err := checkDeterminism(doc.Script, cfg, out); err != nil {
			res.AddError(err.Error())
		}
		if err := checkIdempotence(doc.Script, cfg.Purify); err != nil {
			res.AddError(err.Error())
		}
		if s.Golden != "" {
			checkGoldenFile(s.Golden, res)
		}
	}

	runAssertions(s.Assertions, res)

	slog.Debug("scenario run",
		"scenario", s.Name,
		"outcome", res.Outcome,
		"pass", res.Pass,
		"errors", len(res.Errors),
	)
	return res, nil
}

func checkExpect(want Expect, res *Result) {
	if res.Outcome != want.Outcome {
		msg := fmt.Sprintf("expected outcome %s, got %s", want.Outcome, res.Outcome)
		if res.Detail != "" {
			msg += ": " + res.Detail
		}
		res.AddError(msg)
		return
	}
	if want.Kind != "" && string(res.Kind) != want.Kind {
		res.AddError(fmt.Sprintf("expected error kind %s, got %s", want.Kind, res.Kind))
	}
	if len(want.Codes) > 0 && !slices.Equal(want.Codes, res.Codes) {
		res.AddError(fmt.Sprintf("expected codes %v, got %v", want.Codes, res.Codes))
	}
}

func runAssertions(assertions []Assertion, res *Result) {
	for i, a := range assertions {
		if err := checkAssertion(a, res); err != nil {
			res.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
}

// checkGoldenFile compares the script with the file at path byte for byte.
func checkGoldenFile(path string, res *Result) {
	want, err := os.ReadFile(path)
	if err != nil {
		res.AddError(fmt.Sprintf("golden: %v", err))
		return
	}
	if string(want) != res.Script {
		res.AddError(fmt.Sprintf("golden: script differs from %s\n%s", path, textDiff(string(want), res.Script)))
	}
}
