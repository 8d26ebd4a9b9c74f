package compiler

import (
	"errors"

	"github.com/roach88/puresh/internal/emit"
	"github.com/roach88/puresh/internal/purify"
	"github.com/roach88/puresh/internal/verify"
)

// ErrorKind names the pipeline stage that rejected a script.
type ErrorKind string

const (
	KindPurification ErrorKind = "purification"
	KindValidation   ErrorKind = "validation"
	KindBuild        ErrorKind = "build"
	KindOptimize     ErrorKind = "optimize"
	KindVerification ErrorKind = "verification"
	KindEmission     ErrorKind = "emission"
	KindOther        ErrorKind = "other"
)

// Classify reports which stage produced err and the stable codes it
// carries: E1xx for validation, V2xx for verification, none otherwise.
func Classify(err error) (ErrorKind, []string) {
	if err == nil {
		return "", nil
	}

	var (
		verrs ValidationErrors
		be    *BuildError
		oe    *OptimizeError
		ve    *verify.VerificationError
		pe    *purify.PurificationError
		ee    *emit.EmissionError
	)
	switch {
	case errors.As(err, &verrs):
		codes := make([]string, len(verrs))
		for i, e := range verrs {
			codes[i] = e.Code
		}
		return KindValidation, codes
	case errors.As(err, &ve):
		codes := make([]string, len(ve.Violations))
		for i, v := range ve.Violations {
			codes[i] = v.Code
		}
		return KindVerification, codes
	case errors.As(err, &pe):
		return KindPurification, nil
	case errors.As(err, &be):
		return KindBuild, nil
	case errors.As(err, &oe):
		return KindOptimize, nil
	case errors.As(err, &ee):
		return KindEmission, nil
	default:
		return KindOther, nil
	}
}

// IsRejection reports whether err is a finding about the script itself
// (validation or verification) rather than a failure to process it.
func IsRejection(err error) bool {
	kind, _ := Classify(err)
	return kind == KindValidation || kind == KindVerification
}
