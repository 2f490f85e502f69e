package equation

import (
	"strings"

	"github.com/nao1215/studyhelper/internal/model"
)

// Split cuts a normalized equation at its single '=' sign.
//
// It fails with a missing_equals error when there is no '=' and with a
// malformed_equals error when there is more than one, or when either side
// is empty.
func Split(normalized string) (left, right string, err error) {
	switch n := strings.Count(normalized, "="); {
	case n == 0:
		return "", "", model.NewError(model.KindMissingEquals, "")
	case n > 1:
		return "", "", model.NewError(model.KindMalformedEquals, "more than one '=' sign")
	}

	left, right, _ = strings.Cut(normalized, "=")
	switch {
	case left == "":
		return "", "", model.NewError(model.KindMalformedEquals, "left side is empty")
	case right == "":
		return "", "", model.NewError(model.KindMalformedEquals, "right side is empty")
	}
	return left, right, nil
}
