package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/kingpin/v2"
)

// sequenceFlags take several space separated numbers. The value is the
// maximum number of tokens consumed; -1 means unbounded.
var sequenceFlags = map[string]int{
	"resize":             2,
	"recall_values":      -1,
	"select_resolutions": -1,
}

// flagShapes records how many value tokens each long flag takes: 0 for
// switches (and their --no- form), 1 for plain values.
func flagShapes(app *kingpin.Application) map[string]int {
	shapes := make(map[string]int)
	for _, flag := range app.Model().Flags {
		switch n, isSequence := sequenceFlags[flag.Name]; {
		case flag.IsBoolFlag():
			shapes[flag.Name] = 0
			shapes["no-"+flag.Name] = 0
		case isSequence:
			shapes[flag.Name] = n
		default:
			shapes[flag.Name] = 1
		}
	}
	return shapes
}

// normalizeArgs rewrites argument lists written for a nargs-style parser
// into a form kingpin parses literally:
//
//	--recall_values 1 5 10  ->  --recall_values=1,5,10
//	--freeze_te -1          ->  --freeze_te=-1
//	--resume @ckpt.pth      ->  --resume=@ckpt.pth
//
// When a flag is given more than once only its last occurrence is kept.
// A value-taking flag with no value is left alone for kingpin to report.
// Anything after "--" is left untouched.
func normalizeArgs(args []string, shapes map[string]int) ([]string, error) {
	out := make([]string, 0, len(args))
	dropped := make(map[int]bool)
	latest := make(map[string]int)

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			out = append(out, args[i:]...)
			break
		}
		if strings.HasPrefix(arg, "@") {
			// kingpin would read this as a file of arguments.
			return nil, &Error{Kind: ErrInvalidValue, Msg: fmt.Sprintf("unexpected argument %q", arg)}
		}

		name, ok := strings.CutPrefix(arg, "--")
		if !ok || name == "" {
			out = append(out, arg)
			continue
		}
		key, _, inline := strings.Cut(name, "=")
		limit, known := shapes[key]
		if !known {
			out = append(out, arg)
			continue
		}

		if !inline && limit != 0 {
			var values []string
			for i+1 < len(args) && (limit < 0 || len(values) < limit) && isValue(args[i+1]) {
				i++
				values = append(values, args[i])
			}
			if len(values) == 0 {
				out = append(out, arg)
				continue
			}
			arg = "--" + key + "=" + strings.Join(values, ",")
		}

		key = strings.TrimPrefix(key, "no-")
		if prev, seen := latest[key]; seen {
			dropped[prev] = true
		}
		latest[key] = len(out)
		out = append(out, arg)
	}

	if len(dropped) == 0 {
		return out, nil
	}
	kept := make([]string, 0, len(out)-len(dropped))
	for i, arg := range out {
		if !dropped[i] {
			kept = append(kept, arg)
		}
	}
	return kept, nil
}

// isValue reports whether token is an option value rather than another flag.
func isValue(token string) bool {
	return token == "-" || !strings.HasPrefix(token, "-") || isNegativeNumber(token)
}

func isNumber(token string) bool {
	_, err := strconv.ParseFloat(token, 64)
	return err == nil
}

func isNegativeNumber(token string) bool {
	return strings.HasPrefix(token, "-") && isNumber(token)
}
