// Package config handles lapse.yaml config file loading.
package config

import (
	"os"
	"regexp"
	"sort"
	"strings"
)

// envRef matches $$ or one ${NAME}, ${NAME:-fallback} or ${NAME:?hint}
// reference.
var envRef = regexp.MustCompile(`\$\$|\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// MissingEnvError lists variables referenced as ${NAME:?hint} that were
// unset or empty.
type MissingEnvError struct {
	Vars  []string
	Hints map[string]string
}

func (e *MissingEnvError) Error() string {
	parts := make([]string, len(e.Vars))
	for i, name := range e.Vars {
		parts[i] = name
		if hint := e.Hints[name]; hint != "" {
			parts[i] += " (" + hint + ")"
		}
	}
	return "required environment variables not set: " + strings.Join(parts, ", ")
}

// ExpandEnv substitutes environment references in a config document.
//
//	${NAME}           value of NAME, empty when unset
//	${NAME:-fallback} value of NAME, fallback when unset or empty
//	${NAME:?hint}     value of NAME, an error when unset or empty
//	$$                a literal $
//
// Every missing required variable is reported in one *MissingEnvError.
func ExpandEnv(input string) (string, error) {
	missing := map[string]string{}
	out := envRef.ReplaceAllStringFunc(input, func(ref string) string {
		if ref == "$$" {
			return "$"
		}
		m := envRef.FindStringSubmatch(ref)
		name, op, arg := m[1], m[2], m[3]
		if v := os.Getenv(name); v != "" {
			return v
		}
		switch op {
		case ":-":
			return arg
		case ":?":
			if missing[name] == "" {
				missing[name] = arg
			}
		}
		return ""
	})

	if len(missing) == 0 {
		return out, nil
	}
	vars := make([]string, 0, len(missing))
	for name := range missing {
		vars = append(vars, name)
	}
	sort.Strings(vars)
	return "", &MissingEnvError{Vars: vars, Hints: missing}
}
