package rules

// DefaultDictionary is the built-in long-form -> short-form table. Short
// forms that are ordinary English words (e.g. "valid" for "validation")
// are left out so that decompression does not rewrite normal prose.
var DefaultDictionary = map[string]string{
	"application":     "app",
	"architecture":    "arch",
	"argument":        "arg",
	"attribute":       "attr",
	"authentication":  "auth",
	"background":      "bg",
	"certificate":     "cert",
	"command":         "cmd",
	"communication":   "comm",
	"configuration":   "config",
	"connection":      "conn",
	"constant":        "const",
	"database":        "db",
	"definition":      "def",
	"dependency":      "dep",
	"description":     "desc",
	"development":     "dev",
	"directory":       "dir",
	"distribution":    "dist",
	"document":        "doc",
	"documentation":   "docs",
	"environment":     "env",
	"execution":       "exec",
	"extension":       "ext",
	"frequency":       "freq",
	"function":        "fn",
	"generator":       "gen",
	"identifier":      "id",
	"implementation":  "impl",
	"information":     "info",
	"initialize":      "init",
	"instance":        "inst",
	"instruction":     "instr",
	"integration":     "integ",
	"interface":       "iface",
	"library":         "lib",
	"message":         "msg",
	"modification":    "mod",
	"notification":    "notif",
	"operation":       "op",
	"optimization":    "opt",
	"organization":    "org",
	"package":         "pkg",
	"parameter":       "param",
	"permission":      "perm",
	"process":         "proc",
	"production":      "prod",
	"property":        "prop",
	"reference":       "ref",
	"registration":    "reg",
	"repository":      "repo",
	"request":         "req",
	"resource":        "res",
	"response":        "resp",
	"session":         "sess",
	"specification":   "spec",
	"statistic":       "stat",
	"structure":       "struct",
	"synchronization": "sync",
	"system":          "sys",
	"temporary":       "temp",
	"transaction":     "tx",
	"utility":         "util",
	"variable":        "var",
	"version":         "ver",
}

// DefaultSymbols maps connector words and phrases to a single symbol.
// Symbols that collide with markdown syntax (|, >, <, =) are not used.
var DefaultSymbols = map[string]string{
	"and":           "&",
	"approximately": "≈",
	"because":       "∵",
	"element of":    "∈",
	"for all":       "∀",
	"important":     "❗",
	"infinity":      "∞",
	"leads to":      "⇒",
	"not equal to":  "≠",
	"optional":      "○",
	"required":      "◉",
	"returns":       "→",
	"square root":   "√",
	"subset of":     "⊂",
	"there exists":  "∃",
	"therefore":     "∴",
	"warning":       "⚠",
}

// DefaultArticles are removed by article elision.
var DefaultArticles = []string{"a", "an", "the"}

// DefaultNeverReduce lists words vowel reduction must not touch.
var DefaultNeverReduce = []string{
	"python", "javascript", "typescript", "react", "node", "docker",
	"kubernetes", "github", "golang", "postgres", "windows", "linux",
}

// DefaultOptions returns fresh copies of the built-in tables.
func DefaultOptions() Options {
	opts := Options{
		Dictionary:  make(map[string]string, len(DefaultDictionary)),
		Symbols:     make(map[string]string, len(DefaultSymbols)),
		Articles:    append([]string(nil), DefaultArticles...),
		NeverReduce: append([]string(nil), DefaultNeverReduce...),
	}
	for k, v := range DefaultDictionary {
		opts.Dictionary[k] = v
	}
	for k, v := range DefaultSymbols {
		opts.Symbols[k] = v
	}
	return opts
}
