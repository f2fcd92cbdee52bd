package cli

import (
	"fmt"
	"os"
	"strings"
)

// maxArgFileDepth bounds recursive @file expansion so a file including itself
// fails instead of looping.
const maxArgFileDepth = 8

// expandArgs replaces every @FILE token with the tokens read from FILE.
// Argument files hold one or more tokens per line; blank lines, lines
// starting with # and trailing # comments are ignored. Files may reference
// further @FILE tokens.
func expandArgs(args []string) ([]string, error) {
	return expandArgsDepth(args, 0)
}

func expandArgsDepth(args []string, depth int) ([]string, error) {
	if depth > maxArgFileDepth {
		return nil, usageError("argument files nested too deeply")
	}
	var out []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "@") {
			out = append(out, arg)
			continue
		}
		path := arg[1:]
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, usageError("cannot read argument file %s: %v", path, err)
		}
		var fileArgs []string
		for lineNo, line := range strings.Split(string(src), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			tokens, err := splitArgLine(line)
			if err != nil {
				return nil, usageError("argument file %s line %d: %v", path, lineNo+1, err)
			}
			fileArgs = append(fileArgs, tokens...)
		}
		expanded, err := expandArgsDepth(fileArgs, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

// splitArgLine splits one argument-file line into tokens. Single and double
// quotes group words, backslash escapes the next character, and an unquoted #
// starts a comment.
func splitArgLine(line string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inToken := false
	var quote rune

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else if r == '\\' && quote == '"' && i+1 < len(runes) {
				i++
				cur.WriteRune(runes[i])
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inToken = true
		case r == '\\':
			if i+1 < len(runes) {
				i++
				cur.WriteRune(runes[i])
				inToken = true
			}
		case r == '#':
			if inToken {
				tokens = append(tokens, cur.String())
			}
			return tokens, nil
		case r == ' ' || r == '\t':
			if inToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inToken {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}
