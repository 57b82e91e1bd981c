package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
)

const bashCompletion = `_chenlang_completions() {
  local cur=${COMP_WORDS[COMP_CWORD]}
  COMPREPLY=($(compgen -W "run tokenize parse compile completions" -- "$cur"))
}
complete -F _chenlang_completions chenlang
`

const zshCompletion = `#compdef chenlang
_arguments '1: :(run tokenize parse compile completions)' '*::arg:->args'
`

const fishCompletion = `complete -c chenlang -n "__fish_use_subcommand" -a "run tokenize parse compile completions"
`

// Completions prints a shell completion script for the shell named by the
// first argument (bash, zsh, or fish); there is no completion-generating
// library anywhere in the corpus, so this stays a handful of static,
// hand-written templates rather than reaching for one.
func (c *Cmd) Completions(ctx context.Context, stdio mainer.Stdio, args []string) error {
	shell := "bash"
	if len(args) > 0 {
		shell = args[0]
	}
	switch shell {
	case "bash":
		fmt.Fprint(stdio.Stdout, bashCompletion)
	case "zsh":
		fmt.Fprint(stdio.Stdout, zshCompletion)
	case "fish":
		fmt.Fprint(stdio.Stdout, fishCompletion)
	default:
		return printError(stdio, fmt.Errorf("completions: unsupported shell %q", shell))
	}
	return nil
}
