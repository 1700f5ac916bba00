package main

import (
	"errors"
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"strings"

	"github.com/pterm/pterm"

	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"

	"pasc/pkg/ast"
	"pasc/pkg/codegen"
	"pasc/pkg/lexer"
	"pasc/pkg/parser"
	"pasc/pkg/vm"
)

const usage = `USAGE: pasc <command> [-trace level] [-pretty] <input-file.pas>

Commands:
  compile    compile to a .vm instruction file next to the input
  visualize  parse and print the syntax tree
  run        compile and execute immediately
`

func main() {
	initDisplay()
	gtrace.SyntaxTracer = gologadapter.New()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	flags := flag.NewFlagSet("pasc", flag.ExitOnError)
	tlevel := flags.String("trace", "Error", "Trace level [Debug|Info|Error]")
	pretty := flags.Bool("pretty", false, "Render the syntax tree as a colored tree")
	flags.Parse(os.Args[2:])
	tracing.Select("pasc.lexer").SetTraceLevel(traceLevel(*tlevel))
	tracing.Select("pasc.parser").SetTraceLevel(traceLevel(*tlevel))
	tracing.Select("pasc.codegen").SetTraceLevel(traceLevel(*tlevel))
	tracing.Select("pasc.vm").SetTraceLevel(traceLevel(*tlevel))

	if flags.NArg() != 1 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	infile := flags.Arg(0)
	if path.Ext(infile) != ".pas" {
		pterm.Error.Println("Input file extension must be .pas")
		os.Exit(2)
	}

	source, err := ioutil.ReadFile(infile)
	if err != nil {
		pterm.Error.Printf("Cannot open input file: %v\n", err)
		os.Exit(1)
	}

	switch command {
	case "compile":
		program := mustCompile(string(source))
		outfile := strings.TrimSuffix(infile, ".pas") + ".vm"
		if err := ioutil.WriteFile(outfile, []byte(program.Text()), 0644); err != nil {
			pterm.Error.Printf("Cannot write output file: %v\n", err)
			os.Exit(1)
		}
		pterm.Info.Printf("Wrote %s (%d instructions)\n", outfile, len(program.Instructions))

	case "visualize":
		tree, err := parser.Parse(string(source))
		if err != nil {
			reportError(err)
			os.Exit(1)
		}
		if *pretty {
			renderTree(tree)
		} else {
			fmt.Print(ast.Dump(tree))
		}

	case "run":
		program := mustCompile(string(source))
		machine := vm.NewMachine(os.Stdin, os.Stdout)
		if err := machine.Run(program); err != nil {
			pterm.Error.Println(err.Error())
			os.Exit(1)
		}

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func mustCompile(source string) *codegen.Program {
	tree, err := parser.Parse(source)
	if err != nil {
		reportError(err)
		os.Exit(1)
	}
	program, err := codegen.Generate(tree)
	if err != nil {
		reportError(err)
		os.Exit(1)
	}
	return program
}

// reportError prints a compilation error with a prefix naming the
// stage that produced it.
func reportError(err error) {
	var lexical *lexer.Error
	var syntax *parser.SyntaxError
	var semantic *codegen.SemanticError
	switch {
	case errors.As(err, &lexical):
		pterm.Error.Printf("LexicalError: %s\n", lexical)
	case errors.As(err, &syntax):
		pterm.Error.Printf("SyntaxError: %s\n", syntax)
	case errors.As(err, &semantic):
		pterm.Error.Printf("SemanticError: %s\n", semantic)
	default:
		pterm.Error.Println(err.Error())
	}
}

// renderTree draws the syntax tree with box-drawing branches. The
// leveled list mirrors the indentation of ast.Dump.
func renderTree(tree *ast.Program) {
	var ll pterm.LeveledList
	for _, line := range strings.Split(strings.TrimRight(ast.Dump(tree), "\n"), "\n") {
		text := strings.TrimLeft(line, " ")
		level := (len(line) - len(text)) / 2
		ll = append(ll, pterm.LeveledListItem{Level: level, Text: text})
	}
	root := pterm.NewTreeFromLeveledList(ll)
	pterm.DefaultTree.WithRoot(root).Render()
}

func initDisplay() {
	pterm.Info.Prefix = pterm.Prefix{
		Text:  "  >>",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "  Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

func traceLevel(l string) tracing.TraceLevel {
	return tracing.TraceLevelFromString(l)
}
