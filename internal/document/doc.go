package document

import (
	"bytes"
	"context"
	"log"
	"os/exec"
	"strings"
	"time"
)

// Runner lets us stub the external converter in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	if err != nil {
		log.Printf("[document] %s %s failed after %s: %v", name, strings.Join(args, " "), time.Since(start).Round(time.Millisecond), err)
	}
	return out.Bytes(), errb.Bytes(), err
}

// DOC converts legacy Word files by running an external text converter.
type DOC struct {
	Tool     string
	Runner   Runner
	LookPath func(file string) (string, error)
}

// NewDOC returns a DOC extractor for tool. A nil runner executes the tool
// as a subprocess.
func NewDOC(tool string, runner Runner) DOC {
	if tool == "" {
		tool = "antiword"
	}
	if runner == nil {
		runner = execRunner{}
	}
	return DOC{Tool: tool, Runner: runner, LookPath: exec.LookPath}
}

func (d DOC) Extract(ctx context.Context, path string) (ExtractedText, error) {
	lookPath := d.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	bin, err := lookPath(d.Tool)
	if err != nil {
		return ExtractedText{}, &MissingToolError{Tool: d.Tool}
	}

	stdout, stderr, err := d.Runner.Run(ctx, bin, path)
	if err != nil {
		return ExtractedText{}, &ConversionError{Tool: d.Tool, Stderr: string(stderr), Err: err}
	}
	return ExtractedText{Text: string(stdout), Provenance: ProvenanceDOC}, nil
}
