// Command marv submits a prompt to the copy generation gateway and prints the
// generated copy as it streams in.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/apex/log"
	"github.com/atotto/clipboard"
	flag "github.com/spf13/pflag"

	"marv/internal/logging"
	"marv/internal/samples"
	"marv/internal/submitter"
	"marv/internal/types"
)

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// printer writes only the new suffix of each buffer update.
type printer struct {
	out     io.Writer
	printed int
}

func (p *printer) OnStateChange(state submitter.State) {
	log.Debugf("state: %s", state)
}

func (p *printer) OnOutput(output string) {
	if len(output) < p.printed {
		p.printed = 0
	}
	fmt.Fprint(p.out, output[p.printed:])
	p.printed = len(output)
}

func main() {
	var (
		baseURL     = flag.StringP("url", "u", envOr("MARV_URL", "http://localhost:8080"), "copy gateway base URL")
		prompt      = flag.StringP("prompt", "p", "", "prompt to send (reads stdin when empty)")
		sampleID    = flag.IntP("sample", "s", 0, "use the sample prompt with this id")
		listSamples = flag.BoolP("list-samples", "l", false, "list sample prompts and exit")
		copyOutput  = flag.BoolP("copy", "c", false, "copy the generated copy to the clipboard")
		logLevel    = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()
	logging.Setup("text", *logLevel)

	os.Exit(run(*baseURL, *prompt, *sampleID, *listSamples, *copyOutput))
}

func run(baseURL, prompt string, sampleID int, listSamples, copyOutput bool) int {
	catalogue, err := samples.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if listSamples {
		printSamples(os.Stdout, catalogue)
		return 0
	}

	out := &printer{out: os.Stdout}
	sub := submitter.New(baseURL,
		submitter.WithObserver(out),
		submitter.WithClipboard(systemClipboard{}),
	)

	switch {
	case sampleID != 0:
		sample, ok := samples.Find(catalogue, sampleID)
		if !ok {
			fmt.Fprintf(os.Stderr, "no sample prompt with id %d\n", sampleID)
			return 2
		}
		sub.UseSample(sample)
	case prompt != "":
		sub.SetPrompt(prompt)
	default:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		sub.SetPrompt(string(data))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = sub.Submit(ctx)
	if out.printed > 0 {
		fmt.Fprintln(os.Stdout)
	}
	if errors.Is(err, submitter.ErrEmptyPrompt) {
		fmt.Fprintln(os.Stderr, "Please enter a prompt.")
		return 2
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if copyOutput && sub.Copy() {
		fmt.Fprintln(os.Stderr, "Copied!")
	}
	return 0
}

func printSamples(w io.Writer, catalogue []types.SamplePrompt) {
	for _, s := range catalogue {
		fmt.Fprintf(w, "%d. [%s] %s\n   %s\n", s.ID, s.Category, s.Preview, s.Prompt)
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
