package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	omronfins "github.com/TaishiUeda/OmronFinsEthernet"
)

type outputMode string

const (
	outputText outputMode = "text"
	outputJSON outputMode = "json"
)

type output struct {
	mode   outputMode
	quiet  bool
	stdout io.Writer
	stderr io.Writer
}

func newOutput(stdout, stderr io.Writer, mode string, quiet bool) (output, error) {
	switch outputMode(strings.ToLower(mode)) {
	case outputText:
		return output{mode: outputText, quiet: quiet, stdout: stdout, stderr: stderr}, nil
	case outputJSON:
		return output{mode: outputJSON, quiet: quiet, stdout: stdout, stderr: stderr}, nil
	default:
		return output{}, fmt.Errorf("unsupported format %q (use text or json)", mode)
	}
}

// result is what read and write print.
type result struct {
	Operation      string                   `json:"operation"`
	Area           string                   `json:"area"`
	Address        uint16                   `json:"address"`
	Bit            byte                     `json:"bit,omitempty"`
	Type           string                   `json:"type,omitempty"`
	Value          interface{}              `json:"value,omitempty"`
	CompletionCode omronfins.CompletionCode `json:"completion_code"`
	Description    string                   `json:"description,omitempty"`
	RTTMsec        int64                    `json:"rtt_ms"`
}

func newResult(op string, area omronfins.MemoryArea, address uint16, bit byte, code omronfins.CompletionCode, rtt time.Duration) result {
	r := result{
		Operation:      op,
		Area:           area.String(),
		Address:        address,
		Bit:            bit,
		CompletionCode: code,
		RTTMsec:        rtt.Milliseconds(),
	}
	if !code.OK() {
		r.Description = code.Description()
	}
	return r
}

func (o output) printResult(r result) error {
	if o.mode == outputJSON {
		return o.encode(o.stdout, r)
	}

	var b strings.Builder
	if !o.quiet {
		fmt.Fprintf(&b, "%s %s %d", r.Operation, r.Area, r.Address)
		if r.Bit != 0 {
			fmt.Fprintf(&b, ".%d", r.Bit)
		}
		b.WriteString(": ")
	}
	switch {
	case r.Value != nil:
		fmt.Fprintf(&b, "%v", r.Value)
	case r.CompletionCode.OK():
		b.WriteString("ok")
	}
	if !r.CompletionCode.OK() {
		if r.Value != nil {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "[%s]", r.CompletionCode)
	}
	if !o.quiet {
		fmt.Fprintf(&b, " (udp %dms)", r.RTTMsec)
	}
	_, err := fmt.Fprintln(o.stdout, b.String())
	return err
}

func (o output) print(label string, v interface{}) error {
	if o.quiet {
		label = ""
	}
	if o.mode == outputJSON {
		type wrapped struct {
			Label  string      `json:"label,omitempty"`
			Result interface{} `json:"result"`
		}
		return o.encode(o.stdout, wrapped{Label: label, Result: v})
	}
	if label != "" {
		_, err := fmt.Fprintf(o.stdout, "%s: %v\n", label, v)
		return err
	}
	_, err := fmt.Fprintf(o.stdout, "%v\n", v)
	return err
}

func (o output) printError(err error) {
	if err == nil {
		return
	}
	if o.mode == outputJSON {
		type errPayload struct {
			Error string `json:"error"`
		}
		_ = o.encode(o.stderr, errPayload{Error: err.Error()})
		return
	}
	fmt.Fprintln(o.stderr, err)
}

func (o output) encode(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// displayValue turns raw byte blobs into hex so both formats print them the same way.
func displayValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return hex.EncodeToString(b)
	}
	return v
}
