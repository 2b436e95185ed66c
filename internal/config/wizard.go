package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard creates a wizard reading answers from in and prompting on out
func NewWizard(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run asks for the runtime location and queue settings, starting from base.
// Empty answers keep the current value.
func (w *Wizard) Run(base *Config) (*Config, error) {
	cfg := DefaultConfig()
	if base != nil {
		copied := *base
		cfg = &copied
	}
	validator := NewValidator()

	fmt.Fprintln(w.out, "=== Profiler Configuration ===")
	fmt.Fprintln(w.out)

	for {
		answer, err := w.ask("Runtime URL", cfg.Runtime.URL)
		if err != nil {
			return nil, err
		}
		if answer == "" {
			break
		}
		if err := validator.ValidateRuntimeURL(answer); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		cfg.Runtime.URL = answer
		break
	}

	for {
		answer, err := w.ask("Instance ID", cfg.Runtime.InstanceID)
		if err != nil {
			return nil, err
		}
		if answer == "" {
			break
		}
		if err := validator.ValidateInstanceID(answer); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		cfg.Runtime.InstanceID = answer
		break
	}

	token, err := w.ask("Runtime token (press Enter to skip)", "")
	if err != nil {
		return nil, err
	}
	if token != "" {
		cfg.Runtime.Token = token
	}

	for {
		answer, err := w.ask("Concurrent requests", strconv.Itoa(cfg.Queue.Concurrency))
		if err != nil {
			return nil, err
		}
		if answer == "" {
			break
		}
		n, err := strconv.Atoi(answer)
		if err == nil {
			err = validator.ValidateConcurrency(n)
		}
		if err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		cfg.Queue.Concurrency = n
		break
	}

	level, err := w.ask("Log level (debug/info/warn/error)", cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if level != "" {
		if err := validator.ValidateLogLevel(level); err != nil {
			fmt.Fprintf(w.out, "Warning: %v, keeping %s\n", err, cfg.Logging.Level)
		} else {
			cfg.Logging.Level = level
		}
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")

	return cfg, nil
}

func (w *Wizard) ask(prompt, current string) (string, error) {
	if current != "" {
		fmt.Fprintf(w.out, "%s [%s]: ", prompt, current)
	} else {
		fmt.Fprintf(w.out, "%s: ", prompt)
	}

	line, err := w.reader.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}
