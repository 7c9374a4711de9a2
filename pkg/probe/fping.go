/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package probe

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/models"
)

const (
	defaultFpingPath = "fping"
	defaultCount     = 3
	defaultTimeout   = 500 * time.Millisecond
	defaultPeriod    = time.Second

	// fping exits 1 when some targets were unreachable and 2 when some
	// names did not resolve. Neither invalidates the rest of the burst.
	maxTolerableExit = 2
)

// Config tunes the probe burst. Method selects fping (the default) or the
// built-in ICMP prober.
type Config struct {
	Method     string          `json:"method" yaml:"method"`
	Privileged bool            `json:"privileged" yaml:"privileged"`
	FpingPath  string          `json:"fping_path" yaml:"fping_path"`
	Count      int             `json:"count" yaml:"count"`
	Timeout    models.Duration `json:"timeout" yaml:"timeout"`
	Period     models.Duration `json:"period" yaml:"period"`
	Retries    int             `json:"retries" yaml:"retries"`
}

// runFunc executes name with args, feeding stdin, and returns the combined
// output plus the process exit code.
type runFunc func(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, int, error)

// FpingProber shells out to fping in quiet count mode.
type FpingProber struct {
	cfg    Config
	logger logger.Logger
	run    runFunc
}

var _ Prober = (*FpingProber)(nil)

// NewFpingProber applies defaults to cfg.
func NewFpingProber(cfg Config, log logger.Logger) *FpingProber {
	if cfg.FpingPath == "" {
		cfg.FpingPath = defaultFpingPath
	}

	if cfg.Count <= 0 {
		cfg.Count = defaultCount
	}

	return &FpingProber{cfg: cfg, logger: log, run: execRun}
}

// Args returns the fping arguments for one burst. Targets arrive on stdin.
func (p *FpingProber) Args() []string {
	args := []string{
		"-q",
		"-c", strconv.Itoa(p.cfg.Count),
		"-t", strconv.FormatInt(p.cfg.Timeout.Or(defaultTimeout).Milliseconds(), 10),
		"-p", strconv.FormatInt(p.cfg.Period.Or(defaultPeriod).Milliseconds(), 10),
	}

	if p.cfg.Retries > 0 {
		args = append(args, "-r", strconv.Itoa(p.cfg.Retries))
	}

	return args
}

// Probe runs one burst against addresses.
func (p *FpingProber) Probe(ctx context.Context, addresses []string) (map[string]models.ProbeSample, error) {
	if len(addresses) == 0 {
		return nil, ErrEmptyMonitorList
	}

	stdin := strings.NewReader(strings.Join(addresses, "\n") + "\n")

	out, code, err := p.run(ctx, p.cfg.FpingPath, p.Args(), stdin)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProbeExecution, err)
	}

	if code > maxTolerableExit {
		return nil, fmt.Errorf("%w: %s exited with status %d: %s",
			ErrProbeExecution, p.cfg.FpingPath, code, strings.TrimSpace(string(out)))
	}

	samples, unparsed := ParseFpingSummary(out)
	for _, line := range unparsed {
		p.logger.Debug().Str("line", line).Msg("Ignoring fping output line")
	}

	p.logger.Debug().
		Int("targets", len(addresses)).
		Int("reported", len(samples)).
		Int("exit_code", code).
		Msg("fping burst complete")

	return samples, nil
}

// summaryLine matches the per-target summary of `fping -q -c`, e.g.
//
//	10.0.0.1 : xmt/rcv/%loss = 3/3/0%, min/avg/max = 0.41/0.52/0.60
//	10.0.0.2 : xmt/rcv/%loss = 3/0/100%
var summaryLine = regexp.MustCompile(
	`^(\S+)\s+:\s+xmt/rcv/%loss = (\d+)/(\d+)/(\d+(?:\.\d+)?)%` +
		`(?:, min/avg/max = ([\d.]+)/([\d.]+)/([\d.]+))?`)

// ParseFpingSummary extracts samples from fping output. Lines that are not
// summaries are returned separately.
func ParseFpingSummary(out []byte) (map[string]models.ProbeSample, []string) {
	samples := make(map[string]models.ProbeSample)

	var unparsed []string

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		m := summaryLine.FindStringSubmatch(line)
		if m == nil {
			unparsed = append(unparsed, line)
			continue
		}

		loss, err := strconv.ParseFloat(m[4], 64)
		if err != nil {
			unparsed = append(unparsed, line)
			continue
		}

		sample := models.ProbeSample{Address: m[1], LossPct: loss}
		if m[5] != "" {
			sample.Min = parseMs(m[5])
			sample.Avg = parseMs(m[6])
			sample.Max = parseMs(m[7])
		}

		samples[sample.Address] = sample
	}

	return samples, unparsed
}

func parseMs(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}

	return &v
}

func execRun(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin

	var buf bytes.Buffer

	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return buf.Bytes(), exitErr.ExitCode(), nil
	}

	if err != nil {
		return nil, -1, err
	}

	return buf.Bytes(), 0, nil
}
