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
	"context"
	"errors"
	"io"
	"testing"

	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fpingOutput = `10.0.0.1 : xmt/rcv/%loss = 3/3/0%, min/avg/max = 0.41/0.52/0.60
10.0.0.2 : xmt/rcv/%loss = 3/0/100%
10.0.0.3 : xmt/rcv/%loss = 3/2/33%, min/avg/max = 12.1/15.0/17.9
ICMP Host Unreachable from 10.0.0.254 for ICMP Echo sent to 10.0.0.2
`

func TestParseFpingSummary(t *testing.T) {
	samples, unparsed := ParseFpingSummary([]byte(fpingOutput))

	require.Len(t, samples, 3)
	require.Len(t, unparsed, 1)

	up := samples["10.0.0.1"]
	assert.InDelta(t, 0, up.LossPct, 0)
	require.NotNil(t, up.Avg)
	assert.InDelta(t, 0.52, *up.Avg, 0.0001)
	assert.InDelta(t, 0.41, *up.Min, 0.0001)
	assert.InDelta(t, 0.60, *up.Max, 0.0001)

	down := samples["10.0.0.2"]
	assert.InDelta(t, 100, down.LossPct, 0)
	assert.Nil(t, down.Avg)

	assert.InDelta(t, 33, samples["10.0.0.3"].LossPct, 0)
}

func TestFpingProberProbe(t *testing.T) {
	p := NewFpingProber(Config{Count: 5, Retries: 2}, logger.NewTestLogger())

	var gotArgs []string

	var gotStdin string

	p.run = func(_ context.Context, name string, args []string, stdin io.Reader) ([]byte, int, error) {
		assert.Equal(t, "fping", name)

		gotArgs = args
		b, _ := io.ReadAll(stdin)
		gotStdin = string(b)

		return []byte(fpingOutput), 1, nil
	}

	samples, err := p.Probe(context.Background(), []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"})
	require.NoError(t, err)
	assert.Len(t, samples, 3)
	assert.Equal(t, []string{"-q", "-c", "5", "-t", "500", "-p", "1000", "-r", "2"}, gotArgs)
	assert.Equal(t, "10.0.0.1\n10.0.0.2\n10.0.0.3\n", gotStdin)
}

func TestFpingProberFailures(t *testing.T) {
	tests := []struct {
		name string
		run  runFunc
	}{
		{
			name: "missing binary",
			run: func(context.Context, string, []string, io.Reader) ([]byte, int, error) {
				return nil, -1, errors.New(`exec: "fping": executable file not found in $PATH`)
			},
		},
		{
			name: "bad arguments",
			run: func(context.Context, string, []string, io.Reader) ([]byte, int, error) {
				return []byte("fping: invalid option -- 'z'"), 3, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewFpingProber(Config{}, logger.NewTestLogger())
			p.run = tt.run

			_, err := p.Probe(context.Background(), []string{"10.0.0.1"})
			assert.ErrorIs(t, err, ErrProbeExecution)
		})
	}
}

func TestFpingProberEmptyList(t *testing.T) {
	p := NewFpingProber(Config{}, logger.NewTestLogger())

	_, err := p.Probe(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyMonitorList)
}

func TestProbeSampleMapKeyedByAddress(t *testing.T) {
	samples, _ := ParseFpingSummary([]byte("core-sw1 : xmt/rcv/%loss = 3/3/0%, min/avg/max = 1/2/3\n"))
	assert.Equal(t, models.ProbeSample{
		Address: "core-sw1",
		LossPct: 0,
		Min:     models.Float64Ptr(1),
		Avg:     models.Float64Ptr(2),
		Max:     models.Float64Ptr(3),
	}, samples["core-sw1"])
}
