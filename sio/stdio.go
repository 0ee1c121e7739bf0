/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Stdio is a fairly simple Couplings that uses stdin for input and
// stdout for output.
//
// Each input line is a JSON message (see ParseOp).  Blank lines and
// lines starting with '#' are ignored, and "quit" ends the input.
type Stdio struct {
	// In is coupled to the Runner's input.
	In io.Reader

	// Out is coupled to the Runner's output.
	Out io.Writer

	// ShellExpand enables input to include inline shell commands
	// delimited by '<<' and '>>'.  Use at your own risk, of
	// course!
	ShellExpand bool

	// Timestamps prepends a timestamp to each output line.
	Timestamps bool

	// EchoInput writes input lines (prepended with "input") to
	// the output.
	EchoInput bool

	// Tags prefixes tags indicating type of output ("input",
	// "emit", "error", "result").
	Tags bool

	// PadTags adds some padding to tags.
	PadTags bool

	// PrintResults writes each entire Result.
	PrintResults bool

	// InputEOF will be closed on EOF from In.
	InputEOF chan bool

	// WG counts the input and output goroutines.
	WG sync.WaitGroup

	mu sync.Mutex
}

// NewStdio creates a new Stdio.
//
// In and Out are initialized with os.Stdin and os.Stdout
// respectively.
func NewStdio(shellExpand bool) *Stdio {
	return &Stdio{
		In:          os.Stdin,
		Out:         os.Stdout,
		ShellExpand: shellExpand,
		InputEOF:    make(chan bool),
	}
}

// Start does nothing.
func (s *Stdio) Start(ctx context.Context) error {
	return nil
}

// Stop waits until IO is complete or was terminated via its context.
func (s *Stdio) Stop(ctx context.Context) error {
	s.WG.Wait()
	return nil
}

func (s *Stdio) printf(tag, format string, args ...interface{}) {
	if s.PadTags {
		tag = fmt.Sprintf("% 10s", tag)
	}
	if s.Tags {
		format = tag + " " + format
	}
	if s.Timestamps {
		ts := fmt.Sprintf("%-31s", time.Now().UTC().Format(time.RFC3339Nano))
		format = ts + " " + format
	}
	s.mu.Lock()
	fmt.Fprintf(s.Out, format, args...)
	s.mu.Unlock()
}

// IO returns channels for reading from In and writing to Out.
func (s *Stdio) IO(ctx context.Context) (chan interface{}, chan *Result, chan bool, error) {
	var (
		in   = make(chan interface{})
		out  = make(chan *Result)
		done = make(chan bool)
	)

	s.WG.Add(1)
	go func() {
		defer s.WG.Done()
		defer close(done)
		if s.InputEOF != nil {
			defer close(s.InputEOF)
		}
		r := bufio.NewReader(s.In)
		for {
			line, err := r.ReadString('\n')
			if err != nil && err != io.EOF {
				log.Printf("stdin error %s", err)
				return
			}
			eof := err == io.EOF
			if strings.TrimSpace(line) == "quit" {
				return
			}
			if s.EchoInput && line != "" {
				s.printf("input", "%s\n", strings.TrimRight(line, "\n"))
			}
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "#") || trimmed == "" {
				if eof {
					return
				}
				continue
			}
			if s.ShellExpand {
				if line, err = ShellExpand(ctx, line); err != nil {
					log.Printf("stdin error %s", err)
					return
				}
			}

			var msg interface{}
			if err := json.Unmarshal([]byte(line), &msg); err != nil {
				s.printf("error", "bad input: %s\n", err)
			} else {
				select {
				case <-ctx.Done():
					return
				case in <- msg:
				}
			}
			if eof {
				return
			}
		}
	}()

	s.WG.Add(1)
	go func() {
		defer s.WG.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case r, ok := <-out:
				if !ok {
					return
				}
				for _, e := range r.Emitted {
					s.printf("emit", "%s %s\n", e.Rule, JS(e.Message))
				}
				if r.Error != "" {
					s.printf("error", "%s\n", r.Error)
				}
				if s.PrintResults {
					s.printf("result", "%s\n", JS(r))
				}
			}
		}
	}()

	return in, out, done, nil
}
