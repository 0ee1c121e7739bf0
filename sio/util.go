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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"unicode/utf8"
)

// JS renders its argument as JSON or as '%#v'.
func JS(x interface{}) string {
	if x == nil {
		return "null"
	}
	js, err := json.Marshal(&x)
	if err != nil {
		return fmt.Sprintf("%#v", x)
	}
	return string(js)
}

// JShort renders its argument as JS() but only up to 70 bytes plus
// "...".  The cut doesn't split a UTF-8 sequence.
func JShort(x interface{}) string {
	js := JS(x)
	if len(js) <= 70 {
		return js
	}
	n := 70
	for 0 < n && !utf8.RuneStart(js[n]) {
		n--
	}
	return js[:n] + "..."
}

var shell = regexp.MustCompile(`<<(.*?)>>`)

// ShellExpand expands shell commands delimited by '<<' and '>>'.  Use
// at your own risk, of course!
//
// Commands are killed when the context is done.  A trailing newline
// in a command's output is removed.
func ShellExpand(ctx context.Context, msg string) (string, error) {
	literals := shell.Split(msg, -1)
	ss := shell.FindAllStringSubmatch(msg, -1)
	acc := literals[0]
	for i, s := range ss {
		sh := s[1]
		var out, stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, "bash", "-c", sh)
		cmd.Stdout = &out
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return "", fmt.Errorf("shell error %s on %s: %s", err, sh, bytes.TrimSpace(stderr.Bytes()))
		}
		acc += strings.TrimSuffix(out.String(), "\n")
		acc += literals[i+1]
	}
	return acc, nil
}
