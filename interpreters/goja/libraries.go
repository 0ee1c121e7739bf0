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

package goja

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// LibraryProvider is the type of Interpreter.LibraryProvider.
type LibraryProvider func(ctx context.Context, i *Interpreter, name string) (string, error)

// DefaultLibraryProvider resolves "file://" names relative to the
// current directory and fetches "http://" and "https://" names.
var DefaultLibraryProvider = MakeFileLibraryProvider(".")

// LibraryClient is the HTTP client used to fetch libraries.
//
// Its cookie jar uses the public suffix list, so a library server
// can't set cookies for a whole top-level domain.
var LibraryClient = newLibraryClient()

func newLibraryClient() *http.Client {
	jar, err := cookiejar.New(&cookiejar.Options{
		PublicSuffixList: publicsuffix.List,
	})
	if err != nil {
		// cookiejar.New never actually returns an error.
		panic(err)
	}
	return &http.Client{
		Jar: jar,
	}
}

// MakeFileLibraryProvider makes a LibraryProvider that supports
// (barely) names that are URLs with protocols of "file", "http", and
// "https".  File names are relative to the given directory and can't
// leave it.  There currently is no additional control when using
// HTTP/HTTPS.
func MakeFileLibraryProvider(dir string) LibraryProvider {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		parts := strings.SplitN(name, "://", 2)
		if 2 != len(parts) {
			return "", fmt.Errorf("bad link '%s'", name)
		}
		switch parts[0] {
		case "file":
			filename := filepath.Clean("/" + parts[1])
			bs, err := os.ReadFile(filepath.Join(dir, filename))
			if err != nil {
				return "", err
			}
			return string(bs), nil
		case "http", "https":
			return fetchLibrary(ctx, name)
		default:
			return "", fmt.Errorf("unknown protocol '%s'", parts[0])
		}
	}
}

func fetchLibrary(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return "", err
	}
	resp, err := LibraryClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("library fetch status %s %d",
			resp.Status, resp.StatusCode)
	}
	bs, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(bs), nil
}

// MakeMapLibraryProvider makes a LibraryProvider that looks up names
// in the given map.
func MakeMapLibraryProvider(srcs map[string]string) LibraryProvider {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		src, have := srcs[name]
		if !have {
			return "", fmt.Errorf("undefined library '%s'", name)
		}
		return src, nil
	}
}
