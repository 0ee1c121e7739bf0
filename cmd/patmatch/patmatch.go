/* Copyright 2018 Comcast Cable Communications Management, LLC
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

// Package main is a little command-line utility to invoke pattern
// matching, which is what rule set elements' "match" properties use.
//
//	patmatch -p '{"likes":"?liked"}' -m '{"likes":"tacos"}' -w '[{"?liked":"tacos"}]'
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"reflect"
	"runtime"
	"time"

	"github.com/Comcast/rete/match"
)

func main() {
	var (
		messageJS  = flag.String("m", "", "message in JSON")
		patternJS  = flag.String("p", "", "pattern in JSON")
		bindingsJS = flag.String("b", "{}", "bindings in JSON")
		wantJS     = flag.String("w", "", "wanted bindings in JSON")

		bench = flag.Int("bench", 0, "number of times to run (and report time)")

		verbose = flag.Bool("v", false, "verbosity")

		message  interface{}
		pattern  interface{}
		want     []match.Bindings
		wanted   bool
		bindings match.Bindings
	)

	flag.Parse()

	if *messageJS != "" {
		if err := json.Unmarshal([]byte(*messageJS), &message); err != nil {
			panic(err)
		}
	}

	if *patternJS != "" {
		p, err := match.ParsePattern(*patternJS)
		if err != nil {
			panic(err)
		}
		pattern = p
	}

	if *bindingsJS != "" {
		if err := json.Unmarshal([]byte(*bindingsJS), &bindings); err != nil {
			panic(err)
		}
	}

	if *wantJS != "" {
		if err := json.Unmarshal([]byte(*wantJS), &want); err != nil {
			panic(err)
		}
		wanted = true
	}

	if 0 < *bench {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)
		allocs := stats.TotalAlloc
		then := time.Now()
		for i := 0; i < *bench; i++ {
			if _, err := match.Match(pattern, message, bindings); err != nil {
				panic(err)
			}
		}
		elapsed := time.Since(then)
		meanNanos := elapsed.Nanoseconds() / int64(*bench)

		runtime.ReadMemStats(&stats)
		allocated := (stats.TotalAlloc - allocs) / uint64(*bench)

		log.Printf("%d iterations, %d mean ns/Match, %d mean bytes allocated per Match", *bench, meanNanos, allocated)
	}

	bss, err := match.Match(pattern, message, bindings)
	if err != nil {
		panic(err)
	}

	if wanted {
		fmt.Printf("%v\n", Same(want, bss, *verbose))
		return
	}

	if bss == nil {
		bss = []match.Bindings{}
	}
	bssJS, err := json.Marshal(&bss)
	if err != nil {
		panic(err)
	}

	fmt.Printf("%s\n", bssJS)
}

// Same checks that each wanted Bindings is in got and that got has no
// others.
func Same(want, got []match.Bindings, verbose bool) bool {
	if len(want) != len(got) {
		if verbose {
			fmt.Printf("wanted %d bindings, got %d\n", len(want), len(got))
		}
		return false
	}
WANTED:
	for _, w := range want {
		for _, g := range got {
			if Subset(w, g, verbose) && Subset(g, w, false) {
				continue WANTED
			}
		}
		return false
	}
	return true
}

// Subset checks that Bindings x is a subset of Bindings y.
//
// Uses reflect.DeepEqual on JSON-canonical values to do the hard
// work.
func Subset(x, y match.Bindings, verbose bool) bool {
	for p, bx := range x {
		by, have := y[p]
		if !have {
			return false
		}
		if !reflect.DeepEqual(canonical(bx), canonical(by)) {
			if verbose {
				fmt.Printf("disagreement at %s: %s != %s\n", p, js(bx), js(by))
			}
			return false
		}
	}
	return true
}

func canonical(x interface{}) interface{} {
	y, err := match.Canonical(x)
	if err != nil {
		return x
	}
	return y
}

func js(x interface{}) string {
	bs, err := json.Marshal(&x)
	if err != nil {
		return fmt.Sprintf("%#v", x)
	}
	return string(bs)
}
