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

package tools

import (
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/rete/core"
)

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) input file
// for the given network.
func Mermaid(net *core.Network, w io.Writer) error {
	fmt.Fprintf(w, "graph TB\n")
	for _, n := range net.Nodes() {
		label := n.Kind()
		if s := n.Label(); s != "" {
			label += ": " + s
		}
		label = strings.Replace(label, `"`, "'", -1)
		switch n.Kind() {
		case "rule":
			fmt.Fprintf(w, "  %s[\"%s\"]\n", nodeName(n), label)
		default:
			fmt.Fprintf(w, "  %s(\"%s\")\n", nodeName(n), label)
		}
		if fill, have := fills[n.Kind()]; have {
			fmt.Fprintf(w, "  style %s fill:%s\n", nodeName(n), fill)
		}
	}
	for _, e := range net.Edges() {
		arrow := "-->"
		if e.Side != "" {
			arrow = "-- " + e.Side + " -->"
		}
		fmt.Fprintf(w, "  %s %s %s\n", nodeName(e.From), arrow, nodeName(e.To))
	}
	return nil
}
