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

// Package tools has some utilities for looking at networks and rule
// sets.
package tools

// dot -Tpng g.dot > g.png

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/Comcast/rete/core"
)

var fills = map[string]string{
	"root":      "#dddddd",
	"alpha":     "#99ddc8",
	"join":      "#2d93ad",
	"aggregate": "#f9c784",
	"memory":    "#52aa5e",
	"adapter":   "#bcf2db",
	"rule":      "#f98b8b",
}

// nodeName is the dot identifier for a node.
func nodeName(n core.Node) string {
	return fmt.Sprintf("n%d", n.ID())
}

// nodeLabel is the HTML-ish label for a node.
func nodeLabel(n core.Node) string {
	label := n.Kind()
	if r, is := n.(*core.RuleNode); is && r.Priority != 0 {
		label += fmt.Sprintf(" (%d)", r.Priority)
	}
	if s := n.Label(); s != "" {
		label += "<BR/><FONT POINT-SIZE='8'>" + esc(s) + "</FONT>"
	}
	return label
}

func esc(s string) string {
	s = strings.Replace(s, "&", "&amp;", -1)
	s = strings.Replace(s, "<", "&lt;", -1)
	s = strings.Replace(s, ">", "&gt;", -1)
	return s
}

// Dot makes a Graphviz dot file for the given network.
//
// Nodes are colored by kind, and edges into binary nodes are labeled
// with their side.
func Dot(net *core.Network, w io.Writer) error {
	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=TB,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "10"]
`)

	for _, n := range net.Nodes() {
		shape := "record"
		style := "rounded,filled"
		switch n.Kind() {
		case "rule":
			shape = "note"
			style = "filled"
		case "root":
			style += ",bold"
		}
		fill, have := fills[n.Kind()]
		if !have {
			fill = "white"
		}
		fmt.Fprintf(w, "  %s [shape=\"%s\", style=\"%s\", fillcolor=\"%s\", label=<%s> ]\n",
			nodeName(n), shape, style, fill, nodeLabel(n))
	}

	for _, e := range net.Edges() {
		if e.Side == "" {
			fmt.Fprintf(w, "  %s -> %s\n", nodeName(e.From), nodeName(e.To))
			continue
		}
		fmt.Fprintf(w, "  %s -> %s [ label = \"%s\" ]\n", nodeName(e.From), nodeName(e.To), e.Side)
	}

	_, err := fmt.Fprintf(w, "}\n")
	return err
}

// PNG generates a PNG image based on output from Dot.
//
// This function with write two files: basename.dot and basename.png,
// where the basename is the given string.
func PNG(net *core.Network, basename string) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err = Dot(net, dotfile); err != nil {
		dotfile.Close()
		return pngname, err
	}
	if err = dotfile.Close(); err != nil {
		return pngname, err
	}
	if err = exec.Command("dot", "-Tpng", "-o", pngname, dotname).Run(); err != nil {
		return pngname, err
	}
	return pngname, nil
}
