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
	"html"
	"io"

	"github.com/Comcast/rete/ruleset"

	md "github.com/russross/blackfriday/v2"
	"gopkg.in/yaml.v2"
)

// RenderRuleSetHTML writes an HTML table describing the rule set's
// rules.  Docs are Markdown.
func RenderRuleSetHTML(rs *ruleset.RuleSet, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	if rs.Doc != "" {
		f(`<div class="ruleSetDoc doc">%s</div>`, md.Run([]byte(rs.Doc)))
	}

	f(`<div class="rules"><table>`)
	for _, r := range rs.Rules {
		f(`<tr class="rule"><td><span id="%s" class="ruleName">%s</span></td><td>`,
			html.EscapeString(r.Name), html.EscapeString(r.Name))
		if r.Priority != 0 {
			f(`<div>priority: <span class="priority">%d</span></div>`, r.Priority)
		}
		if r.Doc != "" {
			f(`<div class="ruleDoc doc">%s</div>`, md.Run([]byte(r.Doc)))
		}
		f(`<table class="when">`)
		for i, e := range r.When {
			kind := "pattern"
			if e.Aggregate != "" {
				kind = "aggregate"
			}
			src, err := yaml.Marshal(e)
			if err != nil {
				return err
			}
			f(`<tr><td><div class="elementNum">%d</div></td><td>%s</td><td><code>%s</code></td>`,
				i, kind, html.EscapeString(e.Name()))
			f(`<td><div class="code"><pre>%s</pre></div></td></tr>`, html.EscapeString(string(src)))
		}
		f(`</table>`)
		if r.Then != nil {
			src, err := yaml.Marshal(r.Then)
			if err != nil {
				return err
			}
			f(`<div class="then code"><pre>%s</pre></div>`, html.EscapeString(string(src)))
		}
		f(`</td></tr>`)
	}
	f(`</table></div>`)

	return nil
}

// RenderRuleSetPage writes a complete HTML page for the rule set.
func RenderRuleSetPage(rs *ruleset.RuleSet, out io.Writer, cssFiles []string) error {
	if cssFiles == nil {
		cssFiles = []string{"/static/ruleset.css"}
	}

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, html.EscapeString(rs.Name))

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, html.EscapeString(rs.Name))

	if err := RenderRuleSetHTML(rs, out); err != nil {
		return err
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}

// ReadAndRenderRuleSetPage reads a rule set and renders it.
func ReadAndRenderRuleSetPage(filename string, cssFiles []string, out io.Writer) error {
	rs, err := ruleset.ReadFile(filename)
	if err != nil {
		return err
	}
	return RenderRuleSetPage(rs, out, cssFiles)
}
