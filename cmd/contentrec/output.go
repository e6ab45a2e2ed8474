package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/rushteam/contentrec/engine"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

const titleMaxLen = 48

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func printResultHuman(w io.Writer, r *engine.Result) {
	fmt.Fprintf(w, "%s (%d items, %s)\n", r.Strategy, len(r.Items), r.Elapsed)
	if r.Degraded() {
		fmt.Fprintf(w, "  degraded: %s\n", r.CauseString())
	}
	for i, it := range r.Items {
		title, typ := "", ""
		if it.Content != nil {
			title, typ = it.Content.Title, string(it.Content.Type)
		}
		fmt.Fprintf(w, "%3d. %-12s %.3f  %-8s %s\n", i+1, it.ContentID, it.Score, typ, truncate(title, titleMaxLen))
		if len(it.Reasons) > 0 {
			fmt.Fprintf(w, "     %s\n", strings.Join(it.Reasons, "; "))
		}
	}
}

func (a *app) printResult(w io.Writer, r *engine.Result) error {
	if a.human {
		printResultHuman(w, r)
		return nil
	}
	return writeJSON(w, r)
}
