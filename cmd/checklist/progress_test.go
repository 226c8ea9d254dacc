package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cexll/checklist-gate/internal/gate"
)

const description = `## Setup
- [x] install
- [ ] configure

## Tests
- [x] unit
- [x] integration
- [x] e2e
`

const page = `<html><body>
<h2>Setup</h2>
<ul class="contains-task-list">
<li class="task-list-item"><input type="checkbox" class="task-list-item-checkbox" checked> install</li>
<li class="task-list-item"><input type="checkbox" class="task-list-item-checkbox"> configure</li>
</ul>
<button id="merge-main" class="btn merge-box-button">Merge pull request</button>
<div class="select-menu-item">Squash and merge</div>
</body></html>`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestProgress_Text(t *testing.T) {
	out, err := execute(t, "", "progress", writeFile(t, "PR.md", description))
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	for _, want := range []string{"PR Progress", "80% complete", "4/5 total", "Setup", "1/2  50%", "Tests", "3/3  100%", "(80% done)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestProgress_Stdin(t *testing.T) {
	out, err := execute(t, "- [x] a\n", "progress", "-")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if !strings.Contains(out, "merge is open") {
		t.Errorf("output = %s", out)
	}
}

func TestProgress_JSON(t *testing.T) {
	out, err := execute(t, "", "progress", "--json", writeFile(t, "PR.md", description))
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	var report progressReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(report.Summary.Groups) != 2 || report.Decision.Action != gate.ActionDisable || report.Decision.Percentage != 80 {
		t.Errorf("report = %+v", report)
	}
}

func TestProgress_GateExit(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"incomplete", description, true},
		{"complete", "- [x] a\n- [x] b\n", false},
		{"no checklist", "nothing to do", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", "progress", "--gate", writeFile(t, "PR.md", tt.content))
			if got := errors.Is(err, ErrIncomplete); got != tt.wantErr {
				t.Fatalf("err = %v, want incomplete %v", err, tt.wantErr)
			}
		})
	}
}

func TestProgress_MergeSelector(t *testing.T) {
	out, err := execute(t, "", "progress", "--merge-selector", ".merge-box-button", writeFile(t, "pr.html", page))
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if !strings.Contains(out, "disable: merge-main, menu-0") {
		t.Errorf("output missing gated controls:\n%s", out)
	}
}

func TestProgress_MergeSelectorByID(t *testing.T) {
	out, err := execute(t, "", "progress", "--merge-selector", "button#merge-main[class~=btn]", "--menu-selector", "", writeFile(t, "pr.html", page))
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if !strings.Contains(out, "disable: merge-main\n") {
		t.Errorf("output missing gated control:\n%s", out)
	}
}

func TestProgress_MergeSelectorNoMatch(t *testing.T) {
	out, err := execute(t, "", "progress", "--format", "html", "--merge-selector", ".nope", writeFile(t, "pr.txt", page))
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if !strings.Contains(out, "No merge controls matched") {
		t.Errorf("output = %s", out)
	}
}

func TestProgress_Errors(t *testing.T) {
	if _, err := execute(t, "", "progress", filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := execute(t, "", "progress", "--format", "rst", writeFile(t, "PR.md", description)); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := execute(t, "", "progress"); err == nil {
		t.Error("expected error without FILE")
	}
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		format, path, want string
	}{
		{"auto", "PR.md", "markdown"},
		{"auto", "page.HTML", "html"},
		{"", "page.htm", "html"},
		{"md", "x.html", "markdown"},
		{"html", "x.md", "html"},
	}
	for _, tt := range tests {
		got, err := resolveFormat(tt.format, tt.path)
		if err != nil || got != tt.want {
			t.Errorf("resolveFormat(%q, %q) = %q, %v; want %q", tt.format, tt.path, got, err, tt.want)
		}
	}
}
