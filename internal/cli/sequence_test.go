package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opencode-ai/cutscene/internal/sequences"
)

func TestFilterSequences(t *testing.T) {
	items := []*sequences.Sequence{
		{Name: "a", Tags: []string{"demo", "dialogue"}},
		{Name: "b", Tags: []string{"credits"}},
		{Name: "c", Tags: []string{"Demo"}},
		{Name: "d", Tags: nil},
	}

	tests := []struct {
		name     string
		tags     []string
		expected int
	}{
		{"no filter", nil, 4},
		{"filter demo", []string{"demo"}, 2},
		{"filter credits", []string{"credits"}, 1},
		{"filter multiple", []string{"dialogue", "credits"}, 2},
		{"filter nonexistent", []string{"nonexistent"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := filterSequences(items, tt.tags)
			if len(result) != tt.expected {
				t.Errorf("filterSequences() = %d items, want %d", len(result), tt.expected)
			}
		})
	}
}

func TestFindSequenceByName(t *testing.T) {
	items := []*sequences.Sequence{
		{Name: "intro"},
		{Name: "credits"},
		{Name: "merchant-buy"},
	}

	tests := []struct {
		name    string
		search  string
		wantNil bool
	}{
		{"exact match", "intro", false},
		{"case insensitive", "CREDITS", false},
		{"surrounding space", " merchant-buy ", false},
		{"not found", "outro", true},
		{"partial match fails", "merchant", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := findSequenceByName(items, tt.search)
			if (result == nil) != tt.wantNil {
				t.Errorf("findSequenceByName(%q) nil = %v, want nil = %v", tt.search, result == nil, tt.wantNil)
			}
		})
	}
}

func TestParseVarAssignments(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
		wantErr bool
	}{
		{"single var", []string{"gold=3"}, 1, false},
		{"multiple vars", []string{"gold=3", "player=Ada"}, 2, false},
		{"comma separated", []string{"gold=3,player=Ada"}, 2, false},
		{"empty value", []string{"player="}, 1, false},
		{"missing equals", []string{"invalid"}, 0, true},
		{"empty key", []string{"=value"}, 0, true},
		{"empty input", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVarAssignments(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseVarAssignments() error = %v, wantErr = %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && len(result) != tt.wantLen {
				t.Errorf("parseVarAssignments() = %d vars, want %d", len(result), tt.wantLen)
			}
		})
	}
}

func TestParseVarAssignmentsTypesValues(t *testing.T) {
	vars, err := parseVarAssignments([]string{"gold=3,rate=1.5", "brave=true", "player=Ada"})
	if err != nil {
		t.Fatalf("parseVarAssignments: %v", err)
	}
	if vars["gold"] != 3 || vars["rate"] != 1.5 || vars["brave"] != true || vars["player"] != "Ada" {
		t.Fatalf("unexpected values: %#v", vars)
	}
}

func TestSequenceSourceLabel(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		userDir    string
		projectDir string
		want       string
	}{
		{"builtin", "builtin", "/home/user/.config/cutscene/sequences", "/project/.cutscene/sequences", "builtin"},
		{"user sequence", "/home/user/.config/cutscene/sequences/foo.yaml", "/home/user/.config/cutscene/sequences", "", "user"},
		{"project sequence", "/project/.cutscene/sequences/bar.yaml", "", "/project/.cutscene/sequences", "project"},
		{"other file", "/some/other/path.yaml", "/home/user/.config/cutscene/sequences", "/project/.cutscene/sequences", "file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sequenceSourceLabel(tt.source, tt.userDir, tt.projectDir)
			if result != tt.want {
				t.Errorf("sequenceSourceLabel() = %q, want %q", result, tt.want)
			}
		})
	}
}

func TestDescribeAction(t *testing.T) {
	seqs, err := sequences.LoadBuiltinSequences()
	if err != nil {
		t.Fatalf("LoadBuiltinSequences: %v", err)
	}
	seq := findSequenceByName(seqs, "merchant-buy")
	if seq == nil {
		t.Fatalf("merchant-buy not found")
	}

	check := describeAction(seq.Actions[0])
	if !strings.Contains(check, "gold") || !strings.Contains(check, ">=") {
		t.Fatalf("check_variable description missing details: %q", check)
	}
	outcomes := describeOutcomes(seq.Actions[0])
	if !strings.Contains(outcomes, "4") {
		t.Fatalf("expected skip target in outcomes, got %q", outcomes)
	}
	if got := describeOutcomes(seq.Actions[1]); got != "continue" {
		t.Fatalf("expected continue for a plain action, got %q", got)
	}
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(good, []byte("name: good\nactions: [{kind: say, text: hi}]\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(bad, []byte("name: bad\nactions: [{kind: teleport}, {kind: pause}]\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if res := validateFile(good); !res.Valid {
		t.Fatalf("expected good.yaml to validate: %+v", res)
	}
	res := validateFile(bad)
	if res.Valid {
		t.Fatalf("expected bad.yaml to fail")
	}
	if len(res.Problems) == 0 {
		t.Fatalf("expected problems to be reported")
	}
	if res := validateFile(filepath.Join(dir, "missing.yaml")); res.Valid {
		t.Fatalf("expected missing file to fail")
	}
}

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append(args, "--non-interactive", "--no-color"))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestListCommandShowsBuiltins(t *testing.T) {
	out, err := executeRoot(t, "list", "--log-level", "debug")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{"NAME", "intro", "blocking", "background", "builtin"} {
		if !strings.Contains(out, want) {
			t.Fatalf("list output missing %q:\n%s", want, out)
		}
	}
}

func TestValidateCommandReportsProblems(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("name: bad\nactions: [{kind: teleport}]\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := executeRoot(t, "validate", bad)
	if err == nil {
		t.Fatalf("expected validate to fail")
	}
	if !strings.Contains(out, "FAIL") || !strings.Contains(out, "teleport") {
		t.Fatalf("expected the unknown kind reported, got:\n%s", out)
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
