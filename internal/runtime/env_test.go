// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestBuildEnv_Precedence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "base.env"), []byte("A=file1\nB=file1\n# comment\nexport C=\"quoted value\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "local.env"), []byte("B=file2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	env, err := BuildEnv(EnvSpec{
		Base:    []string{"A=base", "PATH=/bin", "Z=keep"},
		Files:   []string{"base.env", "local.env", "missing.env?"},
		BaseDir: dir,
		Vars:    map[string]string{"Z": "var"},
	})
	if err != nil {
		t.Fatalf("BuildEnv: %v", err)
	}

	want := []string{"A=file1", "B=file2", "C=quoted value", "PATH=/bin", "Z=var"}
	if !slices.Equal(env, want) {
		t.Errorf("env = %v, want %v", env, want)
	}
}

func TestBuildEnv_MissingRequiredFile(t *testing.T) {
	t.Parallel()

	_, err := BuildEnv(EnvSpec{Files: []string{"nope.env"}, BaseDir: t.TempDir()})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestEnvMapConversion(t *testing.T) {
	t.Parallel()

	m := EnvToMap([]string{"A=1", "B=x=y", "A=2", "=ignored", "EMPTY"})
	if m["A"] != "2" || m["B"] != "x=y" || m["EMPTY"] != "" {
		t.Errorf("EnvToMap = %v", m)
	}
	if _, ok := m[""]; ok {
		t.Error("empty key should be skipped")
	}
	if got := MapToEnv(map[string]string{"b": "2", "a": "1"}); !slices.Equal(got, []string{"a=1", "b=2"}) {
		t.Errorf("MapToEnv = %v", got)
	}
}

func TestSplitCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line    string
		env     []string
		want    []string
		wantErr bool
	}{
		{"./gradlew build", nil, []string{"./gradlew", "build"}, false},
		{`./gradlew -Pmsg="hello world" build`, nil, []string{"./gradlew", "-Pmsg=hello world", "build"}, false},
		{"$GRADLE shadowJar", []string{"GRADLE=/opt/gradle/bin/gradle"}, []string{"/opt/gradle/bin/gradle", "shadowJar"}, false},
		{"   ", nil, nil, true},
		{`./gradlew "unterminated`, nil, nil, true},
	}

	for _, tt := range tests {
		got, err := SplitCommand(tt.line, tt.env)
		if (err != nil) != tt.wantErr {
			t.Errorf("SplitCommand(%q) err = %v, wantErr %v", tt.line, err, tt.wantErr)
			continue
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("SplitCommand(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}
