package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestReadPassword_Piped(t *testing.T) {
	t.Parallel()

	var prompt bytes.Buffer
	got, err := readPassword(&prompt, strings.NewReader("s3cret pass\nignored\n"), "Password: ")
	if err != nil {
		t.Fatalf("readPassword: %v", err)
	}
	if got != "s3cret pass" {
		t.Errorf("password = %q", got)
	}
	if prompt.String() != "Password: " {
		t.Errorf("prompt = %q", prompt.String())
	}
}

func TestReadPassword_Empty(t *testing.T) {
	t.Parallel()

	if _, err := readPassword(&bytes.Buffer{}, strings.NewReader("\n"), "Password: "); err == nil {
		t.Error("expected error for empty password")
	}
}

func TestPrintResult(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := printResult(&buf, "json", map[string]any{"applied": []string{"000001_users"}}, nil); err != nil {
		t.Fatalf("printResult json: %v", err)
	}
	if !strings.Contains(buf.String(), `"000001_users"`) {
		t.Errorf("json output = %s", buf.String())
	}

	buf.Reset()
	if err := printResult(&buf, "plain", nil, func() string { return "schema is up to date" }); err != nil {
		t.Fatalf("printResult plain: %v", err)
	}
	if buf.String() != "schema is up to date\n" {
		t.Errorf("plain output = %q", buf.String())
	}
}

func TestRootCmd_RejectsUnknownFormat(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "xml", "migrate", "up"})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "--format") {
		t.Fatalf("err = %v, want format error", err)
	}
}

func TestRootCmd_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"migrate", "down", "--steps", "1"})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("err = %v, want missing database url", err)
	}
}

func TestMigrateDown_RejectsZeroSteps(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--database-url", "postgres://unused", "migrate", "down", "--steps", "0"})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "--steps") {
		t.Fatalf("err = %v, want steps error", err)
	}
}
