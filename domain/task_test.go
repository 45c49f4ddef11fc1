package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
)

func TestValidateTitleTrims(t *testing.T) {
	got, err := ValidateTitle("  Buy milk  ")
	if err != nil {
		t.Fatalf("validate title: %v", err)
	}
	if got != "Buy milk" {
		t.Fatalf("expected trimmed title, got %q", got)
	}
}

func TestValidateTitleRejectsEmpty(t *testing.T) {
	for _, title := range []string{"", "   ", "\t\n"} {
		_, err := ValidateTitle(title)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("title %q: expected ValidationError, got %v", title, err)
		}
		if verr.StatusCode() != 400 {
			t.Fatalf("expected status 400, got %d", verr.StatusCode())
		}
	}
}

func TestValidateTitleRejectsOverlong(t *testing.T) {
	_, err := ValidateTitle(strings.Repeat("a", MaxTitleLength+1))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	if _, err := ValidateTitle(strings.Repeat("a", MaxTitleLength)); err != nil {
		t.Fatalf("title of exactly %d chars should pass, got %v", MaxTitleLength, err)
	}
	// Trailing whitespace does not count against the limit.
	if _, err := ValidateTitle(strings.Repeat("a", MaxTitleLength) + "   "); err != nil {
		t.Fatalf("trimmed length should be measured, got %v", err)
	}
}

func TestTaskMarshalIncludesZeroFields(t *testing.T) {
	task := Task{ID: "1", Title: "Title", CreatedAt: 1700000000000}

	payload, err := sonic.Marshal(task)
	if err != nil {
		t.Fatalf("marshal task: %v", err)
	}

	for _, want := range []string{"\"done\":false", "\"description\":\"\""} {
		if !strings.Contains(string(payload), want) {
			t.Fatalf("expected %s in payload, got %s", want, payload)
		}
	}
}

func TestTaskPatchDecodeDistinguishesAbsentFields(t *testing.T) {
	var patch TaskPatch
	if err := sonic.Unmarshal([]byte(`{"done":true}`), &patch); err != nil {
		t.Fatalf("unmarshal patch: %v", err)
	}
	if patch.Done == nil || !*patch.Done {
		t.Fatalf("expected done=true, got %#v", patch.Done)
	}
	if patch.Title != nil || patch.Description != nil {
		t.Fatalf("absent fields must stay nil, got %#v", patch)
	}
	if patch.Empty() {
		t.Fatal("patch with done should not be empty")
	}
	if !(TaskPatch{}).Empty() {
		t.Fatal("zero patch should be empty")
	}
}
