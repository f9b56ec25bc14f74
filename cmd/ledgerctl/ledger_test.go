package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/app"
)

func TestPrintReports(t *testing.T) {
	snapshot := int64(70000)
	reports := []app.BalanceReport{
		{AccountID: uuid.New(), Version: 3, Balance: 70000, SnapshotBalance: &snapshot},
		{AccountID: uuid.New(), Version: 5, Balance: 70050, SnapshotBalance: &snapshot, Drift: 50},
		{AccountID: uuid.New(), Version: 1, Balance: 1000},
	}

	var out bytes.Buffer
	drifted := printReports(&out, reports)
	if drifted != 1 {
		t.Fatalf("expected 1 drifted account, got %d", drifted)
	}
	text := out.String()
	for _, want := range []string{"700.00", "700.50", "0.50", "DRIFT", "-"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected output to contain %q:\n%s", want, text)
		}
	}
}

func TestVerifyRequiresExactlyOneTarget(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"ledger", "verify"})
	cmd.SetOut(&bytes.Buffer{})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "exactly one of") {
		t.Fatalf("expected flag validation error, got %v", err)
	}
}
