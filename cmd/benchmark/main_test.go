package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReadCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.csv")
	data := "id,text,is_fraud\n" +
		"1,\"Urgent wire transfer, keep it confidential\",1\n" +
		"2,Monthly invoice for consulting,0\n" +
		"3,,1\n" +
		"4,Label missing,maybe\n" +
		"5,Gift cards needed today,true\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	docs, err := readCorpus(path, 0)
	if err != nil {
		t.Fatalf("readCorpus: %v", err)
	}

	want := []Document{
		{Row: 2, Text: "Urgent wire transfer, keep it confidential", IsFraud: true},
		{Row: 3, Text: "Monthly invoice for consulting", IsFraud: false},
		{Row: 6, Text: "Gift cards needed today", IsFraud: true},
	}
	if diff := cmp.Diff(want, docs); diff != "" {
		t.Errorf("documents mismatch (-want +got):\n%s", diff)
	}

	limited, err := readCorpus(path, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("expected limit to apply, got %d documents", len(limited))
	}
}

func TestReadCorpusMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.csv")
	if err := os.WriteFile(path, []byte("body,label\nx,1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readCorpus(path, 0); err == nil {
		t.Error("expected error for missing columns")
	}
}

func TestScores(t *testing.T) {
	m := &Metrics{TruePositives: 8, FalsePositives: 2, FalseNegatives: 2, TrueNegatives: 88}
	precision, recall, f1, accuracy := scores(m)

	if precision != 0.8 || recall != 0.8 {
		t.Errorf("expected precision and recall 0.8, got %v / %v", precision, recall)
	}
	if d := f1 - 0.8; d > 1e-9 || d < -1e-9 {
		t.Errorf("expected f1 0.8, got %v", f1)
	}
	if accuracy != 0.96 {
		t.Errorf("expected accuracy 0.96, got %v", accuracy)
	}

	if p, r, f, a := scores(&Metrics{}); p != 0 || r != 0 || f != 0 || a != 0 {
		t.Errorf("expected zero scores for empty metrics, got %v %v %v %v", p, r, f, a)
	}
}
