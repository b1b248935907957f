package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/giygas/mfds-matcher/catalog"
	"github.com/giygas/mfds-matcher/matcher"
	"github.com/giygas/mfds-matcher/pipeline"
)

const testCatalog = "품목기준코드,제품명,제품영문명,주성분,신약구분,취소취하,허가일자,제형\n" +
	"200000100,애드빌정,Advil Tab,Ibuprofen,Y,,2010-01-01,정제\n" +
	"200000101,부루펜정,Brufen Tab,Ibuprofen,N,,2012-01-01,정제\n" +
	"200000102,이부정,Ibu Tab,Ibuprofen,N,,2014-01-01,정제\n"

const testSources = "순번,Product,site\n" +
	"1,Advil Tab,A\n" +
	"2,MYBRAND 200,B\n"

const testMappings = "Product_code_token,mapped_mfds_item_code\n" +
	"MYBRAND,200000102\n"

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func execute(args ...string) (stdout, stderr string, err error) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	catalogPath := writeFixture(t, dir, "mfds.csv", testCatalog)
	sourcePath := writeFixture(t, dir, "source.csv", testSources)
	mappingPath := writeFixture(t, dir, "mapping.csv", testMappings)
	optionsPath := writeFixture(t, dir, "options.yaml", "generic_count_basis: base_form\n")
	reviewPath := filepath.Join(dir, "review.json")

	stdout, stderr, err := execute("run", "-v",
		"--catalog", catalogPath,
		"--source", sourcePath,
		"--mapping", mappingPath,
		"--options", optionsPath,
		"--review-out", reviewPath,
		"--workers", "2",
	)
	if err != nil {
		t.Fatalf("Expected no error, got %v (stderr: %s)", err, stderr)
	}

	var res pipeline.Result
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("Failed to decode stdout: %v", err)
	}
	if len(res.Results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(res.Results))
	}
	if res.Results[0].Tier != matcher.TierExactEN || res.Results[0].ItemCode != "200000100" {
		t.Errorf("Expected exact_en on 200000100, got %s on %s", res.Results[0].Tier, res.Results[0].ItemCode)
	}
	if res.Results[0].GenericCount != 2 {
		t.Errorf("Expected 2 generics, got %d", res.Results[0].GenericCount)
	}
	if res.Results[1].Tier != matcher.TierMapItemCode || res.Results[1].ItemCode != "200000102" {
		t.Errorf("Expected map_item_code on 200000102, got %s on %s", res.Results[1].Tier, res.Results[1].ItemCode)
	}
	if res.Summary.UsedMapItemCode != 1 {
		t.Errorf("Expected 1 mapped row, got %d", res.Summary.UsedMapItemCode)
	}

	if !strings.Contains(stderr, "[100%]") {
		t.Errorf("Expected progress on stderr, got %s", stderr)
	}
	if !strings.Contains(stderr, "rows=2") {
		t.Errorf("Expected summary line on stderr, got %s", stderr)
	}

	review, err := os.ReadFile(reviewPath)
	if err != nil {
		t.Fatalf("Expected review file, got %v", err)
	}
	var reviewRows []json.RawMessage
	if err := json.Unmarshal(review, &reviewRows); err != nil {
		t.Errorf("Expected a JSON array in the review file, got %s", review)
	}
}

func TestRunCommandWritesOutFile(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "result.json")

	stdout, _, err := execute("run",
		"--catalog", writeFixture(t, dir, "mfds.csv", testCatalog),
		"--source", writeFixture(t, dir, "source.csv", testSources),
		"--out", outPath,
	)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if stdout != "" {
		t.Errorf("Expected nothing on stdout, got %s", stdout)
	}

	content, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("Expected result file, got %v", err)
	}
	var res pipeline.Result
	if err := json.Unmarshal(content, &res); err != nil {
		t.Fatalf("Failed to decode result file: %v", err)
	}
	if res.Results[1].Tier == matcher.TierMapItemCode || res.Summary.UsedMapItemCode != 0 {
		t.Errorf("Expected no mapped rows without a mapping file, got %s", res.Results[1].Tier)
	}
}

func TestRunCommandErrors(t *testing.T) {
	dir := t.TempDir()
	catalogPath := writeFixture(t, dir, "mfds.csv", testCatalog)
	sourcePath := writeFixture(t, dir, "source.csv", testSources)
	badCatalog := writeFixture(t, dir, "bad.csv", "a,b\n1,2\n")
	badOptions := writeFixture(t, dir, "bad.yaml", "cancel_filter: sometimes\n")
	t.Setenv("CATALOG_PATH", "")

	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{"missing source", []string{"run", "--catalog", catalogPath}, "source"},
		{"missing catalog", []string{"run", "--source", sourcePath}, "--catalog"},
		{"unreadable catalog", []string{"run", "--catalog", filepath.Join(dir, "none.csv"), "--source", sourcePath}, "failed to read"},
		{"catalog without columns", []string{"run", "--catalog", badCatalog, "--source", sourcePath}, "missing required columns"},
		{"invalid options", []string{"run", "--catalog", catalogPath, "--source", sourcePath, "--options", badOptions}, "CANCEL_FILTER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(tt.args...)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("Expected error containing %q, got %v", tt.contains, err)
			}
		})
	}
}

func TestDiagnoseCommand(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := execute("diagnose",
		"--catalog", writeFixture(t, dir, "mfds.csv", testCatalog),
		"--source", writeFixture(t, dir, "source.csv", testSources),
	)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var reports []catalog.Diagnostics
	if err := json.Unmarshal([]byte(stdout), &reports); err != nil {
		t.Fatalf("Failed to decode diagnostics: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("Expected 2 reports, got %d", len(reports))
	}
	if reports[0].ActiveRowCount == nil || *reports[0].ActiveRowCount != 3 {
		t.Errorf("Expected 3 active catalog rows, got %v", reports[0].ActiveRowCount)
	}
	if reports[1].RowCount != 2 || len(reports[1].Errors) != 0 {
		t.Errorf("Expected a clean 2-row source report, got %+v", reports[1])
	}
}

func TestDiagnoseCommandReportsProblems(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := execute("diagnose", "--catalog", writeFixture(t, dir, "bad.csv", "a,b\n1,2\n"))
	if !errors.Is(err, errDiagnostics) {
		t.Fatalf("Expected diagnostics error, got %v", err)
	}
	if !strings.Contains(stdout, "missingColumns") {
		t.Errorf("Expected the report on stdout, got %s", stdout)
	}

	if _, _, err := execute("diagnose"); err == nil {
		t.Error("Expected an error without any file")
	}
}
