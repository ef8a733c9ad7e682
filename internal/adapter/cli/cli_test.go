package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/ZGSQ-QIANG/scholarship/internal/domain"
)

type appStub struct {
	servedCtx    context.Context
	verifyPaths  []string
	results      []domain.FileVerificationResult
	verifyErr    error
	serveInvoked bool
}

func (a *appStub) Serve(ctx context.Context) error {
	a.serveInvoked = true
	a.servedCtx = ctx
	return nil
}

func (a *appStub) VerifyPaths(_ context.Context, paths []string) ([]domain.FileVerificationResult, error) {
	a.verifyPaths = paths
	return a.results, a.verifyErr
}

func TestVersionFlagShortCircuits(t *testing.T) {
	stub := &appStub{}
	out := &bytes.Buffer{}
	root := NewRootCommand(Dependencies{
		App:     stub,
		Args:    Arguments{OutWriter: out, ErrWriter: io.Discard},
		Version: "v1.2.3",
	})

	root.SetArgs([]string{"--version"})
	err := root.Execute()
	if !errors.Is(err, ErrVersionRequested) {
		t.Fatalf("expected ErrVersionRequested, got %v", err)
	}
	if !strings.Contains(out.String(), "v1.2.3") {
		t.Fatalf("expected version in output, got %q", out.String())
	}
}

func TestServeCommandInvokesApp(t *testing.T) {
	stub := &appStub{}
	root := NewRootCommand(Dependencies{
		App:  stub,
		Args: Arguments{OutWriter: io.Discard, ErrWriter: io.Discard},
	})

	root.SetArgs([]string{"serve"})
	if err := root.Execute(); err != nil {
		t.Fatalf("command execution failed: %v", err)
	}
	if !stub.serveInvoked {
		t.Fatal("expected serve to be invoked")
	}
}

func TestVerifyCommandJSONOutput(t *testing.T) {
	stub := &appStub{
		results: []domain.FileVerificationResult{
			{FileID: "f1", Filename: "论文.pdf", Severity: domain.SeveritySuccess, Conclusion: "论文真实有效"},
		},
	}
	out := &bytes.Buffer{}
	root := NewRootCommand(Dependencies{
		App:  stub,
		Args: Arguments{OutWriter: out, ErrWriter: io.Discard},
	})

	root.SetArgs([]string{"verify", "论文.pdf", "--json"})
	if err := root.Execute(); err != nil {
		t.Fatalf("command execution failed: %v", err)
	}

	if len(stub.verifyPaths) != 1 || stub.verifyPaths[0] != "论文.pdf" {
		t.Fatalf("expected verify path [论文.pdf], got %v", stub.verifyPaths)
	}

	var decoded []domain.FileVerificationResult
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Conclusion != "论文真实有效" {
		t.Fatalf("unexpected decoded results: %+v", decoded)
	}
}

func TestVerifyCommandRequiresArgs(t *testing.T) {
	root := NewRootCommand(Dependencies{
		App:  &appStub{},
		Args: Arguments{OutWriter: io.Discard, ErrWriter: io.Discard},
	})

	root.SetArgs([]string{"verify"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error for missing file arguments")
	}
}

func TestVerifyCommandPropagatesError(t *testing.T) {
	stub := &appStub{verifyErr: errors.New("模型不可用")}
	root := NewRootCommand(Dependencies{
		App:  stub,
		Args: Arguments{OutWriter: io.Discard, ErrWriter: io.Discard},
	})

	root.SetArgs([]string{"verify", "a.pdf", "--json"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected verification error to propagate")
	}
}

func TestPrintResults(t *testing.T) {
	out := &bytes.Buffer{}
	printResults(out, []domain.FileVerificationResult{
		{
			Filename:   "专利证书.png",
			Severity:   domain.SeverityError,
			Conclusion: "证书可疑",
			Outcomes: []domain.VerifierOutcome{
				{Tool: "patent_verify", Status: domain.OutcomeFailed, Message: "专利信息不匹配: 专利标题不匹配。"},
			},
		},
	})

	text := out.String()
	for _, want := range []string{"✗ 专利证书.png", "结论: 证书可疑", "[patent_verify]", "专利标题不匹配"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, text)
		}
	}
}
