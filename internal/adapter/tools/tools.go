// Package tools exposes the verification services as model-callable tools.
// Each tool owns its JSON schema and translates the loosely typed arguments
// the model produces into a call on the underlying verifier.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ZGSQ-QIANG/scholarship/internal/domain"
	"github.com/ZGSQ-QIANG/scholarship/internal/usecase/verify"
)

// PaperService checks a paper against a bibliographic registry.
type PaperService interface {
	VerifyPaper(ctx context.Context, title string, authors []string, doi string) (*domain.VerifierOutcome, error)
}

// CredentialService checks an enrollment verification code against the
// student-record site.
type CredentialService interface {
	VerifyCredential(ctx context.Context, vcode, name string) (*domain.VerifierOutcome, error)
}

// PatentService checks a patent application against the patent office's
// public search.
type PatentService interface {
	VerifyPatent(ctx context.Context, applyCode, name, title string) (*domain.VerifierOutcome, error)
}

// Default assembles the standard tool set.
func Default(papers PaperService, credentials CredentialService, patents PatentService) []verify.Tool {
	return []verify.Tool{
		NewPaperTool(papers),
		NewCertificateTool(credentials),
		NewPatentTool(patents),
	}
}

// PaperTool verifies academic papers.
type PaperTool struct {
	service PaperService
}

func NewPaperTool(service PaperService) *PaperTool {
	return &PaperTool{service: service}
}

func (t *PaperTool) Name() string { return "paper_verify" }

func (t *PaperTool) Description() string {
	return "验证学术论文的真实性及归属。用于核实论文是否已发表，以及用户是否为作者之一。"
}

func (t *PaperTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"title": {
				"type": "string",
				"description": "论文的全标题（中文或英文）。"
			},
			"doi": {
				"type": "string",
				"description": "论文的DOI号 (Digital Object Identifier)，通常以 '10.' 开头，例如 '10.1038/nature12345'。这是最关键的验证字段。"
			},
			"authors": {
				"type": "array",
				"items": {"type": "string"},
				"description": "模型识别出的所有作者姓名列表。"
			},
			"publication_date": {
				"type": "string",
				"description": "发表年份或日期，用于辅助验证。"
			}
		},
		"required": ["title", "authors"]
	}`)
}

func (t *PaperTool) Verify(ctx context.Context, args map[string]any) (*domain.VerifierOutcome, error) {
	title, err := requiredString(args, "title")
	if err != nil {
		return nil, err
	}
	authors, err := requiredStringList(args, "authors")
	if err != nil {
		return nil, err
	}
	doi := optionalString(args, "doi")
	return t.service.VerifyPaper(ctx, title, authors, doi)
}

// CertificateTool verifies enrollment verification codes.
type CertificateTool struct {
	service CredentialService
}

func NewCertificateTool(service CredentialService) *CertificateTool {
	return &CertificateTool{service: service}
}

func (t *CertificateTool) Name() string { return "certificate_verify" }

func (t *CertificateTool) Description() string {
	return "验证学信网学籍在线验证码的有效性。用于核实学籍证明是否真实，以及证明上的姓名是否与申请人一致。"
}

func (t *CertificateTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"vcode": {
				"type": "string",
				"description": "学籍在线验证码，格式如 ACY3RBVSBQQDN6Z1。"
			},
			"name": {
				"type": "string",
				"description": "证明上的学生姓名，用于与官方页面核对。"
			}
		},
		"required": ["vcode"]
	}`)
}

func (t *CertificateTool) Verify(ctx context.Context, args map[string]any) (*domain.VerifierOutcome, error) {
	vcode, err := requiredString(args, "vcode")
	if err != nil {
		return nil, err
	}
	name := optionalString(args, "name")
	return t.service.VerifyCredential(ctx, vcode, name)
}

// PatentTool verifies patent certificates.
type PatentTool struct {
	service PatentService
}

func NewPatentTool(service PatentService) *PatentTool {
	return &PatentTool{service: service}
}

func (t *PatentTool) Name() string { return "patent_verify" }

func (t *PatentTool) Description() string {
	return "验证专利证书的真实性。通过申请号在专利公布公告网站查询，核对专利标题与发明人。"
}

func (t *PatentTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"apply_code": {
				"type": "string",
				"description": "专利申请号，例如 202310123456.7。"
			},
			"name": {
				"type": "string",
				"description": "证书上的发明人姓名。"
			},
			"title": {
				"type": "string",
				"description": "专利名称。"
			}
		},
		"required": ["apply_code", "name", "title"]
	}`)
}

func (t *PatentTool) Verify(ctx context.Context, args map[string]any) (*domain.VerifierOutcome, error) {
	applyCode, err := requiredString(args, "apply_code")
	if err != nil {
		return nil, err
	}
	name, err := requiredString(args, "name")
	if err != nil {
		return nil, err
	}
	title, err := requiredString(args, "title")
	if err != nil {
		return nil, err
	}
	return t.service.VerifyPatent(ctx, applyCode, name, title)
}

// requiredString extracts a non-empty string argument. Extra arguments the
// model invents are ignored; missing required ones fail the call.
func requiredString(args map[string]any, key string) (string, error) {
	value := optionalString(args, key)
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("缺少必需参数: %s", key)
	}
	return value, nil
}

func optionalString(args map[string]any, key string) string {
	raw, ok := args[key]
	if !ok {
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		return ""
	}
	return s
}

// requiredStringList extracts a string array argument, tolerating the mixed
// []any decoding that generic JSON produces.
func requiredStringList(args map[string]any, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("缺少必需参数: %s", key)
	}

	var values []string
	switch list := raw.(type) {
	case []string:
		values = list
	case []any:
		for _, item := range list {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				values = append(values, s)
			}
		}
	case string:
		// some models send a single author as a bare string
		if strings.TrimSpace(list) != "" {
			values = []string{list}
		}
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("缺少必需参数: %s", key)
	}
	return values, nil
}

var (
	_ verify.Tool = (*PaperTool)(nil)
	_ verify.Tool = (*CertificateTool)(nil)
	_ verify.Tool = (*PatentTool)(nil)
)
