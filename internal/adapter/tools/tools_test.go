package tools_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZGSQ-QIANG/scholarship/internal/adapter/tools"
	"github.com/ZGSQ-QIANG/scholarship/internal/domain"
)

type fakePaperService struct {
	title   string
	authors []string
	doi     string
	result  *domain.VerifierOutcome
}

func (f *fakePaperService) VerifyPaper(_ context.Context, title string, authors []string, doi string) (*domain.VerifierOutcome, error) {
	f.title = title
	f.authors = authors
	f.doi = doi
	return f.result, nil
}

type fakeCredentialService struct {
	vcode  string
	name   string
	result *domain.VerifierOutcome
}

func (f *fakeCredentialService) VerifyCredential(_ context.Context, vcode, name string) (*domain.VerifierOutcome, error) {
	f.vcode = vcode
	f.name = name
	return f.result, nil
}

type fakePatentService struct {
	applyCode string
	name      string
	title     string
	result    *domain.VerifierOutcome
}

func (f *fakePatentService) VerifyPatent(_ context.Context, applyCode, name, title string) (*domain.VerifierOutcome, error) {
	f.applyCode = applyCode
	f.name = name
	f.title = title
	return f.result, nil
}

func TestPaperTool_ForwardsArguments(t *testing.T) {
	svc := &fakePaperService{result: &domain.VerifierOutcome{Status: domain.OutcomeSuccess, Message: "论文验证通过"}}
	tool := tools.NewPaperTool(svc)

	result, err := tool.Verify(context.Background(), map[string]any{
		"title":            "Graph Neural Networks",
		"authors":          []any{"J. Smith", "A. Doe"},
		"doi":              "10.1000/xyz",
		"publication_date": "2023", // extra optional field is accepted
		"confidence":       0.9,    // invented fields are ignored
	})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, result.Status)
	assert.Equal(t, "Graph Neural Networks", svc.title)
	assert.Equal(t, []string{"J. Smith", "A. Doe"}, svc.authors)
	assert.Equal(t, "10.1000/xyz", svc.doi)
}

func TestPaperTool_SingleAuthorAsString(t *testing.T) {
	svc := &fakePaperService{result: &domain.VerifierOutcome{Status: domain.OutcomeSuccess}}
	tool := tools.NewPaperTool(svc)

	_, err := tool.Verify(context.Background(), map[string]any{
		"title":   "某篇论文",
		"authors": "张三",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"张三"}, svc.authors)
}

func TestPaperTool_MissingRequiredArgument(t *testing.T) {
	tool := tools.NewPaperTool(&fakePaperService{})

	_, err := tool.Verify(context.Background(), map[string]any{"title": "无作者论文"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authors")
}

func TestCertificateTool_NameIsOptional(t *testing.T) {
	svc := &fakeCredentialService{result: &domain.VerifierOutcome{Status: domain.OutcomeSuccess}}
	tool := tools.NewCertificateTool(svc)

	_, err := tool.Verify(context.Background(), map[string]any{"vcode": "ACY3RBVSBQQDN6Z1"})
	require.NoError(t, err)
	assert.Equal(t, "ACY3RBVSBQQDN6Z1", svc.vcode)
	assert.Empty(t, svc.name)
}

func TestCertificateTool_MissingVcode(t *testing.T) {
	tool := tools.NewCertificateTool(&fakeCredentialService{})

	_, err := tool.Verify(context.Background(), map[string]any{"name": "李四"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vcode")
}

func TestPatentTool_RequiresAllFields(t *testing.T) {
	svc := &fakePatentService{result: &domain.VerifierOutcome{Status: domain.OutcomeSuccess}}
	tool := tools.NewPatentTool(svc)

	_, err := tool.Verify(context.Background(), map[string]any{
		"apply_code": "202310123456.7",
		"name":       "王五",
	})
	require.Error(t, err)

	_, err = tool.Verify(context.Background(), map[string]any{
		"apply_code": "202310123456.7",
		"name":       "王五",
		"title":      "一种数据处理方法",
	})
	require.NoError(t, err)
	assert.Equal(t, "202310123456.7", svc.applyCode)
	assert.Equal(t, "王五", svc.name)
	assert.Equal(t, "一种数据处理方法", svc.title)
}

func TestToolSchemasAreValidJSON(t *testing.T) {
	for _, tool := range tools.Default(&fakePaperService{}, &fakeCredentialService{}, &fakePatentService{}) {
		var schema map[string]any
		require.NoError(t, json.Unmarshal(tool.Parameters(), &schema), tool.Name())
		assert.Equal(t, "object", schema["type"], tool.Name())
	}
}
