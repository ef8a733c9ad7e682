package chsi

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ZGSQ-QIANG/scholarship/internal/domain"
)

func newVerifier() *Verifier {
	return New(nil) // decide never touches the pool
}

func TestDecide_ValidCodeMatchingName(t *testing.T) {
	v := newVerifier()
	state := pageState{
		HasTable:     true,
		OfficialName: " 张三 ",
		TableHTML:    `<div class="report-info-item"><span class="label">姓名</span><span class="value">张三</span></div>`,
	}

	outcome := v.decide(state, "张三")

	assert.Equal(t, domain.OutcomeSuccess, outcome.Status)
	assert.Equal(t, "验证码有效，学籍信息如下：", outcome.Message)
	assert.Contains(t, outcome.Detail["markdown"], "张三")
	assert.Nil(t, outcome.Verified)
}

func TestDecide_ValidCodeNameMismatch(t *testing.T) {
	v := newVerifier()
	state := pageState{HasTable: true, OfficialName: "李四"}

	outcome := v.decide(state, "张三")

	assert.Equal(t, domain.OutcomeNameMismatch, outcome.Status)
	assert.Equal(t, "验证码有效，但姓名不匹配 (页面姓名: 李四, 提供姓名: 张三)", outcome.Message)
}

func TestDecide_PortalErrorMessage(t *testing.T) {
	v := newVerifier()
	state := pageState{HasTable: false, ErrorText: " 验证码已失效 "}

	outcome := v.decide(state, "张三")

	assert.Equal(t, domain.OutcomeInvalid, outcome.Status)
	assert.Equal(t, "验证码已失效", outcome.Message)
	if assert.NotNil(t, outcome.Verified) {
		assert.False(t, *outcome.Verified)
	}
}

func TestDecide_NoTableNoError(t *testing.T) {
	v := newVerifier()

	outcome := v.decide(pageState{}, "张三")

	assert.Equal(t, domain.OutcomeError, outcome.Status)
	assert.Equal(t, "未知错误，无法找到学籍信息或错误提示", outcome.Message)
	if assert.NotNil(t, outcome.Verified) {
		assert.False(t, *outcome.Verified)
	}
}
