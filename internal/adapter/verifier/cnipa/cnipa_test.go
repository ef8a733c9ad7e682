package cnipa

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ZGSQ-QIANG/scholarship/internal/domain"
)

func TestDecide_TitleAndInventorMatch(t *testing.T) {
	state := pageState{
		Found:     true,
		RawTitle:  "[发明公布] 一种数据处理方法及装置",
		Inventors: "王五; 李四 ;张三",
	}

	outcome := decide(state, "王五", "一种数据处理方法")

	assert.Equal(t, domain.OutcomeSuccess, outcome.Status)
	assert.Equal(t, "专利证书信息匹配成功，证书真实有效。", outcome.Message)
	assert.Equal(t, "一种数据处理方法及装置", outcome.Detail["official_title"])
	assert.Equal(t, []string{"王五", "李四", "张三"}, outcome.Detail["official_inventors"])
}

func TestDecide_InventorMissing(t *testing.T) {
	state := pageState{
		Found:     true,
		RawTitle:  "[发明公布] 一种数据处理方法",
		Inventors: "李四",
	}

	outcome := decide(state, "王五", "一种数据处理方法")

	assert.Equal(t, domain.OutcomeFailed, outcome.Status)
	assert.Equal(t, "专利信息不匹配: 发明人列表中未找到'王五'。", outcome.Message)
}

func TestDecide_TitleMismatch(t *testing.T) {
	state := pageState{
		Found:     true,
		RawTitle:  "[实用新型] 一种完全不同的装置",
		Inventors: "王五",
	}

	outcome := decide(state, "王五", "一种数据处理方法")

	assert.Equal(t, domain.OutcomeFailed, outcome.Status)
	assert.Equal(t, "专利信息不匹配: 专利标题不匹配。", outcome.Message)
}

func TestDecide_BothChecksFailNamesBoth(t *testing.T) {
	state := pageState{
		Found:     true,
		RawTitle:  "[发明公布] 别的专利",
		Inventors: "李四",
	}

	outcome := decide(state, "王五", "一种数据处理方法")

	assert.Equal(t, domain.OutcomeFailed, outcome.Status)
	assert.Equal(t, "专利信息不匹配: 发明人列表中未找到'王五', 专利标题不匹配。", outcome.Message)
}

func TestDecide_NoResult(t *testing.T) {
	outcome := decide(pageState{Found: false}, "王五", "一种数据处理方法")

	assert.Equal(t, domain.OutcomeFailed, outcome.Status)
	assert.Equal(t, "未找到查询结果，申请号无效。", outcome.Message)
	if assert.NotNil(t, outcome.Verified) {
		assert.False(t, *outcome.Verified)
	}
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "一种数据处理方法", cleanTitle("  [发明公布] 一种数据处理方法  "))
	assert.Equal(t, "无前缀标题", cleanTitle("无前缀标题"))
}
