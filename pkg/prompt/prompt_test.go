package prompt_test

import (
	"testing"

	"github.com/iamvkosarev/study-energy-bot/pkg/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveReplacesAllOccurrences(t *testing.T) {
	got, err := prompt.Resolve(
		"学习时间${time}秒，再次提醒：${time}秒",
		map[string]string{"time": "90"},
	)
	require.NoError(t, err)
	assert.Equal(t, "学习时间90秒，再次提醒：90秒", got)
	assert.NotContains(t, got, "${time}")
}

func TestResolveNoPlaceholders(t *testing.T) {
	got, err := prompt.Resolve("请为我生成一段鼓励学习的话术", nil)
	require.NoError(t, err)
	assert.Equal(t, "请为我生成一段鼓励学习的话术", got)
}

func TestResolveMissingSubstitution(t *testing.T) {
	_, err := prompt.Resolve("根据${content}回答", map[string]string{"time": "5"})
	require.ErrorIs(t, err, prompt.ErrUnresolvedPlaceholder)
}

func TestResolveDoesNotRescanSubstitutedValues(t *testing.T) {
	got, err := prompt.Resolve(
		"用户输入：${content}",
		map[string]string{"content": "${content}"},
	)
	require.NoError(t, err)
	assert.Equal(t, "用户输入：${content}", got)
}

func TestResolveUnterminatedPlaceholderIsLiteral(t *testing.T) {
	got, err := prompt.Resolve("before ${content", map[string]string{"content": "x"})
	require.NoError(t, err)
	assert.Equal(t, "before ${content", got)
}
