package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptRuleEmission(t *testing.T) {
	s := NewScript()
	err := s.Rule(Rule{
		Name:    "cc",
		Command: "gcc -c ${in} -o ${out}",
		Depfile: "${out}.d",
		Deps:    DepsGCC,
	})
	require.NoError(t, err)

	text := s.Text()
	assert.Contains(t, text, "rule cc\n")
	assert.Contains(t, text, "  command = gcc -c ${in} -o ${out}\n")
	assert.Contains(t, text, "  depfile = ${out}.d\n")
	assert.Contains(t, text, "  deps = gcc\n")
}

func TestScriptDuplicateRule(t *testing.T) {
	s := NewScript()
	require.NoError(t, s.Rule(Rule{Name: "cc", Command: "true"}))

	err := s.Rule(Rule{Name: "cc", Command: "false"})
	require.ErrorIs(t, err, ErrDuplicateRule)
}

func TestScriptDuplicatePool(t *testing.T) {
	s := NewScript()
	require.NoError(t, s.Pool("link_pool", 2))
	require.ErrorIs(t, s.Pool("link_pool", 4), ErrDuplicatePool)
}

func TestScriptPoolDepthInvariant(t *testing.T) {
	s := NewScript()
	require.Error(t, s.Pool("bad", 0))
	require.Error(t, s.Pool("worse", -3))
	require.False(t, s.HasPool("bad"))
}

func TestScriptPoolMustPrecedeRule(t *testing.T) {
	s := NewScript()
	err := s.Rule(Rule{Name: "link", Command: "ld", Pool: "link_pool"})
	require.Error(t, err)

	require.NoError(t, s.Pool("link_pool", 1))
	require.NoError(t, s.Rule(Rule{Name: "link", Command: "ld", Pool: "link_pool"}))
	assert.Contains(t, s.Text(), "  pool = link_pool\n")
}

func TestScriptRuleNamesPreserveOrder(t *testing.T) {
	s := NewScript()
	for _, name := range []string{"cc", "cxx", "ar", "link"} {
		require.NoError(t, s.Rule(Rule{Name: name, Command: "true"}))
	}
	assert.Equal(t, []string{"cc", "cxx", "ar", "link"}, s.RuleNames())
	assert.True(t, s.HasRule("ar"))
	assert.False(t, s.HasRule("strip"))
}

func TestScriptRuleOptionalAttributes(t *testing.T) {
	s := NewScript()
	require.NoError(t, s.Rule(Rule{
		Name:           "big_link",
		Command:        "ld @${out}.rsp",
		Generator:      true,
		Restat:         true,
		Rspfile:        "${out}.rsp",
		RspfileContent: "${in}",
	}))

	text := s.Text()
	assert.Contains(t, text, "  generator = 1\n")
	assert.Contains(t, text, "  restat = 1\n")
	assert.Contains(t, text, "  rspfile = ${out}.rsp\n")
	assert.Contains(t, text, "  rspfile_content = ${in}\n")
}
