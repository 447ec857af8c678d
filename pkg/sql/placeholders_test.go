package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const empTemplate = "SELECT id, name FROM emp WHERE 1=1 --deptFilter --nameFilter --orderBy"

func TestFindPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"deptFilter", "nameFilter", "orderBy"}, FindPlaceholders(empTemplate))
	assert.Nil(t, FindPlaceholders("SELECT 1 -- just a comment"))
	assert.Nil(t, FindPlaceholders("SELECT '--notPlaceholder' FROM t"))
}

func TestCountPlaceholder(t *testing.T) {
	assert.Equal(t, 1, CountPlaceholder(empTemplate, "deptFilter"))
	assert.Equal(t, 0, CountPlaceholder(empTemplate, "dept"))
	assert.Equal(t, 2, CountPlaceholder("SELECT 1 --a\nUNION SELECT 2 --a", "a"))
	assert.Equal(t, 0, CountPlaceholder("SELECT 1 --a is not ready", "a"))
}

func TestReplacePlaceholder(t *testing.T) {
	tests := []struct {
		name        string
		sql         string
		placeholder string
		replacement string
		expected    string
	}{
		{
			name:        "replaces the named marker",
			sql:         empTemplate,
			placeholder: "deptFilter",
			replacement: "AND dept_id = :deptId",
			expected:    "SELECT id, name FROM emp WHERE 1=1 AND dept_id = :deptId --nameFilter --orderBy",
		},
		{
			name:        "prefix of a longer name is untouched",
			sql:         "WHERE 1=1 --dept --deptName",
			placeholder: "dept",
			replacement: "AND x = 1",
			expected:    "WHERE 1=1 AND x = 1 --deptName",
		},
		{
			name:        "marker inside literal is untouched",
			sql:         "SELECT '--dept' FROM t WHERE 1=1 --dept",
			placeholder: "dept",
			replacement: "",
			expected:    "SELECT '--dept' FROM t WHERE 1=1 ",
		},
		{
			name:        "replacement with regex metacharacters",
			sql:         "WHERE 1=1 --crit",
			placeholder: "crit",
			replacement: "AND price > $1",
			expected:    "WHERE 1=1 AND price > $1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ReplacePlaceholder(tt.sql, tt.placeholder, tt.replacement))
		})
	}
}

func TestBlankPlaceholders(t *testing.T) {
	got := BlankPlaceholders("SELECT id FROM emp -- note\nWHERE 1=1 --deptFilter --orderBy")
	assert.Equal(t, "SELECT id FROM emp -- note\nWHERE 1=1  ", got)
}

func TestIsReservedPlaceholder(t *testing.T) {
	assert.True(t, IsReservedPlaceholder("filters"))
	assert.True(t, IsReservedPlaceholder("orderBy"))
	assert.False(t, IsReservedPlaceholder("deptFilter"))
}
