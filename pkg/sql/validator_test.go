package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "no semicolon", input: "SELECT 1", expected: "SELECT 1"},
		{name: "trailing semicolon", input: "SELECT 1;", expected: "SELECT 1"},
		{name: "trailing semicolon and whitespace", input: "  SELECT 1 ;  \n", expected: "SELECT 1"},
		{name: "semicolon in string literal", input: "SELECT * FROM emp WHERE name = 'a;b'", expected: "SELECT * FROM emp WHERE name = 'a;b'"},
		{name: "semicolon in quoted identifier", input: `SELECT * FROM "odd;name"`, expected: `SELECT * FROM "odd;name"`},
		{name: "semicolon in line comment", input: "SELECT 1 -- first; second\nFROM dual", expected: "SELECT 1 -- first; second\nFROM dual"},
		{name: "semicolon in block comment", input: "SELECT /* a;b */ 1", expected: "SELECT /* a;b */ 1"},
		{name: "escaped quote", input: "SELECT * FROM emp WHERE name = 'O''Brien;'", expected: "SELECT * FROM emp WHERE name = 'O''Brien;'"},
		{name: "placeholders survive", input: "SELECT * FROM emp WHERE 1=1 --deptFilter --orderBy", expected: "SELECT * FROM emp WHERE 1=1 --deptFilter --orderBy"},
		{name: "empty", input: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalize_MultipleStatements(t *testing.T) {
	inputs := []string{
		"SELECT 1; SELECT 2",
		"SELECT 1;SELECT 2;",
		"SELECT * FROM emp WHERE 1=1; DELETE FROM emp",
		"SELECT 1;;",
	}
	for _, in := range inputs {
		got, err := Normalize(in)
		assert.ErrorIs(t, err, ErrMultipleStatements, in)
		assert.Empty(t, got)
	}
}
